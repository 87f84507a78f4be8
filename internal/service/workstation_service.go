package service

import (
	"errors"
	"fmt"
	"time"

	"go-production-ws/internal/model"
	"go-production-ws/internal/repository"
	"go-production-ws/internal/ws"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor identifies the caller of a workstation operation. The role code decides
// whether job-assignment grants are bypassed.
type Actor struct {
	ID       uuid.UUID
	RoleCode string
}

// Location is the resolver's answer: where a unit currently sits and in what
// lifecycle state. Product.Status is a cache of exactly this derivation.
type Location struct {
	StageID uuid.UUID           `json:"stage_id"`
	State   model.ProductStatus `json:"state"`
}

type ScanResult struct {
	Action  string         `json:"action"` // "started" or "passed"
	Product *model.Product `json:"product"`
}

type StationData struct {
	PendingProducts []model.Product `json:"pending_products"`
	ActiveBatch     []model.Product `json:"active_batch"`
}

// WorkstationService is the transition engine. Every operation runs as one
// database transaction: event appends, counter updates and status updates
// commit together or not at all. Batch operations (Start, Pass) are
// all-or-nothing: the first precondition violation rolls back the whole batch.
type WorkstationService interface {
	Start(productIDs []uuid.UUID, stageID uuid.UUID, actor Actor) error
	Pass(productIDs []uuid.UUID, stageID uuid.UUID, actor Actor) error
	Fail(productID, stageID uuid.UUID, actor Actor, notes model.FailureNotes) error
	Rework(productID uuid.UUID, actor Actor) error
	Move(productID, targetStageID uuid.UUID, actor Actor) error
	Scrap(productID uuid.UUID, actor Actor, notes string) error
	Scan(serial string, stageID uuid.UUID, actor Actor) (*ScanResult, error)
	ResolveLocation(productID uuid.UUID) (*Location, error)
	StationData(jobID, stageID, userID uuid.UUID) (*StationData, error)
}

type workstationService struct {
	productRepo repository.ProductRepository
	jobRepo     repository.JobRepository
	typeRepo    repository.ProductTypeRepository
	eventRepo   repository.StageEventRepository
	db          *gorm.DB
	wsHub       *ws.Hub
}

func NewWorkstationService(
	productRepo repository.ProductRepository,
	jobRepo repository.JobRepository,
	typeRepo repository.ProductTypeRepository,
	eventRepo repository.StageEventRepository,
	db *gorm.DB,
	hub *ws.Hub,
) WorkstationService {
	return &workstationService{
		productRepo: productRepo,
		jobRepo:     jobRepo,
		typeRepo:    typeRepo,
		eventRepo:   eventRepo,
		db:          db,
		wsHub:       hub,
	}
}

// canActOnStage is the single authorization predicate: elevated roles bypass
// grants, technicians need a JobAssignment row for (job, stage).
func (s *workstationService) canActOnStage(tx *gorm.DB, actor Actor, jobID, stageID uuid.UUID) (bool, error) {
	if model.Elevated(actor.RoleCode) {
		return true, nil
	}
	return s.jobRepo.HasAssignment(tx, jobID, stageID, actor.ID)
}

func (s *workstationService) Start(productIDs []uuid.UUID, stageID uuid.UUID, actor Actor) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, productID := range productIDs {
			product, err := s.productRepo.FindForUpdate(tx, productID)
			if err != nil {
				return fmt.Errorf("%w: product %s", ErrNotFound, productID)
			}

			allowed, err := s.canActOnStage(tx, actor, product.JobID, stageID)
			if err != nil {
				return err
			}
			if !allowed {
				return fmt.Errorf("%w: product %s stage %s", ErrAccessDenied, product.SerialNumber, stageID)
			}

			link, err := s.productRepo.LinkFor(tx, productID, stageID)
			if err != nil {
				return fmt.Errorf("%w: no link for product %s at stage %s", ErrNotFound, productID, stageID)
			}

			latest, err := s.eventRepo.LatestAtStage(tx, productID, stageID)
			if err != nil || latest.Status != model.EventPending {
				return fmt.Errorf("%w: product %s is not pending at this stage", ErrInvalidTransition, product.SerialNumber)
			}

			if err := s.eventRepo.Append(tx, &model.StageEvent{
				ProductStageLinkID: link.ID,
				Status:             model.EventStarted,
				UserID:             actor.ID,
			}); err != nil {
				return err
			}

			if err := s.productRepo.UpdateState(tx, productID, model.ProductInProgress, &actor.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.broadcast("work_started", map[string]interface{}{
		"product_ids": productIDs,
		"stage_id":    stageID,
		"user_id":     actor.ID,
	})
	return nil
}

func (s *workstationService) Pass(productIDs []uuid.UUID, stageID uuid.UUID, actor Actor) error {
	jobIDs := map[uuid.UUID]bool{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, productID := range productIDs {
			product, err := s.productRepo.FindForUpdate(tx, productID)
			if err != nil {
				return fmt.Errorf("%w: product %s", ErrNotFound, productID)
			}

			job, err := s.jobRepo.FindByID(tx, product.JobID)
			if err != nil {
				return fmt.Errorf("%w: job %s", ErrNotFound, product.JobID)
			}

			if err := s.passOne(tx, product, job, stageID, actor); err != nil {
				return err
			}
			jobIDs[job.ID] = true
		}

		for jobID := range jobIDs {
			if err := s.recheckJobCompletion(tx, jobID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.broadcast("products_passed", map[string]interface{}{
		"product_ids": productIDs,
		"stage_id":    stageID,
		"user_id":     actor.ID,
	})
	return nil
}

// passOne advances a single unit. Caller holds the product and job row locks.
func (s *workstationService) passOne(tx *gorm.DB, product *model.Product, job *model.Job, stageID uuid.UUID, actor Actor) error {
	link, err := s.productRepo.LinkFor(tx, product.ID, stageID)
	if err != nil {
		return fmt.Errorf("%w: no link for product %s at stage %s", ErrNotFound, product.ID, stageID)
	}

	latest, err := s.eventRepo.LatestAtStage(tx, product.ID, stageID)
	if err != nil || latest.Status != model.EventStarted {
		return fmt.Errorf("%w: product %s has not been started at this stage", ErrInvalidTransition, product.SerialNumber)
	}

	if err := s.eventRepo.Append(tx, &model.StageEvent{
		ProductStageLinkID: link.ID,
		Status:             model.EventPassed,
		UserID:             actor.ID,
		DurationSeconds:    s.measureDuration(tx, link.ID),
	}); err != nil {
		return err
	}

	stages, err := s.typeRepo.StagesForType(tx, job.ProductTypeID)
	if err != nil {
		return err
	}
	currentIdx := stageIndex(stages, stageID)
	if currentIdx < 0 {
		return fmt.Errorf("%w: stage %s is not part of the workflow", ErrNotFound, stageID)
	}

	var nextStage *model.ProductionStage
	if currentIdx < len(stages)-1 {
		nextStage = &stages[currentIdx+1]
	}

	newStatus := model.ProductCompleted
	if nextStage != nil {
		newStatus = model.ProductPending
		nextLink, err := s.productRepo.LinkFor(tx, product.ID, nextStage.ID)
		if err != nil {
			return fmt.Errorf("%w: no link for product %s at next stage %s", ErrNotFound, product.ID, nextStage.ID)
		}
		if err := s.eventRepo.Append(tx, &model.StageEvent{
			ProductStageLinkID: nextLink.ID,
			Status:             model.EventPending,
			UserID:             actor.ID,
		}); err != nil {
			return err
		}
	}

	if err := s.productRepo.UpdateState(tx, product.ID, newStatus, nil); err != nil {
		return err
	}

	// Counters for the stage just cleared.
	status, err := s.jobRepo.StageStatus(tx, job.ID, stageID)
	if err != nil {
		return err
	}
	status.PassedCount++
	if status.Exhausted(job.Quantity) {
		status.Status = model.StageCompleted
	}
	if err := s.jobRepo.SaveStageStatus(tx, status); err != nil {
		return err
	}

	// First unit arriving at the next stage opens it.
	if nextStage != nil {
		nextStatus, err := s.jobRepo.StageStatus(tx, job.ID, nextStage.ID)
		if err != nil {
			return err
		}
		if nextStatus.Status == model.StagePending {
			nextStatus.Status = model.StageInProgress
			if err := s.jobRepo.SaveStageStatus(tx, nextStatus); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *workstationService) Fail(productID, stageID uuid.UUID, actor Actor, notes model.FailureNotes) error {
	var serial string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.FindForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		serial = product.SerialNumber

		link, err := s.productRepo.LinkFor(tx, productID, stageID)
		if err != nil {
			return fmt.Errorf("%w: no link for product %s at stage %s", ErrNotFound, productID, stageID)
		}

		latest, err := s.eventRepo.LatestAtStage(tx, productID, stageID)
		if err != nil || latest.Status != model.EventStarted {
			return fmt.Errorf("%w: product %s has not been started at this stage", ErrInvalidTransition, product.SerialNumber)
		}

		if err := s.eventRepo.Append(tx, &model.StageEvent{
			ProductStageLinkID: link.ID,
			Status:             model.EventFailed,
			UserID:             actor.ID,
			Notes:              notes.Encode(),
			DurationSeconds:    s.measureDuration(tx, link.ID),
		}); err != nil {
			return err
		}

		if err := s.productRepo.UpdateState(tx, productID, model.ProductFailed, nil); err != nil {
			return err
		}

		status, err := s.jobRepo.StageStatus(tx, product.JobID, stageID)
		if err != nil {
			return err
		}
		status.FailedCount++
		return s.jobRepo.SaveStageStatus(tx, status)
	})
	if err != nil {
		return classify(err)
	}

	s.broadcast("product_failed", map[string]interface{}{
		"product_id": productID,
		"serial":     serial,
		"stage_id":   stageID,
		"user_id":    actor.ID,
		"reasons":    notes.Reasons,
	})
	return nil
}

func (s *workstationService) Rework(productID uuid.UUID, actor Actor) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.FindForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		if product.Status != model.ProductFailed {
			return fmt.Errorf("%w: product %s is not in a failed state", ErrInvalidTransition, product.SerialNumber)
		}

		failed, err := s.eventRepo.LatestFailedForProduct(tx, productID)
		if err != nil {
			return fmt.Errorf("%w: no FAILED event for product %s", ErrInvalidTransition, product.SerialNumber)
		}

		// Self-rework belongs to the technician who failed the unit; managers
		// dispose through Move.
		if failed.UserID != actor.ID {
			return fmt.Errorf("%w: only the technician who failed the product can rework it", ErrForbidden)
		}

		job, err := s.jobRepo.FindByID(tx, product.JobID)
		if err != nil {
			return err
		}
		stages, err := s.typeRepo.StagesForType(tx, job.ProductTypeID)
		if err != nil {
			return err
		}
		failedIdx := stageIndex(stages, failed.ProductionStageID)
		if failedIdx < 0 {
			return fmt.Errorf("%w: failed stage is not part of the workflow", ErrDataIntegrity)
		}
		if failedIdx == 0 {
			return ErrNoPreviousStage
		}

		target := stages[failedIdx-1]
		return s.returnToStage(tx, product, job, failed, &target, failedIdx, failedIdx-1, actor,
			fmt.Sprintf("Reworking back to stage: %s", target.StageName))
	})
	if err != nil {
		return classify(err)
	}

	s.broadcast("product_reworked", map[string]interface{}{
		"product_id": productID,
		"user_id":    actor.ID,
	})
	return nil
}

func (s *workstationService) Move(productID, targetStageID uuid.UUID, actor Actor) error {
	if !model.Elevated(actor.RoleCode) {
		return fmt.Errorf("%w: moving products requires a manager or admin role", ErrForbidden)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.FindForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		if product.Status != model.ProductFailed {
			return fmt.Errorf("%w: product %s is not in a failed state", ErrInvalidTransition, product.SerialNumber)
		}

		failed, err := s.eventRepo.LatestFailedForProduct(tx, productID)
		if err != nil {
			return fmt.Errorf("%w: no FAILED event for product %s", ErrInvalidTransition, product.SerialNumber)
		}

		job, err := s.jobRepo.FindByID(tx, product.JobID)
		if err != nil {
			return err
		}
		stages, err := s.typeRepo.StagesForType(tx, job.ProductTypeID)
		if err != nil {
			return err
		}
		failedIdx := stageIndex(stages, failed.ProductionStageID)
		targetIdx := stageIndex(stages, targetStageID)
		if targetIdx < 0 {
			return fmt.Errorf("%w: target stage %s is not valid for this product type", ErrNotFound, targetStageID)
		}
		if failedIdx < 0 {
			return fmt.Errorf("%w: failed stage is not part of the workflow", ErrDataIntegrity)
		}

		target := stages[targetIdx]
		return s.returnToStage(tx, product, job, failed, &target, failedIdx, targetIdx, actor,
			fmt.Sprintf("Manager moved product to stage: %s", target.StageName))
	})
	if err != nil {
		return classify(err)
	}

	s.broadcast("product_moved", map[string]interface{}{
		"product_id":      productID,
		"target_stage_id": targetStageID,
		"user_id":         actor.ID,
	})
	return nil
}

// returnToStage is the shared RESET+PENDING pair behind Rework and Move.
// Moving backward logically re-enters stages the unit had already cleared, so
// every intervening passedCount is rolled back (floored at zero) and those
// stages reopen.
func (s *workstationService) returnToStage(
	tx *gorm.DB,
	product *model.Product,
	job *model.Job,
	failed *repository.LocatedEvent,
	target *model.ProductionStage,
	failedIdx, targetIdx int,
	actor Actor,
	resetNote string,
) error {
	if err := s.eventRepo.Append(tx, &model.StageEvent{
		ProductStageLinkID: failed.ProductStageLinkID,
		Status:             model.EventReset,
		UserID:             actor.ID,
		Notes:              resetNote,
	}); err != nil {
		return err
	}

	targetLink, err := s.productRepo.LinkFor(tx, product.ID, target.ID)
	if err != nil {
		return fmt.Errorf("%w: no link for product %s at stage %s", ErrNotFound, product.ID, target.ID)
	}
	if err := s.eventRepo.Append(tx, &model.StageEvent{
		ProductStageLinkID: targetLink.ID,
		Status:             model.EventPending,
		UserID:             actor.ID,
	}); err != nil {
		return err
	}

	if err := s.productRepo.UpdateState(tx, product.ID, model.ProductPending, nil); err != nil {
		return err
	}

	stages, err := s.typeRepo.StagesForType(tx, job.ProductTypeID)
	if err != nil {
		return err
	}

	if targetIdx < failedIdx {
		for idx := targetIdx; idx < failedIdx; idx++ {
			status, err := s.jobRepo.StageStatus(tx, job.ID, stages[idx].ID)
			if err != nil {
				return err
			}
			if status.PassedCount > 0 {
				status.PassedCount--
			}
			status.Status = model.StageInProgress
			if err := s.jobRepo.SaveStageStatus(tx, status); err != nil {
				return err
			}
		}
	} else {
		status, err := s.jobRepo.StageStatus(tx, job.ID, target.ID)
		if err != nil {
			return err
		}
		status.Status = model.StageInProgress
		if err := s.jobRepo.SaveStageStatus(tx, status); err != nil {
			return err
		}
	}

	failedStatus, err := s.jobRepo.StageStatus(tx, job.ID, failed.ProductionStageID)
	if err != nil {
		return err
	}
	if failedStatus.FailedCount > 0 {
		failedStatus.FailedCount--
	}
	return s.jobRepo.SaveStageStatus(tx, failedStatus)
}

func (s *workstationService) Scrap(productID uuid.UUID, actor Actor, notes string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.FindForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		if product.Status.Terminal() {
			return fmt.Errorf("%w: product %s", ErrAlreadyTerminal, product.SerialNumber)
		}
		wasFailed := product.Status == model.ProductFailed

		// Scrapping is legal at any live stage, including Pending; the stage
		// charged is wherever the latest event of any status sits.
		latest, err := s.eventRepo.LatestForProduct(tx, productID)
		if err != nil {
			return fmt.Errorf("%w: product %s", ErrDataIntegrity, product.SerialNumber)
		}

		if err := s.eventRepo.Append(tx, &model.StageEvent{
			ProductStageLinkID: latest.ProductStageLinkID,
			Status:             model.EventScrapped,
			UserID:             actor.ID,
			Notes:              notes,
		}); err != nil {
			return err
		}

		if err := s.productRepo.UpdateState(tx, productID, model.ProductScrapped, nil); err != nil {
			return err
		}

		job, err := s.jobRepo.FindByID(tx, product.JobID)
		if err != nil {
			return err
		}
		status, err := s.jobRepo.StageStatus(tx, product.JobID, latest.ProductionStageID)
		if err != nil {
			return err
		}
		status.ScrappedCount++
		if wasFailed && status.FailedCount > 0 {
			status.FailedCount--
		}
		if status.Exhausted(job.Quantity) {
			status.Status = model.StageCompleted
		}
		if err := s.jobRepo.SaveStageStatus(tx, status); err != nil {
			return err
		}

		return s.recheckJobCompletion(tx, product.JobID)
	})
	if err != nil {
		return classify(err)
	}

	s.broadcast("product_scrapped", map[string]interface{}{
		"product_id": productID,
		"user_id":    actor.ID,
	})
	return nil
}

// Scan drives the barcode workflow: a unit pending at this station is started,
// a unit started here is passed, anything else is rejected with its actual
// position in the message.
func (s *workstationService) Scan(serial string, stageID uuid.UUID, actor Actor) (*ScanResult, error) {
	product, err := s.productRepo.FindBySerial(serial)
	if err != nil {
		return nil, fmt.Errorf("%w: serial number %q", ErrNotFound, serial)
	}

	latest, err := s.eventRepo.LatestForProduct(nil, product.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: product %s", ErrDataIntegrity, serial)
	}

	switch {
	case latest.Status == model.EventPending && latest.ProductionStageID == stageID:
		if err := s.Start([]uuid.UUID{product.ID}, stageID, actor); err != nil {
			return nil, err
		}
		return &ScanResult{Action: "started", Product: product}, nil

	case latest.Status == model.EventStarted && latest.ProductionStageID == stageID:
		if err := s.Pass([]uuid.UUID{product.ID}, stageID, actor); err != nil {
			return nil, err
		}
		return &ScanResult{Action: "passed", Product: product}, nil

	default:
		return nil, fmt.Errorf("%w: product %s is %s at stage %s and cannot be scanned at this station",
			ErrInvalidTransition, serial, latest.Status, latest.ProductionStageID)
	}
}

// ResolveLocation derives a product's position purely from the event log. It
// never mutates state and is safe to call concurrently.
func (s *workstationService) ResolveLocation(productID uuid.UUID) (*Location, error) {
	if _, err := s.productRepo.FindByID(nil, productID); err != nil {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}

	latest, err := s.eventRepo.LatestForProduct(nil, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Every product is seeded with a PENDING event at creation; no
			// events at all means the creation path is broken.
			return nil, fmt.Errorf("%w: product %s", ErrDataIntegrity, productID)
		}
		return nil, classify(err)
	}

	// A SCRAPPED latest event is terminal regardless of presence semantics.
	if latest.Status == model.EventScrapped {
		return &Location{StageID: latest.ProductionStageID, State: model.ProductScrapped}, nil
	}

	presence, err := s.eventRepo.LatestPresenceForProduct(nil, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrDataIntegrity, productID)
		}
		return nil, classify(err)
	}

	// A departure event newer than the last presence event means the unit
	// passed its final stage: a PASSED anywhere else is immediately followed
	// by a PENDING on the next link in the same transaction.
	if latest.EventID != presence.EventID {
		return &Location{StageID: latest.ProductionStageID, State: model.ProductCompleted}, nil
	}

	switch presence.Status {
	case model.EventStarted:
		return &Location{StageID: presence.ProductionStageID, State: model.ProductInProgress}, nil
	case model.EventFailed:
		return &Location{StageID: presence.ProductionStageID, State: model.ProductFailed}, nil
	default:
		return &Location{StageID: presence.ProductionStageID, State: model.ProductPending}, nil
	}
}

func (s *workstationService) StationData(jobID, stageID, userID uuid.UUID) (*StationData, error) {
	pendingIDs, err := s.eventRepo.PendingProductIDsAtStage(jobID, stageID)
	if err != nil {
		return nil, classify(err)
	}

	data := &StationData{PendingProducts: []model.Product{}, ActiveBatch: []model.Product{}}
	for _, id := range pendingIDs {
		product, err := s.productRepo.FindByID(nil, id)
		if err != nil {
			return nil, classify(err)
		}
		data.PendingProducts = append(data.PendingProducts, *product)
	}

	products, err := s.productRepo.ProductsForJob(nil, jobID)
	if err != nil {
		return nil, classify(err)
	}
	for _, p := range products {
		if p.Status != model.ProductInProgress || p.CurrentWorkerID == nil || *p.CurrentWorkerID != userID {
			continue
		}
		// Only units started at this station belong to its batch; the same
		// worker may hold units at other stages of the same job.
		latest, err := s.eventRepo.LatestAtStage(nil, p.ID, stageID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		if latest.Status == model.EventStarted {
			data.ActiveBatch = append(data.ActiveBatch, p)
		}
	}
	return data, nil
}

// recheckJobCompletion re-derives the job status from its products. Idempotent
// and order-independent: completed exactly when every unit is terminal.
func (s *workstationService) recheckJobCompletion(tx *gorm.DB, jobID uuid.UUID) error {
	products, err := s.productRepo.ProductsForJob(tx, jobID)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	for _, p := range products {
		if !p.Status.Terminal() {
			return nil
		}
	}
	return s.jobRepo.UpdateStatus(tx, jobID, model.JobCompleted)
}

// measureDuration stamps operational telemetry on PASSED/FAILED events: the
// wall-clock seconds since the unit was started on this link. Not authoritative.
func (s *workstationService) measureDuration(tx *gorm.DB, linkID uuid.UUID) *int {
	started, err := s.eventRepo.LatestStartedForLink(tx, linkID)
	if err != nil {
		return nil
	}
	seconds := int(time.Since(started.Timestamp).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return &seconds
}

func (s *workstationService) broadcast(action string, payload map[string]interface{}) {
	s.wsHub.Publish("stage_transition", action, payload)
}

func stageIndex(stages []model.ProductionStage, stageID uuid.UUID) int {
	for i, stage := range stages {
		if stage.ID == stageID {
			return i
		}
	}
	return -1
}
