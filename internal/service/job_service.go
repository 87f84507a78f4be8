package service

import (
	"errors"
	"fmt"
	"time"

	"go-production-ws/internal/model"
	"go-production-ws/internal/repository"
	"go-production-ws/internal/ws"
	"go-production-ws/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrDocketExists = errors.New("docket number already exists")
	ErrNoStages     = errors.New("product type has no production stages")
)

type CreateJobRequest struct {
	DocketNumber  string    `json:"docket_number" validate:"required"`
	ProductTypeID uuid.UUID `json:"product_type_id" validate:"uuid_required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
	Priority      int       `json:"priority" validate:"required,oneof=1 2 3"`
	DueDate       string    `json:"due_date" validate:"required"` // YYYY-MM-DD
}

type AssignmentRequest struct {
	JobID             uuid.UUID `json:"job_id" validate:"uuid_required"`
	ProductionStageID uuid.UUID `json:"production_stage_id" validate:"uuid_required"`
	UserID            uuid.UUID `json:"user_id" validate:"uuid_required"`
}

// JobDetail is the full aggregate view a job page needs.
type JobDetail struct {
	Job           model.Job              `json:"job"`
	Products      []model.Product        `json:"products"`
	StageStatuses []model.JobStageStatus `json:"stage_statuses"`
	Assignments   []model.JobAssignment  `json:"assignments"`
}

type JobService interface {
	CreateJob(req *CreateJobRequest, creator Actor) (*model.Job, error)
	AddProduct(jobID uuid.UUID, creator Actor) (*model.Product, error)
	GetAllJobs() ([]model.Job, error)
	GetJobDetail(id uuid.UUID) (*JobDetail, error)
	Assign(req *AssignmentRequest) (*model.JobAssignment, error)
	Unassign(jobID, stageID, userID uuid.UUID) error
	AssignmentsForJob(jobID uuid.UUID) ([]model.JobAssignment, error)
}

type jobService struct {
	jobRepo     repository.JobRepository
	productRepo repository.ProductRepository
	typeRepo    repository.ProductTypeRepository
	eventRepo   repository.StageEventRepository
	db          *gorm.DB
	wsHub       *ws.Hub
}

func NewJobService(
	jobRepo repository.JobRepository,
	productRepo repository.ProductRepository,
	typeRepo repository.ProductTypeRepository,
	eventRepo repository.StageEventRepository,
	db *gorm.DB,
	hub *ws.Hub,
) JobService {
	return &jobService{
		jobRepo:     jobRepo,
		productRepo: productRepo,
		typeRepo:    typeRepo,
		eventRepo:   eventRepo,
		db:          db,
		wsHub:       hub,
	}
}

// CreateJob builds the whole aggregate in one transaction: the job, Quantity
// products with serials {docket}-{seq:03d}, one link per (product, stage), a
// seed PENDING event at the first stage for every unit, and one counter row
// per stage.
func (s *jobService) CreateJob(req *CreateJobRequest, creator Actor) (*model.Job, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	if existing, _ := s.jobRepo.FindByDocket(req.DocketNumber); existing != nil && existing.ID != uuid.Nil {
		return nil, ErrDocketExists
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, errors.New("invalid due_date format, use YYYY-MM-DD")
	}

	stages, err := s.typeRepo.StagesForType(nil, req.ProductTypeID)
	if err != nil {
		return nil, classify(err)
	}
	if len(stages) == 0 {
		return nil, ErrNoStages
	}

	job := &model.Job{
		DocketNumber:  req.DocketNumber,
		ProductTypeID: req.ProductTypeID,
		Quantity:      req.Quantity,
		Priority:      req.Priority,
		DueDate:       dueDate,
		Status:        model.JobOpen,
	}
	job.CreatedBy = creator.ID.String()
	job.UpdatedBy = creator.ID.String()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.jobRepo.Create(tx, job); err != nil {
			return err
		}

		for seq := 1; seq <= req.Quantity; seq++ {
			if err := s.createUnit(tx, job, stages, seq, creator); err != nil {
				return err
			}
		}

		statuses := make([]model.JobStageStatus, 0, len(stages))
		for i, stage := range stages {
			progress := model.StagePending
			if i == 0 {
				// Units are queued at the first stage from day one.
				progress = model.StageInProgress
			}
			statuses = append(statuses, model.JobStageStatus{
				JobID:             job.ID,
				ProductionStageID: stage.ID,
				Status:            progress,
			})
		}
		return s.jobRepo.CreateStageStatuses(tx, statuses)
	})
	if err != nil {
		return nil, classify(err)
	}

	s.announce("job_created", map[string]interface{}{
		"job_id":        job.ID,
		"docket_number": job.DocketNumber,
		"quantity":      job.Quantity,
	})
	return job, nil
}

// AddProduct appends one more unit to an open job: next serial in sequence,
// links for every stage, seed PENDING at the first stage, quantity bumped.
func (s *jobService) AddProduct(jobID uuid.UUID, creator Actor) (*model.Product, error) {
	var product *model.Product

	err := s.db.Transaction(func(tx *gorm.DB) error {
		job, err := s.jobRepo.FindByID(tx, jobID)
		if err != nil {
			return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
		}
		if job.Status == model.JobCompleted {
			return fmt.Errorf("%w: job %s is completed", ErrInvalidTransition, job.DocketNumber)
		}

		stages, err := s.typeRepo.StagesForType(tx, job.ProductTypeID)
		if err != nil {
			return err
		}
		if len(stages) == 0 {
			return ErrNoStages
		}

		existing, err := s.productRepo.ProductsForJob(tx, jobID)
		if err != nil {
			return err
		}

		if err := s.createUnit(tx, job, stages, len(existing)+1, creator); err != nil {
			return err
		}
		if err := tx.Model(&model.Job{}).Where("id = ?", jobID).
			Update("quantity", job.Quantity+1).Error; err != nil {
			return err
		}

		products, err := s.productRepo.ProductsForJob(tx, jobID)
		if err != nil {
			return err
		}
		product = &products[len(products)-1]
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return product, nil
}

// createUnit makes one product with its links and seed event. Caller's tx.
func (s *jobService) createUnit(tx *gorm.DB, job *model.Job, stages []model.ProductionStage, seq int, creator Actor) error {
	product := &model.Product{
		JobID:        job.ID,
		SerialNumber: fmt.Sprintf("%s-%03d", job.DocketNumber, seq),
		Status:       model.ProductPending,
	}
	product.CreatedBy = creator.ID.String()
	product.UpdatedBy = creator.ID.String()
	if err := s.productRepo.Create(tx, product); err != nil {
		return err
	}

	links := make([]model.ProductStageLink, 0, len(stages))
	for _, stage := range stages {
		links = append(links, model.ProductStageLink{
			ProductID:         product.ID,
			ProductionStageID: stage.ID,
		})
	}
	if err := s.productRepo.CreateLinks(tx, links); err != nil {
		return err
	}

	return s.eventRepo.Append(tx, &model.StageEvent{
		ProductStageLinkID: links[0].ID,
		Status:             model.EventPending,
		UserID:             creator.ID,
	})
}

func (s *jobService) GetAllJobs() ([]model.Job, error) {
	return s.jobRepo.FindAll()
}

func (s *jobService) GetJobDetail(id uuid.UUID) (*JobDetail, error) {
	job, err := s.jobRepo.FindByID(nil, id)
	if err != nil {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}

	products, err := s.productRepo.ProductsForJob(nil, id)
	if err != nil {
		return nil, classify(err)
	}
	statuses, err := s.jobRepo.StageStatusesForJob(id)
	if err != nil {
		return nil, classify(err)
	}
	assignments, err := s.jobRepo.AssignmentsForJob(id)
	if err != nil {
		return nil, classify(err)
	}

	return &JobDetail{
		Job:           *job,
		Products:      products,
		StageStatuses: statuses,
		Assignments:   assignments,
	}, nil
}

func (s *jobService) Assign(req *AssignmentRequest) (*model.JobAssignment, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	if _, err := s.jobRepo.FindByID(nil, req.JobID); err != nil {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, req.JobID)
	}
	if _, err := s.typeRepo.FindStageByID(nil, req.ProductionStageID); err != nil {
		return nil, fmt.Errorf("%w: stage %s", ErrNotFound, req.ProductionStageID)
	}

	assignment := &model.JobAssignment{
		JobID:             req.JobID,
		ProductionStageID: req.ProductionStageID,
		UserID:            req.UserID,
	}
	if err := s.jobRepo.CreateAssignment(assignment); err != nil {
		return nil, classify(err)
	}
	return assignment, nil
}

func (s *jobService) Unassign(jobID, stageID, userID uuid.UUID) error {
	return classify(s.jobRepo.DeleteAssignment(jobID, stageID, userID))
}

func (s *jobService) AssignmentsForJob(jobID uuid.UUID) ([]model.JobAssignment, error) {
	return s.jobRepo.AssignmentsForJob(jobID)
}

func (s *jobService) announce(action string, payload map[string]interface{}) {
	s.wsHub.Publish("job_update", action, payload)
}
