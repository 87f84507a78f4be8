package repository

import (
	"time"

	"go-production-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocatedEvent is a stage event joined with the stage its link points at.
// All "latest event" queries resolve through this shape.
type LocatedEvent struct {
	EventID           uint64            `json:"event_id"`
	ProductStageLinkID uuid.UUID        `json:"product_stage_link_id"`
	ProductionStageID uuid.UUID         `json:"production_stage_id"`
	Status            model.EventStatus `json:"status"`
	Timestamp         time.Time         `json:"timestamp"`
	UserID            uuid.UUID         `json:"user_id"`
}

type StageEventRepository interface {
	Append(tx *gorm.DB, event *model.StageEvent) error
	LatestForProduct(tx *gorm.DB, productID uuid.UUID) (*LocatedEvent, error)
	LatestPresenceForProduct(tx *gorm.DB, productID uuid.UUID) (*LocatedEvent, error)
	LatestAtStage(tx *gorm.DB, productID, stageID uuid.UUID) (*LocatedEvent, error)
	LatestFailedForProduct(tx *gorm.DB, productID uuid.UUID) (*LocatedEvent, error)
	LatestStartedForLink(tx *gorm.DB, linkID uuid.UUID) (*model.StageEvent, error)
	HistoryForProduct(productID uuid.UUID) ([]model.StageEvent, error)
	FindAll() ([]model.StageEvent, error)
	PendingProductIDsAtStage(jobID, stageID uuid.UUID) ([]uuid.UUID, error)
}

type stageEventRepo struct {
	db *gorm.DB
}

func NewStageEventRepo(db *gorm.DB) StageEventRepository {
	return &stageEventRepo{db}
}

// Append writes one ledger row. The timestamp is assigned here from the server
// clock when the caller did not set one; rows are never updated afterwards.
func (r *stageEventRepo) Append(tx *gorm.DB, event *model.StageEvent) error {
	if tx == nil {
		tx = r.db
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return tx.Create(event).Error
}

// latestQuery builds the shared join. Ordering is (timestamp DESC, id DESC):
// the bigint id breaks exact-timestamp ties in insertion order, and every
// caller must use the same rule or the state machine drifts.
func (r *stageEventRepo) latestQuery(tx *gorm.DB, productID uuid.UUID) *gorm.DB {
	if tx == nil {
		tx = r.db
	}
	return tx.Table("stage_events").
		Select("stage_events.id AS event_id, stage_events.product_stage_link_id, product_stage_links.production_stage_id, stage_events.status, stage_events.timestamp, stage_events.user_id").
		Joins("JOIN product_stage_links ON product_stage_links.id = stage_events.product_stage_link_id").
		Where("product_stage_links.product_id = ?", productID).
		Order("stage_events.timestamp DESC, stage_events.id DESC")
}

func (r *stageEventRepo) LatestForProduct(tx *gorm.DB, productID uuid.UUID) (*LocatedEvent, error) {
	var le LocatedEvent
	err := r.latestQuery(tx, productID).Limit(1).Take(&le).Error
	if err != nil {
		return nil, err
	}
	return &le, nil
}

// LatestPresenceForProduct returns the newest PENDING/STARTED/FAILED event;
// those are the only statuses that mean "the unit is situated here".
func (r *stageEventRepo) LatestPresenceForProduct(tx *gorm.DB, productID uuid.UUID) (*LocatedEvent, error) {
	var le LocatedEvent
	err := r.latestQuery(tx, productID).
		Where("stage_events.status IN ?", []model.EventStatus{model.EventPending, model.EventStarted, model.EventFailed}).
		Limit(1).Take(&le).Error
	if err != nil {
		return nil, err
	}
	return &le, nil
}

func (r *stageEventRepo) LatestAtStage(tx *gorm.DB, productID, stageID uuid.UUID) (*LocatedEvent, error) {
	var le LocatedEvent
	err := r.latestQuery(tx, productID).
		Where("product_stage_links.production_stage_id = ?", stageID).
		Limit(1).Take(&le).Error
	if err != nil {
		return nil, err
	}
	return &le, nil
}

func (r *stageEventRepo) LatestFailedForProduct(tx *gorm.DB, productID uuid.UUID) (*LocatedEvent, error) {
	var le LocatedEvent
	err := r.latestQuery(tx, productID).
		Where("stage_events.status = ?", model.EventFailed).
		Limit(1).Take(&le).Error
	if err != nil {
		return nil, err
	}
	return &le, nil
}

func (r *stageEventRepo) LatestStartedForLink(tx *gorm.DB, linkID uuid.UUID) (*model.StageEvent, error) {
	if tx == nil {
		tx = r.db
	}
	var event model.StageEvent
	err := tx.Where("product_stage_link_id = ? AND status = ?", linkID, model.EventStarted).
		Order("timestamp DESC, id DESC").
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *stageEventRepo) HistoryForProduct(productID uuid.UUID) ([]model.StageEvent, error) {
	var events []model.StageEvent
	err := r.db.
		Joins("JOIN product_stage_links ON product_stage_links.id = stage_events.product_stage_link_id").
		Where("product_stage_links.product_id = ?", productID).
		Preload("Link.ProductionStage").
		Preload("User").
		Order("stage_events.timestamp ASC, stage_events.id ASC").
		Find(&events).Error
	return events, err
}

func (r *stageEventRepo) FindAll() ([]model.StageEvent, error) {
	var events []model.StageEvent
	err := r.db.Order("timestamp ASC, id ASC").Find(&events).Error
	return events, err
}

// PendingProductIDsAtStage lists products of a job whose latest event overall
// is PENDING at the given stage - the queue a workstation shows.
func (r *stageEventRepo) PendingProductIDsAtStage(jobID, stageID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	// Latest event per product, then keep the ones pending at this stage.
	err := r.db.Raw(`
		SELECT p.id
		FROM products p
		JOIN product_stage_links psl ON psl.product_id = p.id
		JOIN stage_events se ON se.product_stage_link_id = psl.id
		WHERE p.job_id = ?
		  AND psl.production_stage_id = ?
		  AND se.status = 'PENDING'
		  AND NOT EXISTS (
			SELECT 1
			FROM stage_events se2
			JOIN product_stage_links psl2 ON psl2.id = se2.product_stage_link_id
			WHERE psl2.product_id = p.id
			  AND (se2.timestamp > se.timestamp
			       OR (se2.timestamp = se.timestamp AND se2.id > se.id))
		  )`, jobID, stageID).Scan(&ids).Error
	return ids, err
}
