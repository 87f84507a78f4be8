package model

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobOpen      JobStatus = "Open"
	JobCompleted JobStatus = "Completed"
)

// Job priority levels: 1=High, 2=Medium, 3=Normal
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityNormal = 3
)

// Job is a production order for Quantity units of one product type.
// Status is derived: Completed exactly when every product is Completed or Scrapped.
type Job struct {
	BaseModel
	DocketNumber  string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"docket_number" validate:"required"`
	ProductTypeID uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_type_id" validate:"uuid_required"`
	ProductType   *ProductType `gorm:"foreignKey:ProductTypeID" json:"product_type,omitempty"`
	Quantity      int          `gorm:"not null" json:"quantity" validate:"required,gt=0"`
	Priority      int          `gorm:"not null;default:3" json:"priority" validate:"required,oneof=1 2 3"`
	DueDate       time.Time    `gorm:"type:date;not null" json:"due_date" validate:"required"`
	Status        JobStatus    `gorm:"type:varchar(20);not null;default:'Open'" json:"status"`

	Products []Product `gorm:"foreignKey:JobID" json:"products,omitempty"`
}

// JobAssignment grants a user the right to act on a job at one stage.
// Managers and admins bypass grants entirely.
type JobAssignment struct {
	BaseModel
	JobID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_job_stage_user" json:"job_id" validate:"uuid_required"`
	ProductionStageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_job_stage_user" json:"production_stage_id" validate:"uuid_required"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_job_stage_user;index" json:"user_id" validate:"uuid_required"`
}

func (JobAssignment) TableName() string {
	return "job_assignments"
}

type StageProgress string

const (
	StagePending    StageProgress = "Pending"
	StageInProgress StageProgress = "In Progress"
	StageCompleted  StageProgress = "Completed"
)

// JobStageStatus is the denormalized per-(job, stage) counter row. It is created at
// job creation and mutated only by the workstation service, inside the same
// transaction as the event append it reflects.
type JobStageStatus struct {
	BaseModel
	JobID             uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_job_stage" json:"job_id"`
	ProductionStageID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_job_stage" json:"production_stage_id"`
	Status            StageProgress `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	PassedCount       int           `gorm:"not null;default:0" json:"passed_count"`
	FailedCount       int           `gorm:"not null;default:0" json:"failed_count"`
	ScrappedCount     int           `gorm:"not null;default:0" json:"scrapped_count"`
}

func (JobStageStatus) TableName() string {
	return "job_stage_statuses"
}

// Exhausted reports whether every unit has left this stage or been scrapped at it.
func (s *JobStageStatus) Exhausted(quantity int) bool {
	return s.PassedCount+s.ScrappedCount >= quantity
}
