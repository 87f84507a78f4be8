package model

import "github.com/google/uuid"

type ProductStatus string

const (
	ProductPending    ProductStatus = "Pending"
	ProductInProgress ProductStatus = "In Progress"
	ProductCompleted  ProductStatus = "Completed"
	ProductScrapped   ProductStatus = "Scrapped"
	ProductFailed     ProductStatus = "Failed"
)

// Terminal reports whether no further events are possible for this status.
func (s ProductStatus) Terminal() bool {
	return s == ProductCompleted || s == ProductScrapped
}

// Product is one physical unit of a job. Status is a cache of the latest
// meaningful transition; the event log is authoritative and the two must agree.
type Product struct {
	BaseModel
	JobID        uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_job_serial;index" json:"job_id" validate:"uuid_required"`
	SerialNumber string        `gorm:"type:varchar(100);not null;uniqueIndex:idx_job_serial" json:"serial_number" validate:"required"`
	Status       ProductStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`

	CurrentWorkerID *uuid.UUID `gorm:"type:uuid" json:"current_worker_id,omitempty"`
	CurrentWorker   *User      `gorm:"foreignKey:CurrentWorkerID" json:"current_worker,omitempty"`

	Links []ProductStageLink `gorm:"foreignKey:ProductID" json:"links,omitempty"`
}

// ProductStageLink binds a product to one of its applicable stages. Events always
// reference a link, never a (product, stage) pair directly, so per-stage history
// is a plain filter. Links are created for all stages at product-creation time
// and never change.
type ProductStageLink struct {
	BaseModel
	ProductID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_product_stage" json:"product_id"`
	ProductionStageID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_product_stage" json:"production_stage_id"`
	ProductionStage   *ProductionStage `gorm:"foreignKey:ProductionStageID" json:"production_stage,omitempty"`
}

func (ProductStageLink) TableName() string {
	return "product_stage_links"
}
