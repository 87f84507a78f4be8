package model

import "github.com/google/uuid"

// ProductType is the catalog entry a job is built against.
type ProductType struct {
	BaseModel
	TypeName   string `gorm:"type:varchar(255);not null" json:"type_name" validate:"required"`
	PartNumber string `gorm:"type:varchar(100);uniqueIndex;not null" json:"part_number" validate:"required"`

	// Ordered workflow for this type
	Stages []ProductionStage `gorm:"foreignKey:ProductTypeID" json:"stages,omitempty"`
}

// ProductionStage is one step in a product type's fixed linear sequence.
// SequenceOrder is unique within a type and defines the only legal forward path.
type ProductionStage struct {
	BaseModel
	ProductTypeID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_type_seq" json:"product_type_id" validate:"uuid_required"`
	StageName       string    `gorm:"type:varchar(255);not null" json:"stage_name" validate:"required"`
	Description     string    `gorm:"type:text" json:"description"`
	SequenceOrder   int       `gorm:"not null;uniqueIndex:idx_type_seq" json:"sequence_order" validate:"required,gte=1"`
	InstructionFile string    `gorm:"type:varchar(512)" json:"instruction_file,omitempty"`
}

func (ProductionStage) TableName() string {
	return "production_stages"
}
