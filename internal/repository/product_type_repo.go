package repository

import (
	"go-production-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductTypeRepository interface {
	Create(pt *model.ProductType) error
	FindAll() ([]model.ProductType, error)
	FindByID(id uuid.UUID) (*model.ProductType, error)
	FindByPartNumber(partNumber string) (*model.ProductType, error)
	StagesForType(tx *gorm.DB, typeID uuid.UUID) ([]model.ProductionStage, error)
	FindStageByID(tx *gorm.DB, stageID uuid.UUID) (*model.ProductionStage, error)
	SaveStage(stage *model.ProductionStage) error
	DeleteStage(stageID uuid.UUID) error
	HasCompletedJobs(typeID uuid.UUID) (bool, error)
}

type productTypeRepo struct {
	db *gorm.DB
}

func NewProductTypeRepo(db *gorm.DB) ProductTypeRepository {
	return &productTypeRepo{db}
}

func (r *productTypeRepo) Create(pt *model.ProductType) error {
	return r.db.Create(pt).Error
}

func (r *productTypeRepo) FindAll() ([]model.ProductType, error) {
	var types []model.ProductType
	err := r.db.Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).Find(&types).Error
	return types, err
}

func (r *productTypeRepo) FindByID(id uuid.UUID) (*model.ProductType, error) {
	var pt model.ProductType
	err := r.db.Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).First(&pt, "id = ?", id).Error
	return &pt, err
}

func (r *productTypeRepo) FindByPartNumber(partNumber string) (*model.ProductType, error) {
	var pt model.ProductType
	err := r.db.First(&pt, "part_number = ?", partNumber).Error
	return &pt, err
}

// StagesForType returns the ordered workflow. Pass a tx to read inside a
// transaction; the sequence order is the only legal forward path.
func (r *productTypeRepo) StagesForType(tx *gorm.DB, typeID uuid.UUID) ([]model.ProductionStage, error) {
	if tx == nil {
		tx = r.db
	}
	var stages []model.ProductionStage
	err := tx.Where("product_type_id = ?", typeID).Order("sequence_order ASC").Find(&stages).Error
	return stages, err
}

func (r *productTypeRepo) FindStageByID(tx *gorm.DB, stageID uuid.UUID) (*model.ProductionStage, error) {
	if tx == nil {
		tx = r.db
	}
	var stage model.ProductionStage
	err := tx.First(&stage, "id = ?", stageID).Error
	return &stage, err
}

func (r *productTypeRepo) SaveStage(stage *model.ProductionStage) error {
	return r.db.Save(stage).Error
}

func (r *productTypeRepo) DeleteStage(stageID uuid.UUID) error {
	return r.db.Delete(&model.ProductionStage{}, "id = ?", stageID).Error
}

// HasCompletedJobs reports whether any job of this type has reached a terminal
// state, which freezes the stage catalog for traceability.
func (r *productTypeRepo) HasCompletedJobs(typeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.Job{}).
		Where("product_type_id = ? AND status = ?", typeID, model.JobCompleted).
		Count(&count).Error
	return count > 0, err
}
