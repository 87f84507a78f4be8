package repository

import (
	"go-production-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(tx *gorm.DB, product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	FindBySerial(serial string) (*model.Product, error)
	ProductsForJob(tx *gorm.DB, jobID uuid.UUID) ([]model.Product, error)
	UpdateState(tx *gorm.DB, id uuid.UUID, status model.ProductStatus, workerID *uuid.UUID) error

	CreateLinks(tx *gorm.DB, links []model.ProductStageLink) error
	LinkFor(tx *gorm.DB, productID, stageID uuid.UUID) (*model.ProductStageLink, error)
	LinksForProduct(tx *gorm.DB, productID uuid.UUID) ([]model.ProductStageLink, error)
	AllLinks() ([]model.ProductStageLink, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(product).Error
}

func (r *productRepo) FindAll() ([]model.Product, error) {
	var products []model.Product
	err := r.db.Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	if tx == nil {
		tx = r.db
	}
	var product model.Product
	err := tx.First(&product, "id = ?", id).Error
	return &product, err
}

// FindForUpdate locks the product row for the duration of the transaction.
// This is what serializes two concurrent operations on the same unit.
func (r *productRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := LockForUpdate(tx).First(&product, "id = ?", id).Error
	return &product, err
}

func (r *productRepo) FindBySerial(serial string) (*model.Product, error) {
	var product model.Product
	err := r.db.First(&product, "serial_number = ?", serial).Error
	return &product, err
}

func (r *productRepo) ProductsForJob(tx *gorm.DB, jobID uuid.UUID) ([]model.Product, error) {
	if tx == nil {
		tx = r.db
	}
	var products []model.Product
	err := tx.Where("job_id = ?", jobID).Order("serial_number ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) UpdateState(tx *gorm.DB, id uuid.UUID, status model.ProductStatus, workerID *uuid.UUID) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            status,
			"current_worker_id": workerID,
		}).Error
}

func (r *productRepo) CreateLinks(tx *gorm.DB, links []model.ProductStageLink) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(&links).Error
}

func (r *productRepo) LinkFor(tx *gorm.DB, productID, stageID uuid.UUID) (*model.ProductStageLink, error) {
	if tx == nil {
		tx = r.db
	}
	var link model.ProductStageLink
	err := tx.First(&link, "product_id = ? AND production_stage_id = ?", productID, stageID).Error
	return &link, err
}

func (r *productRepo) LinksForProduct(tx *gorm.DB, productID uuid.UUID) ([]model.ProductStageLink, error) {
	if tx == nil {
		tx = r.db
	}
	var links []model.ProductStageLink
	err := tx.Where("product_id = ?", productID).Find(&links).Error
	return links, err
}

func (r *productRepo) AllLinks() ([]model.ProductStageLink, error) {
	var links []model.ProductStageLink
	err := r.db.Find(&links).Error
	return links, err
}
