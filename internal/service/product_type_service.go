package service

import (
	"errors"
	"fmt"

	"go-production-ws/internal/model"
	"go-production-ws/internal/repository"
	"go-production-ws/pkg/validator"

	"github.com/google/uuid"
)

var ErrPartNumberExists = errors.New("part number already exists")

type StageRequest struct {
	StageName       string `json:"stage_name" validate:"required"`
	Description     string `json:"description"`
	SequenceOrder   int    `json:"sequence_order" validate:"required,gte=1"`
	InstructionFile string `json:"instruction_file"`
}

type CreateProductTypeRequest struct {
	TypeName   string         `json:"type_name" validate:"required"`
	PartNumber string         `json:"part_number" validate:"required"`
	Stages     []StageRequest `json:"stages" validate:"required,min=1,dive"`
}

type UpdateStageRequest struct {
	StageName       string `json:"stage_name" validate:"required"`
	Description     string `json:"description"`
	InstructionFile string `json:"instruction_file"`
}

// ProductTypeService manages the stage catalog. Once any job of a type has
// completed, the catalog is frozen: historical travelers must keep pointing at
// the stages they actually went through.
type ProductTypeService interface {
	CreateProductType(req *CreateProductTypeRequest, creatorID string) (*model.ProductType, error)
	GetAllProductTypes() ([]model.ProductType, error)
	GetProductType(id uuid.UUID) (*model.ProductType, error)
	UpdateStage(stageID uuid.UUID, req *UpdateStageRequest, updaterID string) (*model.ProductionStage, error)
	DeleteStage(stageID uuid.UUID) error
}

type productTypeService struct {
	typeRepo repository.ProductTypeRepository
}

func NewProductTypeService(typeRepo repository.ProductTypeRepository) ProductTypeService {
	return &productTypeService{typeRepo: typeRepo}
}

func (s *productTypeService) CreateProductType(req *CreateProductTypeRequest, creatorID string) (*model.ProductType, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	if existing, _ := s.typeRepo.FindByPartNumber(req.PartNumber); existing != nil && existing.ID != uuid.Nil {
		return nil, ErrPartNumberExists
	}

	// Sequence orders must form a strict 1..N ladder.
	seen := map[int]bool{}
	for _, stage := range req.Stages {
		if seen[stage.SequenceOrder] {
			return nil, fmt.Errorf("duplicate sequence_order %d", stage.SequenceOrder)
		}
		seen[stage.SequenceOrder] = true
	}
	for order := 1; order <= len(req.Stages); order++ {
		if !seen[order] {
			return nil, fmt.Errorf("sequence_order values must cover 1..%d without gaps", len(req.Stages))
		}
	}

	pt := &model.ProductType{
		TypeName:   req.TypeName,
		PartNumber: req.PartNumber,
	}
	pt.CreatedBy = creatorID
	pt.UpdatedBy = creatorID
	for _, stage := range req.Stages {
		ps := model.ProductionStage{
			StageName:       stage.StageName,
			Description:     stage.Description,
			SequenceOrder:   stage.SequenceOrder,
			InstructionFile: stage.InstructionFile,
		}
		ps.CreatedBy = creatorID
		ps.UpdatedBy = creatorID
		pt.Stages = append(pt.Stages, ps)
	}

	if err := s.typeRepo.Create(pt); err != nil {
		return nil, classify(err)
	}
	return pt, nil
}

func (s *productTypeService) GetAllProductTypes() ([]model.ProductType, error) {
	return s.typeRepo.FindAll()
}

func (s *productTypeService) GetProductType(id uuid.UUID) (*model.ProductType, error) {
	pt, err := s.typeRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: product type %s", ErrNotFound, id)
	}
	return pt, nil
}

func (s *productTypeService) UpdateStage(stageID uuid.UUID, req *UpdateStageRequest, updaterID string) (*model.ProductionStage, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	stage, err := s.typeRepo.FindStageByID(nil, stageID)
	if err != nil {
		return nil, fmt.Errorf("%w: stage %s", ErrNotFound, stageID)
	}

	if err := s.ensureMutable(stage.ProductTypeID); err != nil {
		return nil, err
	}

	stage.StageName = req.StageName
	stage.Description = req.Description
	stage.InstructionFile = req.InstructionFile
	stage.UpdatedBy = updaterID

	if err := s.typeRepo.SaveStage(stage); err != nil {
		return nil, classify(err)
	}
	return stage, nil
}

func (s *productTypeService) DeleteStage(stageID uuid.UUID) error {
	stage, err := s.typeRepo.FindStageByID(nil, stageID)
	if err != nil {
		return fmt.Errorf("%w: stage %s", ErrNotFound, stageID)
	}
	if err := s.ensureMutable(stage.ProductTypeID); err != nil {
		return err
	}
	return classify(s.typeRepo.DeleteStage(stageID))
}

func (s *productTypeService) ensureMutable(typeID uuid.UUID) error {
	frozen, err := s.typeRepo.HasCompletedJobs(typeID)
	if err != nil {
		return classify(err)
	}
	if frozen {
		return fmt.Errorf("%w: a job of this type has already completed", ErrCatalogFrozen)
	}
	return nil
}
