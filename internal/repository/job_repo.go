package repository

import (
	"go-production-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobRepository interface {
	Create(tx *gorm.DB, job *model.Job) error
	FindAll() ([]model.Job, error)
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Job, error)
	FindByDocket(docket string) (*model.Job, error)
	UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.JobStatus) error

	CreateStageStatuses(tx *gorm.DB, statuses []model.JobStageStatus) error
	StageStatus(tx *gorm.DB, jobID, stageID uuid.UUID) (*model.JobStageStatus, error)
	StageStatusesForJob(jobID uuid.UUID) ([]model.JobStageStatus, error)
	SaveStageStatus(tx *gorm.DB, status *model.JobStageStatus) error

	CreateAssignment(a *model.JobAssignment) error
	DeleteAssignment(jobID, stageID, userID uuid.UUID) error
	AssignmentsForJob(jobID uuid.UUID) ([]model.JobAssignment, error)
	AllAssignments() ([]model.JobAssignment, error)
	HasAssignment(tx *gorm.DB, jobID, stageID, userID uuid.UUID) (bool, error)
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db}
}

func (r *jobRepo) Create(tx *gorm.DB, job *model.Job) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(job).Error
}

func (r *jobRepo) FindAll() ([]model.Job, error) {
	var jobs []model.Job
	err := r.db.Preload("ProductType").Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// FindByID locks the job row when called inside a transaction so concurrent
// completion checks serialize per job.
func (r *jobRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	if tx == nil {
		err := r.db.Preload("ProductType").First(&job, "id = ?", id).Error
		return &job, err
	}
	err := LockForUpdate(tx).First(&job, "id = ?", id).Error
	return &job, err
}

func (r *jobRepo) FindByDocket(docket string) (*model.Job, error) {
	var job model.Job
	err := r.db.Preload("ProductType").First(&job, "docket_number = ?", docket).Error
	return &job, err
}

func (r *jobRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.JobStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Model(&model.Job{}).Where("id = ?", id).Update("status", status).Error
}

func (r *jobRepo) CreateStageStatuses(tx *gorm.DB, statuses []model.JobStageStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(&statuses).Error
}

func (r *jobRepo) StageStatus(tx *gorm.DB, jobID, stageID uuid.UUID) (*model.JobStageStatus, error) {
	if tx == nil {
		tx = r.db
	}
	var status model.JobStageStatus
	err := LockForUpdate(tx).
		First(&status, "job_id = ? AND production_stage_id = ?", jobID, stageID).Error
	return &status, err
}

func (r *jobRepo) StageStatusesForJob(jobID uuid.UUID) ([]model.JobStageStatus, error) {
	var statuses []model.JobStageStatus
	err := r.db.Where("job_id = ?", jobID).Find(&statuses).Error
	return statuses, err
}

func (r *jobRepo) SaveStageStatus(tx *gorm.DB, status *model.JobStageStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Save(status).Error
}

func (r *jobRepo) CreateAssignment(a *model.JobAssignment) error {
	return r.db.Create(a).Error
}

func (r *jobRepo) DeleteAssignment(jobID, stageID, userID uuid.UUID) error {
	return r.db.
		Where("job_id = ? AND production_stage_id = ? AND user_id = ?", jobID, stageID, userID).
		Delete(&model.JobAssignment{}).Error
}

func (r *jobRepo) AssignmentsForJob(jobID uuid.UUID) ([]model.JobAssignment, error) {
	var assignments []model.JobAssignment
	err := r.db.Where("job_id = ?", jobID).Find(&assignments).Error
	return assignments, err
}

func (r *jobRepo) AllAssignments() ([]model.JobAssignment, error) {
	var assignments []model.JobAssignment
	err := r.db.Find(&assignments).Error
	return assignments, err
}

func (r *jobRepo) HasAssignment(tx *gorm.DB, jobID, stageID, userID uuid.UUID) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.Model(&model.JobAssignment{}).
		Where("job_id = ? AND production_stage_id = ? AND user_id = ?", jobID, stageID, userID).
		Count(&count).Error
	return count > 0, err
}
