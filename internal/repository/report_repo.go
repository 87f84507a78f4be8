package repository

import (
	"database/sql"
	"time"

	"go-production-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobCompletionRow summarizes one completed job for the completion report.
type JobCompletionRow struct {
	JobID           uuid.UUID  `json:"job_id"`
	DocketNumber    string     `json:"docket_number"`
	ProductTypeName string     `json:"product_type_name"`
	Quantity        int        `json:"quantity"`
	DueDate         time.Time  `json:"due_date"`
	FirstEvent      *time.Time `json:"first_event"`
	LastEvent       *time.Time `json:"last_event"`
	TotalFailed     int        `json:"total_failed"`
	TotalScrapped   int        `json:"total_scrapped"`
}

// FailureRow is one FAILED event with its full floor context.
type FailureRow struct {
	EventID         uint64    `json:"event_id"`
	Timestamp       time.Time `json:"timestamp"`
	Notes           string    `json:"notes"`
	SerialNumber    string    `json:"serial_number"`
	DocketNumber    string    `json:"docket_number"`
	ProductTypeName string    `json:"product_type_name"`
	StageName       string    `json:"stage_name"`
	UserName        string    `json:"user_name"`
}

// TechnicianRow aggregates one user's pass/fail record at one stage.
type TechnicianRow struct {
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name"`
	StageID     uuid.UUID `json:"stage_id"`
	StageName   string    `json:"stage_name"`
	PassedCount int       `json:"passed_count"`
	FailedCount int       `json:"failed_count"`
	AvgSeconds  *float64  `json:"avg_seconds"`
}

// FloorStats is the dashboard overview.
type FloorStats struct {
	OpenJobs         int64 `json:"open_jobs"`
	CompletedJobs    int64 `json:"completed_jobs"`
	ProductsInFlight int64 `json:"products_in_flight"`
	FailedProducts   int64 `json:"failed_products"`
	ScrappedProducts int64 `json:"scrapped_products"`
}

type ReportRepository interface {
	JobCompletion(startDate, endDate *time.Time) ([]JobCompletionRow, error)
	FailureAnalysis(startDate, endDate *time.Time) ([]FailureRow, error)
	TechnicianPerformance(startDate, endDate *time.Time, userID *uuid.UUID) ([]TechnicianRow, error)
	FloorStats() (*FloorStats, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) JobCompletion(startDate, endDate *time.Time) ([]JobCompletionRow, error) {
	query := r.db.Table("jobs").
		Select(`jobs.id AS job_id,
			jobs.docket_number,
			product_types.type_name AS product_type_name,
			jobs.quantity,
			jobs.due_date,
			MIN(stage_events.timestamp) AS first_event,
			MAX(stage_events.timestamp) AS last_event,
			COALESCE((SELECT SUM(failed_count) FROM job_stage_statuses WHERE job_stage_statuses.job_id = jobs.id), 0) AS total_failed,
			COALESCE((SELECT SUM(scrapped_count) FROM job_stage_statuses WHERE job_stage_statuses.job_id = jobs.id), 0) AS total_scrapped`).
		Joins("JOIN product_types ON product_types.id = jobs.product_type_id").
		Joins("LEFT JOIN products ON products.job_id = jobs.id").
		Joins("LEFT JOIN product_stage_links ON product_stage_links.product_id = products.id").
		Joins("LEFT JOIN stage_events ON stage_events.product_stage_link_id = product_stage_links.id").
		Where("jobs.status = ?", model.JobCompleted).
		Group("jobs.id, jobs.docket_number, product_types.type_name, jobs.quantity, jobs.due_date")

	if startDate != nil {
		query = query.Where("stage_events.timestamp >= ?", *startDate)
	}
	if endDate != nil {
		query = query.Where("stage_events.timestamp <= ?", *endDate)
	}

	// MIN/MAX over a timestamp column comes back as text on sqlite (the
	// aggregate loses the column's declared type), so scan to string and
	// parse instead of scanning *time.Time directly.
	var raw []jobCompletionScan
	if err := query.Scan(&raw).Error; err != nil {
		return nil, err
	}

	rows := make([]JobCompletionRow, 0, len(raw))
	for _, rec := range raw {
		rows = append(rows, JobCompletionRow{
			JobID:           rec.JobID,
			DocketNumber:    rec.DocketNumber,
			ProductTypeName: rec.ProductTypeName,
			Quantity:        rec.Quantity,
			DueDate:         rec.DueDate,
			FirstEvent:      parseEventTime(rec.FirstEvent),
			LastEvent:       parseEventTime(rec.LastEvent),
			TotalFailed:     rec.TotalFailed,
			TotalScrapped:   rec.TotalScrapped,
		})
	}
	return rows, nil
}

type jobCompletionScan struct {
	JobID           uuid.UUID
	DocketNumber    string
	ProductTypeName string
	Quantity        int
	DueDate         time.Time
	FirstEvent      sql.NullString
	LastEvent       sql.NullString
	TotalFailed     int
	TotalScrapped   int
}

// eventTimeLayouts covers the shapes the aggregates arrive in: database/sql
// renders postgres timestamps as RFC 3339, sqlite stores gorm's text format.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
}

func parseEventTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	for _, layout := range eventTimeLayouts {
		if ts, err := time.Parse(layout, raw.String); err == nil {
			return &ts
		}
	}
	return nil
}

func (r *reportRepo) FailureAnalysis(startDate, endDate *time.Time) ([]FailureRow, error) {
	query := r.db.Table("stage_events").
		Select(`stage_events.id AS event_id,
			stage_events.timestamp,
			stage_events.notes,
			products.serial_number,
			jobs.docket_number,
			product_types.type_name AS product_type_name,
			production_stages.stage_name,
			users.full_name AS user_name`).
		Joins("JOIN product_stage_links ON product_stage_links.id = stage_events.product_stage_link_id").
		Joins("JOIN products ON products.id = product_stage_links.product_id").
		Joins("JOIN jobs ON jobs.id = products.job_id").
		Joins("JOIN product_types ON product_types.id = jobs.product_type_id").
		Joins("JOIN production_stages ON production_stages.id = product_stage_links.production_stage_id").
		Joins("LEFT JOIN users ON users.id = stage_events.user_id").
		Where("stage_events.status = ?", model.EventFailed).
		Order("stage_events.timestamp DESC, stage_events.id DESC")

	if startDate != nil {
		query = query.Where("stage_events.timestamp >= ?", *startDate)
	}
	if endDate != nil {
		query = query.Where("stage_events.timestamp <= ?", *endDate)
	}

	var rows []FailureRow
	err := query.Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) TechnicianPerformance(startDate, endDate *time.Time, userID *uuid.UUID) ([]TechnicianRow, error) {
	// duration_seconds is stamped on PASSED/FAILED events at transition time,
	// so no self-join against STARTED rows is needed here.
	query := r.db.Table("stage_events").
		Select(`users.id AS user_id,
			users.full_name AS user_name,
			production_stages.id AS stage_id,
			production_stages.stage_name,
			COALESCE(SUM(CASE WHEN stage_events.status = 'PASSED' THEN 1 ELSE 0 END), 0) AS passed_count,
			COALESCE(SUM(CASE WHEN stage_events.status = 'FAILED' THEN 1 ELSE 0 END), 0) AS failed_count,
			AVG(stage_events.duration_seconds) AS avg_seconds`).
		Joins("JOIN product_stage_links ON product_stage_links.id = stage_events.product_stage_link_id").
		Joins("JOIN production_stages ON production_stages.id = product_stage_links.production_stage_id").
		Joins("JOIN users ON users.id = stage_events.user_id").
		Where("stage_events.status IN ?", []model.EventStatus{model.EventPassed, model.EventFailed}).
		Group("users.id, users.full_name, production_stages.id, production_stages.stage_name")

	if startDate != nil {
		query = query.Where("stage_events.timestamp >= ?", *startDate)
	}
	if endDate != nil {
		query = query.Where("stage_events.timestamp <= ?", *endDate)
	}
	if userID != nil {
		query = query.Where("users.id = ?", *userID)
	}

	var rows []TechnicianRow
	err := query.Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) FloorStats() (*FloorStats, error) {
	var stats FloorStats

	r.db.Model(&model.Job{}).Where("status = ?", model.JobOpen).Count(&stats.OpenJobs)
	r.db.Model(&model.Job{}).Where("status = ?", model.JobCompleted).Count(&stats.CompletedJobs)
	r.db.Model(&model.Product{}).
		Where("status IN ?", []model.ProductStatus{model.ProductPending, model.ProductInProgress}).
		Count(&stats.ProductsInFlight)
	r.db.Model(&model.Product{}).Where("status = ?", model.ProductFailed).Count(&stats.FailedProducts)
	r.db.Model(&model.Product{}).Where("status = ?", model.ProductScrapped).Count(&stats.ScrappedProducts)

	return &stats, nil
}
