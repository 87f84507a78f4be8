package service

import (
	"time"

	"go-production-ws/internal/repository"

	"github.com/google/uuid"
)

// JobCompletionEntry adds the derived columns callers chart: total duration in
// days and whether the job landed before its due date.
type JobCompletionEntry struct {
	repository.JobCompletionRow
	DurationDays *float64 `json:"duration_days"`
	OnTime       *bool    `json:"on_time"`
}

type TechnicianEntry struct {
	repository.TechnicianRow
	TotalOperations int      `json:"total_operations"`
	QualityRate     float64  `json:"quality_rate"` // percent of operations passed
	AvgMinutes      *float64 `json:"avg_minutes"`
}

type ReportService interface {
	JobCompletion(startDate, endDate *time.Time) ([]JobCompletionEntry, error)
	FailureAnalysis(startDate, endDate *time.Time) ([]repository.FailureRow, error)
	TechnicianPerformance(startDate, endDate *time.Time, userID *uuid.UUID) ([]TechnicianEntry, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
}

func NewReportService(reportRepo repository.ReportRepository) ReportService {
	return &reportService{reportRepo: reportRepo}
}

func (s *reportService) JobCompletion(startDate, endDate *time.Time) ([]JobCompletionEntry, error) {
	rows, err := s.reportRepo.JobCompletion(startDate, endDate)
	if err != nil {
		return nil, classify(err)
	}

	entries := make([]JobCompletionEntry, 0, len(rows))
	for _, row := range rows {
		entry := JobCompletionEntry{JobCompletionRow: row}
		if row.FirstEvent != nil && row.LastEvent != nil {
			days := row.LastEvent.Sub(*row.FirstEvent).Hours() / 24
			entry.DurationDays = &days
		}
		if row.LastEvent != nil && !row.DueDate.IsZero() {
			onTime := !row.LastEvent.After(row.DueDate.Add(24 * time.Hour))
			entry.OnTime = &onTime
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *reportService) FailureAnalysis(startDate, endDate *time.Time) ([]repository.FailureRow, error) {
	rows, err := s.reportRepo.FailureAnalysis(startDate, endDate)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (s *reportService) TechnicianPerformance(startDate, endDate *time.Time, userID *uuid.UUID) ([]TechnicianEntry, error) {
	rows, err := s.reportRepo.TechnicianPerformance(startDate, endDate, userID)
	if err != nil {
		return nil, classify(err)
	}

	entries := make([]TechnicianEntry, 0, len(rows))
	for _, row := range rows {
		entry := TechnicianEntry{TechnicianRow: row}
		entry.TotalOperations = row.PassedCount + row.FailedCount
		if entry.TotalOperations > 0 {
			entry.QualityRate = float64(row.PassedCount) / float64(entry.TotalOperations) * 100
		}
		if row.AvgSeconds != nil {
			minutes := *row.AvgSeconds / 60
			entry.AvgMinutes = &minutes
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
