package service

import (
	"testing"
	"time"

	"go-production-ws/internal/model"
	"go-production-ws/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportEnv(t *testing.T) (*testEnv, ReportService, DashboardService) {
	env := newTestEnv(t)
	reportRepo := repository.NewReportRepo(env.db)
	userRepo := repository.NewUserRepo(env.db)
	reports := NewReportService(reportRepo)
	dash := NewDashboardService(reportRepo, env.jobRepo, env.productRepo, env.typeRepo, env.eventRepo, userRepo)
	return env, reports, dash
}

func TestJobCompletionReport(t *testing.T) {
	env, reports, _ := newReportEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 1)
	env.runThrough(t, products[0].ID, pt.Stages, env.admin)

	entries, err := reports.JobCompletion(nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, job.DocketNumber, entry.DocketNumber)
	assert.Equal(t, 1, entry.Quantity)
	assert.Equal(t, 0, entry.TotalFailed)
	assert.Equal(t, 0, entry.TotalScrapped)
	require.NotNil(t, entry.FirstEvent)
	require.NotNil(t, entry.LastEvent)
	assert.False(t, entry.LastEvent.Before(*entry.FirstEvent))
	assert.WithinDuration(t, time.Now(), *entry.LastEvent, time.Minute)
	require.NotNil(t, entry.DurationDays)
	require.NotNil(t, entry.OnTime)
	assert.True(t, *entry.OnTime) // due 2030, finished today

	// Open jobs stay out of the report.
	env.createJob(t, pt, 1)
	entries, err = reports.JobCompletion(nil, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFailureAnalysisReport(t *testing.T) {
	env, reports, _ := newReportEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	_, products := env.createJob(t, pt, 1)
	unit := products[0]

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	notes := model.FailureNotes{Reasons: []string{"cracked housing"}, Detail: "left corner"}
	require.NoError(t, env.work.Fail(unit.ID, pt.Stages[0].ID, env.admin, notes))

	rows, err := reports.FailureAnalysis(nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, unit.SerialNumber, rows[0].SerialNumber)
	assert.Equal(t, "Assembly", rows[0].StageName)
	decoded := model.DecodeFailureNotes(rows[0].Notes)
	assert.Equal(t, []string{"cracked housing"}, decoded.Reasons)
}

func TestTechnicianPerformanceReport(t *testing.T) {
	env, reports, _ := newReportEnv(t)
	pt := env.createType(t, "Assembly")
	_, products := env.createJob(t, pt, 2)

	// The report joins on users, so the operator must be a real row.
	user := &model.User{Email: "tech@example.com", FullName: "Test Operator", IsActive: true, Password: "x"}
	require.NoError(t, env.db.Create(user).Error)
	operator := Actor{ID: user.ID, RoleCode: model.RoleAdmin}

	// One pass and one fail by the same operator at the same stage.
	require.NoError(t, env.work.Start([]uuid.UUID{products[0].ID}, pt.Stages[0].ID, operator))
	require.NoError(t, env.work.Pass([]uuid.UUID{products[0].ID}, pt.Stages[0].ID, operator))
	require.NoError(t, env.work.Start([]uuid.UUID{products[1].ID}, pt.Stages[0].ID, operator))
	require.NoError(t, env.work.Fail(products[1].ID, pt.Stages[0].ID, operator, model.FailureNotes{Reasons: []string{"dent"}}))

	entries, err := reports.TechnicianPerformance(nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, 1, entry.PassedCount)
	assert.Equal(t, 1, entry.FailedCount)
	assert.Equal(t, 2, entry.TotalOperations)
	assert.InDelta(t, 50.0, entry.QualityRate, 0.001)
	require.NotNil(t, entry.AvgMinutes)

	// Filter by a different user: empty.
	other := uuid.New()
	entries, err = reports.TechnicianPerformance(nil, nil, &other)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFloorStatsAndAppData(t *testing.T) {
	env, _, dash := newReportEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	_, products := env.createJob(t, pt, 3)

	require.NoError(t, env.work.Start([]uuid.UUID{products[0].ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Scrap(products[1].ID, env.admin, "write-off"))

	stats, err := dash.GetFloorStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.OpenJobs)
	assert.Equal(t, int64(0), stats.CompletedJobs)
	assert.Equal(t, int64(2), stats.ProductsInFlight) // one In Progress, one Pending
	assert.Equal(t, int64(1), stats.ScrappedProducts)

	data, err := dash.GetAppData()
	require.NoError(t, err)
	assert.Len(t, data.Jobs, 1)
	assert.Len(t, data.ProductTypes, 1)
	assert.Len(t, data.ProductionStages, 2)
	assert.Len(t, data.Products, 3)
	assert.Len(t, data.StageLinks, 6)
	assert.Len(t, data.JobStageStatuses, 2)
	// 3 seed PENDING + STARTED + SCRAPPED
	assert.Len(t, data.StageEvents, 5)
}
