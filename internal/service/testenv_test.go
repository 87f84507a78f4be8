package service

import (
	"fmt"
	"testing"

	"go-production-ws/internal/model"
	"go-production-ws/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv wires the real services against an in-memory SQLite database.
type testEnv struct {
	db *gorm.DB

	work  WorkstationService
	jobs  JobService
	types ProductTypeService

	jobRepo     repository.JobRepository
	productRepo repository.ProductRepository
	typeRepo    repository.ProductTypeRepository
	eventRepo   repository.StageEventRepository

	admin Actor
	tech  Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A fresh connection to :memory: is a fresh database; keep everything on one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Privilege{}, &model.Role{},
		&model.ProductType{}, &model.ProductionStage{},
		&model.Job{}, &model.JobAssignment{}, &model.JobStageStatus{},
		&model.Product{}, &model.ProductStageLink{},
		&model.StageEvent{},
	))

	jobRepo := repository.NewJobRepo(db)
	productRepo := repository.NewProductRepo(db)
	typeRepo := repository.NewProductTypeRepo(db)
	eventRepo := repository.NewStageEventRepo(db)

	return &testEnv{
		db:          db,
		work:        NewWorkstationService(productRepo, jobRepo, typeRepo, eventRepo, db, nil),
		jobs:        NewJobService(jobRepo, productRepo, typeRepo, eventRepo, db, nil),
		types:       NewProductTypeService(typeRepo),
		jobRepo:     jobRepo,
		productRepo: productRepo,
		typeRepo:    typeRepo,
		eventRepo:   eventRepo,
		admin:       Actor{ID: uuid.New(), RoleCode: model.RoleAdmin},
		tech:        Actor{ID: uuid.New(), RoleCode: model.RoleTechnician},
	}
}

var (
	partSeq   int
	docketSeq int
)

// createType builds a product type whose workflow is the given stage names in order.
func (e *testEnv) createType(t *testing.T, stageNames ...string) *model.ProductType {
	t.Helper()

	partSeq++
	req := &CreateProductTypeRequest{
		TypeName:   "Widget",
		PartNumber: fmt.Sprintf("PN-%04d", partSeq),
	}
	for i, name := range stageNames {
		req.Stages = append(req.Stages, StageRequest{
			StageName:     name,
			SequenceOrder: i + 1,
		})
	}
	pt, err := e.types.CreateProductType(req, "tester")
	require.NoError(t, err)

	// Refetch so stages carry their generated IDs in sequence order.
	pt, err = e.types.GetProductType(pt.ID)
	require.NoError(t, err)
	return pt
}

// createJob creates a job of the given quantity and returns its units sorted by serial.
func (e *testEnv) createJob(t *testing.T, pt *model.ProductType, qty int) (*model.Job, []model.Product) {
	t.Helper()

	docketSeq++
	job, err := e.jobs.CreateJob(&CreateJobRequest{
		DocketNumber:  fmt.Sprintf("DKT-%s-%d", pt.PartNumber, docketSeq),
		ProductTypeID: pt.ID,
		Quantity:      qty,
		Priority:      model.PriorityNormal,
		DueDate:       "2030-06-30",
	}, e.admin)
	require.NoError(t, err)

	products, err := e.productRepo.ProductsForJob(nil, job.ID)
	require.NoError(t, err)
	require.Len(t, products, qty)
	return job, products
}

func (e *testEnv) product(t *testing.T, id uuid.UUID) *model.Product {
	t.Helper()
	p, err := e.productRepo.FindByID(nil, id)
	require.NoError(t, err)
	return p
}

func (e *testEnv) job(t *testing.T, id uuid.UUID) *model.Job {
	t.Helper()
	j, err := e.jobRepo.FindByID(nil, id)
	require.NoError(t, err)
	return j
}

func (e *testEnv) stageStatus(t *testing.T, jobID, stageID uuid.UUID) *model.JobStageStatus {
	t.Helper()
	s, err := e.jobRepo.StageStatus(nil, jobID, stageID)
	require.NoError(t, err)
	return s
}

// runThrough starts and passes one unit across every stage of its workflow.
func (e *testEnv) runThrough(t *testing.T, productID uuid.UUID, stages []model.ProductionStage, actor Actor) {
	t.Helper()
	for _, stage := range stages {
		require.NoError(t, e.work.Start([]uuid.UUID{productID}, stage.ID, actor))
		require.NoError(t, e.work.Pass([]uuid.UUID{productID}, stage.ID, actor))
	}
}
