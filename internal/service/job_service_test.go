package service

import (
	"testing"

	"go-production-ws/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJobBuildsFullAggregate(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")

	job, err := env.jobs.CreateJob(&CreateJobRequest{
		DocketNumber:  "DKT-100",
		ProductTypeID: pt.ID,
		Quantity:      3,
		Priority:      model.PriorityHigh,
		DueDate:       "2030-01-15",
	}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, model.JobOpen, job.Status)

	products, err := env.productRepo.ProductsForJob(nil, job.ID)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "DKT-100-001", products[0].SerialNumber)
	assert.Equal(t, "DKT-100-002", products[1].SerialNumber)
	assert.Equal(t, "DKT-100-003", products[2].SerialNumber)

	for _, p := range products {
		assert.Equal(t, model.ProductPending, p.Status)

		links, err := env.productRepo.LinksForProduct(nil, p.ID)
		require.NoError(t, err)
		assert.Len(t, links, len(pt.Stages))

		// Seeded at the first stage, nowhere else.
		loc, err := env.work.ResolveLocation(p.ID)
		require.NoError(t, err)
		assert.Equal(t, pt.Stages[0].ID, loc.StageID)
		assert.Equal(t, model.ProductPending, loc.State)
	}

	statuses, err := env.jobRepo.StageStatusesForJob(job.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	byStage := map[uuid.UUID]model.JobStageStatus{}
	for _, s := range statuses {
		byStage[s.ProductionStageID] = s
	}
	assert.Equal(t, model.StageInProgress, byStage[pt.Stages[0].ID].Status)
	assert.Equal(t, model.StagePending, byStage[pt.Stages[1].ID].Status)
}

func TestCreateJobRejectsDuplicateDocket(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly")

	req := &CreateJobRequest{
		DocketNumber:  "DKT-DUP",
		ProductTypeID: pt.ID,
		Quantity:      1,
		Priority:      model.PriorityNormal,
		DueDate:       "2030-01-15",
	}
	_, err := env.jobs.CreateJob(req, env.admin)
	require.NoError(t, err)

	_, err = env.jobs.CreateJob(req, env.admin)
	assert.ErrorIs(t, err, ErrDocketExists)
}

func TestCreateJobValidation(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly")

	// Zero quantity.
	_, err := env.jobs.CreateJob(&CreateJobRequest{
		DocketNumber:  "DKT-BAD",
		ProductTypeID: pt.ID,
		Quantity:      0,
		Priority:      model.PriorityNormal,
		DueDate:       "2030-01-15",
	}, env.admin)
	assert.Error(t, err)

	// Bad date.
	_, err = env.jobs.CreateJob(&CreateJobRequest{
		DocketNumber:  "DKT-BAD",
		ProductTypeID: pt.ID,
		Quantity:      1,
		Priority:      model.PriorityNormal,
		DueDate:       "15/01/2030",
	}, env.admin)
	assert.Error(t, err)

	// Unknown product type.
	_, err = env.jobs.CreateJob(&CreateJobRequest{
		DocketNumber:  "DKT-BAD",
		ProductTypeID: uuid.New(),
		Quantity:      1,
		Priority:      model.PriorityNormal,
		DueDate:       "2030-01-15",
	}, env.admin)
	assert.Error(t, err)
}

func TestAddProductExtendsOpenJob(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, _ := env.createJob(t, pt, 2)

	product, err := env.jobs.AddProduct(job.ID, env.admin)
	require.NoError(t, err)
	assert.Equal(t, job.DocketNumber+"-003", product.SerialNumber)
	assert.Equal(t, 3, env.job(t, job.ID).Quantity)

	loc, err := env.work.ResolveLocation(product.ID)
	require.NoError(t, err)
	assert.Equal(t, pt.Stages[0].ID, loc.StageID)
	assert.Equal(t, model.ProductPending, loc.State)
}

func TestAddProductRejectedOnCompletedJob(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly")
	job, products := env.createJob(t, pt, 1)

	require.NoError(t, env.work.Scrap(products[0].ID, env.admin, "write-off"))
	require.Equal(t, model.JobCompleted, env.job(t, job.ID).Status)

	_, err := env.jobs.AddProduct(job.ID, env.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAssignAndUnassign(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly")
	job, _ := env.createJob(t, pt, 1)

	_, err := env.jobs.Assign(&AssignmentRequest{
		JobID:             job.ID,
		ProductionStageID: pt.Stages[0].ID,
		UserID:            env.tech.ID,
	})
	require.NoError(t, err)

	assignments, err := env.jobs.AssignmentsForJob(job.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, env.tech.ID, assignments[0].UserID)

	// Assigning against an unknown job or stage fails upfront.
	_, err = env.jobs.Assign(&AssignmentRequest{
		JobID:             uuid.New(),
		ProductionStageID: pt.Stages[0].ID,
		UserID:            env.tech.ID,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.jobs.Unassign(job.ID, pt.Stages[0].ID, env.tech.ID))
	assignments, err = env.jobs.AssignmentsForJob(job.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestGetJobDetail(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, _ := env.createJob(t, pt, 2)

	detail, err := env.jobs.GetJobDetail(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, detail.Job.ID)
	assert.Len(t, detail.Products, 2)
	assert.Len(t, detail.StageStatuses, 2)
	assert.Empty(t, detail.Assignments)

	_, err = env.jobs.GetJobDetail(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
