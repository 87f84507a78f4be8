package service

import (
	"errors"
	"sync"
	"testing"

	"go-production-ws/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRequiresPendingAtStage(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	_, products := env.createJob(t, pt, 1)
	unit := products[0]

	err := env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin)
	require.NoError(t, err)

	got := env.product(t, unit.ID)
	assert.Equal(t, model.ProductInProgress, got.Status)
	require.NotNil(t, got.CurrentWorkerID)
	assert.Equal(t, env.admin.ID, *got.CurrentWorkerID)

	// Already started: the unit is no longer pending here.
	err = env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Never queued at the second stage.
	_, fresh := env.createJob(t, pt, 1)
	err = env.work.Start([]uuid.UUID{fresh[0].ID}, pt.Stages[1].ID, env.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPassAdvancesToNextStage(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 2)
	unit := products[0]

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Pass([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))

	got := env.product(t, unit.ID)
	assert.Equal(t, model.ProductPending, got.Status)
	assert.Nil(t, got.CurrentWorkerID)

	loc, err := env.work.ResolveLocation(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, pt.Stages[1].ID, loc.StageID)
	assert.Equal(t, model.ProductPending, loc.State)

	first := env.stageStatus(t, job.ID, pt.Stages[0].ID)
	assert.Equal(t, 1, first.PassedCount)
	assert.Equal(t, model.StageInProgress, first.Status) // second unit still here

	second := env.stageStatus(t, job.ID, pt.Stages[1].ID)
	assert.Equal(t, model.StageInProgress, second.Status)
}

func TestPassWithoutStartRejected(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 1)

	err := env.work.Pass([]uuid.UUID{products[0].ID}, pt.Stages[0].ID, env.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Nothing committed.
	assert.Equal(t, model.ProductPending, env.product(t, products[0].ID).Status)
	assert.Equal(t, 0, env.stageStatus(t, job.ID, pt.Stages[0].ID).PassedCount)
}

func TestBatchIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 2)
	ready, cold := products[0], products[1]

	require.NoError(t, env.work.Start([]uuid.UUID{ready.ID}, pt.Stages[0].ID, env.admin))

	// One unit in the batch was never started; the whole pass rolls back.
	err := env.work.Pass([]uuid.UUID{ready.ID, cold.ID}, pt.Stages[0].ID, env.admin)
	require.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, model.ProductInProgress, env.product(t, ready.ID).Status)
	assert.Equal(t, model.ProductPending, env.product(t, cold.ID).Status)
	assert.Equal(t, 0, env.stageStatus(t, job.ID, pt.Stages[0].ID).PassedCount)
}

func TestFullRunCompletesJob(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 2)

	env.runThrough(t, products[0].ID, pt.Stages, env.admin)

	// One unit done is not a done job.
	assert.Equal(t, model.JobOpen, env.job(t, job.ID).Status)

	env.runThrough(t, products[1].ID, pt.Stages, env.admin)
	assert.Equal(t, model.JobCompleted, env.job(t, job.ID).Status)

	for _, p := range products {
		got := env.product(t, p.ID)
		assert.Equal(t, model.ProductCompleted, got.Status)

		loc, err := env.work.ResolveLocation(p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ProductCompleted, loc.State)
		assert.Equal(t, pt.Stages[1].ID, loc.StageID)
	}
	for _, stage := range pt.Stages {
		status := env.stageStatus(t, job.ID, stage.ID)
		assert.Equal(t, model.StageCompleted, status.Status)
		assert.Equal(t, 2, status.PassedCount)
	}
}

func TestFailAndRework(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing", "Packaging")
	job, products := env.createJob(t, pt, 1)
	unit := products[0]

	// Clear stage 1, fail at stage 2.
	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Pass([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[1].ID, env.admin))

	notes := model.FailureNotes{Reasons: []string{"solder bridge"}, Detail: "pins 3-4"}
	require.NoError(t, env.work.Fail(unit.ID, pt.Stages[1].ID, env.admin, notes))

	got := env.product(t, unit.ID)
	assert.Equal(t, model.ProductFailed, got.Status)
	assert.Nil(t, got.CurrentWorkerID)
	assert.Equal(t, 1, env.stageStatus(t, job.ID, pt.Stages[1].ID).FailedCount)

	loc, err := env.work.ResolveLocation(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductFailed, loc.State)
	assert.Equal(t, pt.Stages[1].ID, loc.StageID)

	// Only the technician who failed the unit may rework it.
	err = env.work.Rework(unit.ID, Actor{ID: uuid.New(), RoleCode: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, env.work.Rework(unit.ID, env.admin))

	got = env.product(t, unit.ID)
	assert.Equal(t, model.ProductPending, got.Status)

	loc, err = env.work.ResolveLocation(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, pt.Stages[0].ID, loc.StageID)
	assert.Equal(t, model.ProductPending, loc.State)

	// The unit logically re-entered stage 1: its earlier pass is rolled back
	// and the failure charge is lifted.
	first := env.stageStatus(t, job.ID, pt.Stages[0].ID)
	assert.Equal(t, 0, first.PassedCount)
	assert.Equal(t, model.StageInProgress, first.Status)
	assert.Equal(t, 0, env.stageStatus(t, job.ID, pt.Stages[1].ID).FailedCount)
}

func TestReworkFromFirstStageRejected(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	_, products := env.createJob(t, pt, 1)
	unit := products[0]

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Fail(unit.ID, pt.Stages[0].ID, env.admin, model.FailureNotes{Reasons: []string{"scratch"}}))

	err := env.work.Rework(unit.ID, env.admin)
	assert.ErrorIs(t, err, ErrNoPreviousStage)

	// Still failed; the counter is untouched.
	assert.Equal(t, model.ProductFailed, env.product(t, unit.ID).Status)
}

func TestReworkRequiresFailedProduct(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	_, products := env.createJob(t, pt, 1)

	err := env.work.Rework(products[0].ID, env.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMoveRequiresElevatedRole(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 1)
	unit := products[0]

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Pass([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[1].ID, env.admin))
	require.NoError(t, env.work.Fail(unit.ID, pt.Stages[1].ID, env.admin, model.FailureNotes{Reasons: []string{"misaligned"}}))

	err := env.work.Move(unit.ID, pt.Stages[0].ID, env.tech)
	assert.ErrorIs(t, err, ErrForbidden)

	// A manager who did not fail the unit can still dispose of it.
	manager := Actor{ID: uuid.New(), RoleCode: model.RoleManager}
	require.NoError(t, env.work.Move(unit.ID, pt.Stages[0].ID, manager))

	loc, err := env.work.ResolveLocation(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, pt.Stages[0].ID, loc.StageID)
	assert.Equal(t, model.ProductPending, loc.State)
	assert.Equal(t, 0, env.stageStatus(t, job.ID, pt.Stages[1].ID).FailedCount)
}

func TestMoveToForeignStageRejected(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	other := env.createType(t, "Milling")
	_, products := env.createJob(t, pt, 1)
	unit := products[0]

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Fail(unit.ID, pt.Stages[0].ID, env.admin, model.FailureNotes{Reasons: []string{"burr"}}))

	err := env.work.Move(unit.ID, other.Stages[0].ID, env.admin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScrapPendingUnitCompletesJob(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 1)
	unit := products[0]

	// Pending units can be scrapped; the charge lands at their current stage.
	require.NoError(t, env.work.Scrap(unit.ID, env.admin, "dropped on floor"))

	got := env.product(t, unit.ID)
	assert.Equal(t, model.ProductScrapped, got.Status)

	status := env.stageStatus(t, job.ID, pt.Stages[0].ID)
	assert.Equal(t, 1, status.ScrappedCount)
	assert.Equal(t, model.StageCompleted, status.Status)

	// Every unit terminal: the job closes.
	assert.Equal(t, model.JobCompleted, env.job(t, job.ID).Status)

	loc, err := env.work.ResolveLocation(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductScrapped, loc.State)
	assert.Equal(t, pt.Stages[0].ID, loc.StageID)

	err = env.work.Scrap(unit.ID, env.admin, "again")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestScrapFailedUnitLiftsFailureCharge(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 2)
	unit := products[0]

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Fail(unit.ID, pt.Stages[0].ID, env.admin, model.FailureNotes{Reasons: []string{"cracked"}}))
	require.NoError(t, env.work.Scrap(unit.ID, env.admin, "beyond repair"))

	status := env.stageStatus(t, job.ID, pt.Stages[0].ID)
	assert.Equal(t, 1, status.ScrappedCount)
	assert.Equal(t, 0, status.FailedCount)

	// The other unit is still live.
	assert.Equal(t, model.JobOpen, env.job(t, job.ID).Status)
}

func TestTechnicianNeedsAssignment(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 1)
	unit := products[0]

	err := env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.tech)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = env.jobs.Assign(&AssignmentRequest{
		JobID:             job.ID,
		ProductionStageID: pt.Stages[0].ID,
		UserID:            env.tech.ID,
	})
	require.NoError(t, err)

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.tech))

	// The grant is per stage, not per job.
	require.NoError(t, env.work.Pass([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.tech))
	err = env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[1].ID, env.tech)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestScanDrivesStartThenPass(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	_, products := env.createJob(t, pt, 1)
	unit := products[0]

	res, err := env.work.Scan(unit.SerialNumber, pt.Stages[0].ID, env.admin)
	require.NoError(t, err)
	assert.Equal(t, "started", res.Action)

	res, err = env.work.Scan(unit.SerialNumber, pt.Stages[0].ID, env.admin)
	require.NoError(t, err)
	assert.Equal(t, "passed", res.Action)

	// Now pending at stage 2; scanning at stage 1 is a position mismatch.
	_, err = env.work.Scan(unit.SerialNumber, pt.Stages[0].ID, env.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.work.Scan("NO-SUCH-SERIAL", pt.Stages[0].ID, env.admin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveLocationAgreesWithStatusCache(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing", "Packaging")
	_, products := env.createJob(t, pt, 1)
	unit := products[0]

	check := func() {
		t.Helper()
		loc, err := env.work.ResolveLocation(unit.ID)
		require.NoError(t, err)
		assert.Equal(t, env.product(t, unit.ID).Status, loc.State)
	}

	check() // Pending at creation
	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	check()
	require.NoError(t, env.work.Pass([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	check()
	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[1].ID, env.admin))
	check()
	require.NoError(t, env.work.Fail(unit.ID, pt.Stages[1].ID, env.admin, model.FailureNotes{Reasons: []string{"noise"}}))
	check()
	require.NoError(t, env.work.Rework(unit.ID, env.admin))
	check()
	env.runThrough(t, unit.ID, pt.Stages, env.admin)
	check() // Completed at the end
}

func TestStationData(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	job, products := env.createJob(t, pt, 3)

	require.NoError(t, env.work.Start([]uuid.UUID{products[0].ID}, pt.Stages[0].ID, env.admin))

	data, err := env.work.StationData(job.ID, pt.Stages[0].ID, env.admin.ID)
	require.NoError(t, err)

	// Two units still queued, one in the caller's hands.
	assert.Len(t, data.PendingProducts, 2)
	require.Len(t, data.ActiveBatch, 1)
	assert.Equal(t, products[0].ID, data.ActiveBatch[0].ID)

	// Nobody is queued at the second stage yet.
	data, err = env.work.StationData(job.ID, pt.Stages[1].ID, env.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, data.PendingProducts)
	assert.Empty(t, data.ActiveBatch)
}

func TestConcurrentPassRecordsOnePassedEvent(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	_, products := env.createJob(t, pt, 1)
	unit := products[0]

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))

	// Two workers race to pass the same started unit. Exactly one wins; the
	// other sees a unit that is no longer started here.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.work.Pass([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrInvalidTransition):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	history, err := env.eventRepo.HistoryForProduct(unit.ID)
	require.NoError(t, err)
	var passed int
	for _, ev := range history {
		if ev.Status == model.EventPassed {
			passed++
		}
	}
	assert.Equal(t, 1, passed)

	loc, err := env.work.ResolveLocation(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, pt.Stages[1].ID, loc.StageID)
	assert.Equal(t, model.ProductPending, loc.State)
}

func TestPassedEventsCarryDuration(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly")
	_, products := env.createJob(t, pt, 1)
	unit := products[0]

	require.NoError(t, env.work.Start([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))
	require.NoError(t, env.work.Pass([]uuid.UUID{unit.ID}, pt.Stages[0].ID, env.admin))

	history, err := env.eventRepo.HistoryForProduct(unit.ID)
	require.NoError(t, err)

	var passed *model.StageEvent
	for i := range history {
		if history[i].Status == model.EventPassed {
			passed = &history[i]
		}
	}
	require.NotNil(t, passed)
	require.NotNil(t, passed.DurationSeconds)
	assert.GreaterOrEqual(t, *passed.DurationSeconds, 0)
}
