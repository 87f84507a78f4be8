package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProductTypeSequenceLadder(t *testing.T) {
	env := newTestEnv(t)

	// Gap in the ladder.
	_, err := env.types.CreateProductType(&CreateProductTypeRequest{
		TypeName:   "Widget",
		PartNumber: "PN-GAP",
		Stages: []StageRequest{
			{StageName: "Assembly", SequenceOrder: 1},
			{StageName: "Testing", SequenceOrder: 3},
		},
	}, "tester")
	assert.Error(t, err)

	// Duplicate order.
	_, err = env.types.CreateProductType(&CreateProductTypeRequest{
		TypeName:   "Widget",
		PartNumber: "PN-DUP",
		Stages: []StageRequest{
			{StageName: "Assembly", SequenceOrder: 1},
			{StageName: "Testing", SequenceOrder: 1},
		},
	}, "tester")
	assert.Error(t, err)

	// No stages at all.
	_, err = env.types.CreateProductType(&CreateProductTypeRequest{
		TypeName:   "Widget",
		PartNumber: "PN-EMPTY",
	}, "tester")
	assert.Error(t, err)
}

func TestCreateProductTypeRejectsDuplicatePartNumber(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly")

	_, err := env.types.CreateProductType(&CreateProductTypeRequest{
		TypeName:   "Another Widget",
		PartNumber: pt.PartNumber,
		Stages:     []StageRequest{{StageName: "Assembly", SequenceOrder: 1}},
	}, "tester")
	assert.ErrorIs(t, err, ErrPartNumberExists)
}

func TestStageUpdateAllowedWhileNoJobCompleted(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	env.createJob(t, pt, 1) // open job does not freeze the catalog

	stage, err := env.types.UpdateStage(pt.Stages[0].ID, &UpdateStageRequest{
		StageName:   "Pre-Assembly",
		Description: "updated",
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, "Pre-Assembly", stage.StageName)
}

func TestCatalogFreezesAfterFirstCompletedJob(t *testing.T) {
	env := newTestEnv(t)
	pt := env.createType(t, "Assembly", "Testing")
	_, products := env.createJob(t, pt, 1)

	// Scrapping the only unit completes the job and freezes the workflow.
	require.NoError(t, env.work.Scrap(products[0].ID, env.admin, "write-off"))

	_, err := env.types.UpdateStage(pt.Stages[0].ID, &UpdateStageRequest{
		StageName: "Renamed",
	}, "tester")
	assert.ErrorIs(t, err, ErrCatalogFrozen)

	err = env.types.DeleteStage(pt.Stages[1].ID)
	assert.ErrorIs(t, err, ErrCatalogFrozen)

	// Other types are unaffected.
	other := env.createType(t, "Milling")
	_, err = env.types.UpdateStage(other.Stages[0].ID, &UpdateStageRequest{
		StageName: "CNC Milling",
	}, "tester")
	assert.NoError(t, err)
}

func TestUpdateUnknownStage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.types.UpdateStage(uuid.New(), &UpdateStageRequest{StageName: "X"}, "tester")
	assert.ErrorIs(t, err, ErrNotFound)
}
