package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureNotesEncodeDecode(t *testing.T) {
	notes := FailureNotes{Reasons: []string{"solder bridge", "cold joint"}, Detail: "pins 3-4"}

	decoded := DecodeFailureNotes(notes.Encode())
	assert.Equal(t, notes, decoded)
}

func TestDecodeFailureNotesPlainText(t *testing.T) {
	decoded := DecodeFailureNotes("operator noticed a scratch")
	assert.Empty(t, decoded.Reasons)
	assert.Equal(t, "operator noticed a scratch", decoded.Detail)
}

func TestEventStatusPresent(t *testing.T) {
	assert.True(t, EventPending.Present())
	assert.True(t, EventStarted.Present())
	assert.True(t, EventFailed.Present())
	assert.False(t, EventPassed.Present())
	assert.False(t, EventReset.Present())
	assert.False(t, EventScrapped.Present())
}

func TestProductStatusTerminal(t *testing.T) {
	assert.True(t, ProductCompleted.Terminal())
	assert.True(t, ProductScrapped.Terminal())
	assert.False(t, ProductPending.Terminal())
	assert.False(t, ProductInProgress.Terminal())
	assert.False(t, ProductFailed.Terminal())
}
