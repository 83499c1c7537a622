package operations

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStepState(t *testing.T) {
	state := NewStepState(StepIDClean, StepNameClean)

	assert.Equal(t, StepIDClean, state.ID)
	assert.Equal(t, StepNameClean, state.Name)
	assert.Equal(t, StepStatusPending, state.Status)
	assert.Zero(t, state.Progress)
	assert.Nil(t, state.StartTime)
	assert.Nil(t, state.EndTime)
	assert.NotNil(t, state.Metadata)
}

func TestStepStateTransitions(t *testing.T) {
	t.Run("start", func(t *testing.T) {
		state := NewStepState("s", "S")
		state.Start()

		assert.Equal(t, StepStatusActive, state.Status)
		require.NotNil(t, state.StartTime)
		assert.Nil(t, state.EndTime)
		assert.Zero(t, state.Progress)
	})

	t.Run("complete", func(t *testing.T) {
		state := NewStepState("s", "S")
		state.Start()
		state.Complete()

		assert.Equal(t, StepStatusCompleted, state.Status)
		require.NotNil(t, state.EndTime)
		assert.Equal(t, float64(100), state.Progress)
	})

	t.Run("fail", func(t *testing.T) {
		state := NewStepState("s", "S")
		state.Start()
		boom := errors.New("boom")
		state.Fail(boom)

		assert.Equal(t, StepStatusFailed, state.Status)
		require.NotNil(t, state.EndTime)
		assert.Equal(t, boom, state.Error)
	})

	t.Run("skip", func(t *testing.T) {
		state := NewStepState("s", "S")
		state.Skip("nothing to do")

		assert.Equal(t, StepStatusSkipped, state.Status)
		require.NotNil(t, state.EndTime)
		assert.Equal(t, "nothing to do", state.Message)
		assert.NoError(t, state.Error)
	})
}

func TestStepStateUpdateProgress(t *testing.T) {
	state := NewStepState("s", "S")
	state.Start()

	state.UpdateProgress(42, "Working")

	assert.Equal(t, float64(42), state.Progress)
	assert.Equal(t, "Working", state.Message)
}

func TestStepStateSetMetadata(t *testing.T) {
	state := NewStepState("s", "S")
	state.SetMetadata("rows", 10)
	state.SetMetadata("rows", 12)
	state.SetMetadata("source", "roster.csv")

	assert.Equal(t, 12, state.Metadata["rows"])
	assert.Equal(t, "roster.csv", state.Metadata["source"])

	// A zero-value state has no metadata map until the first write.
	var bare StepState
	bare.SetMetadata("key", "value")
	assert.Equal(t, "value", bare.Metadata["key"])
}

func TestStepStateDuration(t *testing.T) {
	state := NewStepState("s", "S")
	assert.Zero(t, state.Duration())

	state.Start()
	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, state.Duration(), time.Duration(0))

	state.Complete()
	frozen := state.Duration()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, frozen, state.Duration())
}

func TestBaseStep(t *testing.T) {
	base := NewBaseStep(StepIDIngest, StepNameIngest)

	assert.Equal(t, StepIDIngest, base.ID())
	assert.Equal(t, StepNameIngest, base.Name())
	assert.NoError(t, base.Validate(nil))

	var nilBase *BaseStep
	assert.Empty(t, nilBase.ID())
	assert.Empty(t, nilBase.Name())
	assert.Error(t, nilBase.Validate(nil))
}
