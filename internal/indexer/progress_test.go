package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngestionSpansTokensEvenly(t *testing.T) {
	w := DefaultWeights()

	// Single token: fetch completes at FetchEnd, persist at PersistEnd.
	assert.InDelta(t, 0, w.Ingestion(0, 1, 0, 0), 1e-9)
	assert.InDelta(t, 40, w.Ingestion(0, 1, 1, 0), 1e-9)
	assert.InDelta(t, 80, w.Ingestion(0, 1, 1, 1), 1e-9)

	// Two tokens: the first finishes at half the ingestion span.
	assert.InDelta(t, 40, w.Ingestion(0, 2, 1, 1), 1e-9)
	assert.InDelta(t, 80, w.Ingestion(1, 2, 1, 1), 1e-9)
}

func TestDiscoveryFillsRemainder(t *testing.T) {
	w := DefaultWeights()

	assert.InDelta(t, 80, w.Discovery(0, 4), 1e-9)
	assert.InDelta(t, 85, w.Discovery(1, 4), 1e-9)
	assert.InDelta(t, 100, w.Discovery(4, 4), 1e-9)
	assert.InDelta(t, 100, w.Discovery(9, 4), 1e-9, "overshoot clamps")
}

func TestProgressNeverExceeds100AndNeverDecreases(t *testing.T) {
	w := Weights{FetchEnd: 30, PersistEnd: 70}

	last := -1.0
	tokens := 3
	for idx := 0; idx < tokens; idx++ {
		for page := 0; page < 5; page++ {
			p := w.Ingestion(idx, tokens, pageFraction(page), 0)
			assert.GreaterOrEqual(t, p, last)
			assert.LessOrEqual(t, p, 100.0)
			last = p
		}
		p := w.Ingestion(idx, tokens, 1, 1)
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	for done := 1; done <= tokens; done++ {
		p := w.Discovery(done, tokens)
		assert.GreaterOrEqual(t, p, last)
		assert.LessOrEqual(t, p, 100.0)
		last = p
	}
	assert.InDelta(t, 100, last, 1e-9)
}

func TestWeightsFromEnvRejectsInconsistentValues(t *testing.T) {
	t.Setenv("SYNC_WEIGHT_FETCH_END", "90")
	t.Setenv("SYNC_WEIGHT_PERSIST_END", "50")

	assert.Equal(t, DefaultWeights(), WeightsFromEnv())
}

func TestWeightsFromEnvOverrides(t *testing.T) {
	t.Setenv("SYNC_WEIGHT_FETCH_END", "30")
	t.Setenv("SYNC_WEIGHT_PERSIST_END", "70")

	assert.Equal(t, Weights{FetchEnd: 30, PersistEnd: 70}, WeightsFromEnv())
}

func TestRegistrySingleActiveRun(t *testing.T) {
	var r Registry

	token, err := r.Acquire()
	assert.NoError(t, err)
	assert.True(t, r.Active())

	_, err = r.Acquire()
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	r.Release(token)
	assert.False(t, r.Active())

	_, err = r.Acquire()
	assert.NoError(t, err)
}
