package indexer

import (
	"os"
	"strconv"
)

// Weights maps phase completion onto the 0-100 overall progress scale.
// Swap ingestion spans [0, PersistEnd] with fetching taking [0, FetchEnd];
// holder discovery fills the remainder up to 100. The split is a UX choice,
// so it is configurable rather than hard-coded.
type Weights struct {
	FetchEnd   float64
	PersistEnd float64
}

// DefaultWeights is fetch 0-40, persist/fold 40-80, discovery 80-100.
func DefaultWeights() Weights {
	return Weights{FetchEnd: 40, PersistEnd: 80}
}

// WeightsFromEnv reads SYNC_WEIGHT_FETCH_END and SYNC_WEIGHT_PERSIST_END,
// falling back to defaults when unset or inconsistent.
func WeightsFromEnv() Weights {
	w := DefaultWeights()
	if v, err := strconv.ParseFloat(os.Getenv("SYNC_WEIGHT_FETCH_END"), 64); err == nil {
		w.FetchEnd = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("SYNC_WEIGHT_PERSIST_END"), 64); err == nil {
		w.PersistEnd = v
	}
	if !w.valid() {
		return DefaultWeights()
	}
	return w
}

func (w Weights) valid() bool {
	return w.FetchEnd > 0 && w.FetchEnd < w.PersistEnd && w.PersistEnd <= 100
}

// Ingestion maps per-token fetch and persist fractions (each in [0,1]) onto
// the overall scale. Tokens split the ingestion span evenly.
func (w Weights) Ingestion(tokenIdx, tokenCount int, fetchFrac, persistFrac float64) float64 {
	if tokenCount <= 0 {
		return 0
	}
	fetchFrac = clamp01(fetchFrac)
	persistFrac = clamp01(persistFrac)

	span := w.PersistEnd / float64(tokenCount)
	base := span * float64(tokenIdx)
	fetchShare := w.FetchEnd / w.PersistEnd

	return base + span*(fetchShare*fetchFrac+(1-fetchShare)*persistFrac)
}

// Discovery maps tokens-completed onto the trailing span.
func (w Weights) Discovery(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	if done > total {
		done = total
	}
	return w.PersistEnd + (100-w.PersistEnd)*float64(done)/float64(total)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ProgressEvent is one progress report flowing from the phases to the status
// sink. Decoupling reporting from fetch control flow keeps the adapter free
// of nested callbacks beyond the page hook.
type ProgressEvent struct {
	Worker  string
	Task    string
	Overall float64
}
