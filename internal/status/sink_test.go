package status

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressIsMonotonic(t *testing.T) {
	sink := NewSink(10)
	sink.Reset(1)

	sink.SetProgress(30)
	sink.SetProgress(10) // regressions are ignored
	assert.Equal(t, 30.0, sink.Snapshot().Progress)

	sink.SetProgress(150) // clamped
	assert.Equal(t, 100.0, sink.Snapshot().Progress)
}

func TestFinishPinsProgressOnSuccessOnly(t *testing.T) {
	sink := NewSink(10)
	sink.Reset(1)
	sink.SetProgress(72)

	sink.Finish(false)
	snap := sink.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, 72.0, snap.Progress, "failed runs keep their last progress")

	sink.Reset(2)
	sink.SetProgress(72)
	sink.Finish(true)
	assert.Equal(t, 100.0, sink.Snapshot().Progress)
}

func TestLogRingEvictsOldest(t *testing.T) {
	sink := NewSink(5)
	sink.Reset(1)

	for i := 0; i < 8; i++ {
		sink.Log(LevelInfo, fmt.Sprintf("entry %d", i))
	}

	logs := sink.Logs(0)
	require.Len(t, logs, 5)
	assert.Equal(t, "entry 3", logs[0].Message, "oldest surviving entry first")
	assert.Equal(t, "entry 7", logs[4].Message)
}

func TestLogsLimitReturnsNewest(t *testing.T) {
	sink := NewSink(10)
	sink.Reset(1)

	for i := 0; i < 6; i++ {
		sink.Log(LevelInfo, fmt.Sprintf("entry %d", i))
	}

	logs := sink.Logs(2)
	require.Len(t, logs, 2)
	assert.Equal(t, "entry 4", logs[0].Message)
	assert.Equal(t, "entry 5", logs[1].Message)
}

func TestResetClearsStateForNewRun(t *testing.T) {
	sink := NewSink(10)
	sink.Reset(1)
	sink.SetProgress(80)
	sink.Log(LevelError, "boom")
	sink.UpdateWorker("sync-TKN", 50, "fetching")

	sink.Reset(2)

	snap := sink.Snapshot()
	assert.True(t, snap.IsRunning)
	assert.Equal(t, uint(2), snap.RunID)
	assert.Zero(t, snap.Progress)
	assert.Empty(t, snap.ActiveWorkers)
	assert.Empty(t, snap.Errors)
	assert.Empty(t, sink.Logs(0))
}

func TestSnapshotCollectsErrorsAndWorkers(t *testing.T) {
	sink := NewSink(10)
	sink.Reset(1)

	sink.UpdateWorker("sync-TKN", 20, "fetching page 3")
	sink.AddCounter("sync-TKN", "pages", 3)
	sink.Log(LevelError, "page 2 failed")
	sink.Log(LevelInfo, "retrying")

	snap := sink.Snapshot()
	assert.Equal(t, []string{"sync-TKN"}, snap.ActiveWorkers)
	assert.Equal(t, 3, snap.WorkerDetails["sync-TKN"].Counters["pages"])
	assert.Equal(t, "fetching page 3", snap.WorkerDetails["sync-TKN"].CurrentTask)
	assert.Equal(t, []string{"page 2 failed"}, snap.Errors)
}

func TestWorkerProgressIsMonotonic(t *testing.T) {
	sink := NewSink(10)
	sink.Reset(1)

	sink.UpdateWorker("w", 40, "a")
	sink.UpdateWorker("w", 25, "b")

	snap := sink.Snapshot()
	assert.Equal(t, 40.0, snap.WorkerDetails["w"].Progress)
	assert.Equal(t, "b", snap.WorkerDetails["w"].CurrentTask)
}
