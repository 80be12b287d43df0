package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"warden/internal/audit"
	"warden/internal/decision"
	"warden/internal/docgen"
	"warden/internal/hitl"
)

func newWatcherFixture(t *testing.T) (*TaskWatcher, string, *audit.Log) {
	t.Helper()
	dir := t.TempDir()
	tasksDir := filepath.Join(dir, "inbox")
	require.NoError(t, os.MkdirAll(tasksDir, 0755))

	log, err := audit.Open(filepath.Join(dir, "arl.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	orch, err := New(Params{
		Resolver:  hitl.NewScripted(nil, decision.Continue),
		Log:       log,
		Generator: docgen.New(filepath.Join(dir, "docs")),
	})
	require.NoError(t, err)

	watcher, err := NewTaskWatcher(tasksDir, orch)
	require.NoError(t, err)
	return watcher, tasksDir, log
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestTaskWatcher_ProcessesDroppedFile(t *testing.T) {
	watcher, tasksDir, log := newWatcherFixture(t)

	require.NoError(t, watcher.Start(context.Background()))
	defer watcher.Stop()

	content := `
tasks:
  - id: w1
    title: Watched task
    prompt: Summarize quarterly revenue by region for finance
    requester: fin-ops
    clearance: internal
    artifact:
      kind: docx
      sensitivity: internal
`
	require.NoError(t, os.WriteFile(filepath.Join(tasksDir, "drop.yaml"), []byte(content), 0644))

	ok := waitFor(t, 5*time.Second, func() bool {
		return watcher.Stats().RunsTriggered >= 1
	})
	require.True(t, ok, "watcher never triggered a run; stats: %+v", watcher.Stats())

	rows, err := audit.ReadRows(log.Path())
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	require.Equal(t, "w1", rows[0].TaskID)
}

func TestTaskWatcher_IgnoresNonTaskFiles(t *testing.T) {
	watcher, tasksDir, _ := newWatcherFixture(t)

	require.NoError(t, watcher.Start(context.Background()))
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(tasksDir, "notes.txt"), []byte("not tasks"), 0644))

	// Give the watcher a moment; nothing should happen.
	time.Sleep(300 * time.Millisecond)
	stats := watcher.Stats()
	require.Zero(t, stats.FilesSeen)
	require.Zero(t, stats.RunsTriggered)
}

func TestTaskWatcher_BadFileCountsError(t *testing.T) {
	watcher, tasksDir, _ := newWatcherFixture(t)

	require.NoError(t, watcher.Start(context.Background()))
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(tasksDir, "broken.yaml"), []byte("tasks: ["), 0644))

	ok := waitFor(t, 5*time.Second, func() bool {
		return watcher.Stats().Errors >= 1
	})
	require.True(t, ok, "watcher never recorded the parse error")
	require.Zero(t, watcher.Stats().RunsTriggered)
}

func TestTaskWatcher_StopIsIdempotent(t *testing.T) {
	watcher, _, _ := newWatcherFixture(t)
	require.NoError(t, watcher.Start(context.Background()))
	watcher.Stop()
	watcher.Stop() // Must not panic or block
}

func TestTaskWatcher_FailedStartLeavesStopSafe(t *testing.T) {
	watcher, tasksDir, _ := newWatcherFixture(t)
	require.NoError(t, os.RemoveAll(tasksDir))

	require.Error(t, watcher.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
}

func TestTaskWatcher_StartTwiceIsNoop(t *testing.T) {
	watcher, _, _ := newWatcherFixture(t)
	require.NoError(t, watcher.Start(context.Background()))
	require.NoError(t, watcher.Start(context.Background()))
	watcher.Stop()
}
