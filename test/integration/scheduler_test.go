// ============================================================================
// GAIA Scheduler Integration Test Suite
// ============================================================================
//
// Package: test/integration
// File: scheduler_test.go
// Functionality: End-to-end scheduling scenarios across real components
//
// Test Objectives:
//   1. verify priority ordering end to end (ingest -> queue -> executor)
//   2. verify failure retry and fatal abandonment behavior
//   3. verify DOM-change driven re-scoring with audit evidence
//   4. verify run persistence: audit log, snapshot, summary
//
// Test Environment:
//   - in-process scheduler, no network
//   - deterministic executors (no simulated randomness unless seeded)
//   - temp directories for every artifact
//
// ============================================================================

package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiaqa/gaia-scheduler/internal/audit"
	"github.com/gaiaqa/gaia-scheduler/internal/executor"
	"github.com/gaiaqa/gaia-scheduler/internal/report"
	"github.com/gaiaqa/gaia-scheduler/internal/scheduler"
	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	return scheduler.New(scheduler.Config{
		LogPath: filepath.Join(t.TempDir(), "priority_log.json"),
	}, nil)
}

// MUST items execute before SHOULD items.
func TestPriorityOrdering(t *testing.T) {
	s := newScheduler(t)
	s.IngestItems([]types.TestItem{
		{ID: "T1", Priority: types.PriorityMust},
		{ID: "T2", Priority: types.PriorityShould},
	})

	var order []types.ItemID
	exec := executor.Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		order = append(order, item.ID)
		return types.ExecutionResult{Status: types.StatusSuccess}, nil
	})

	s.ExecuteNextBatch(context.Background(), exec, 2)

	require.Equal(t, []types.ItemID{"T1", "T2"}, order)
}

// A non-fatal failure re-queues the item and marks it failed in state.
func TestFailureRetryFlow(t *testing.T) {
	s := newScheduler(t)
	s.IngestItems([]types.TestItem{{ID: "T1", Priority: types.PriorityMust}})

	exec := executor.Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		return types.ExecutionResult{Status: types.StatusFailed, Error: "element not found"}, nil
	})

	s.ExecuteNextBatch(context.Background(), exec, 1)

	assert.NotZero(t, s.QueueLen())
	assert.True(t, s.QueueContains("T1"))
	assert.True(t, s.WasTestFailed("T1"))

	// A failing item retried after a failure carries the retry bonus, so a
	// fresh SHOULD item ingested now still executes after it.
	s.IngestItems([]types.TestItem{{ID: "T2", Priority: types.PriorityShould}})

	var order []types.ItemID
	succeed := executor.Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		order = append(order, item.ID)
		return types.ExecutionResult{Status: types.StatusSuccess}, nil
	})
	s.ExecuteNextBatch(context.Background(), succeed, 2)

	require.Equal(t, []types.ItemID{"T1", "T2"}, order)
}

// A DOM change between batches re-scores the queue and logs the event.
func TestDOMChangeRescoring(t *testing.T) {
	s := newScheduler(t)
	s.IngestItems([]types.TestItem{
		{ID: "T1", Priority: types.PriorityMust},
		{ID: "T2", Priority: types.PriorityMust},
	})

	calls := 0
	exec := executor.Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		calls++
		sig := "dom-a"
		if calls > 1 {
			sig = "dom-b"
		}
		return types.ExecutionResult{Status: types.StatusSuccess, DOMSignature: sig}, nil
	})

	s.ExecuteNextBatch(context.Background(), exec, 2)

	assert.GreaterOrEqual(t, s.Stats().RescoreCount, 1)

	found := false
	for _, e := range s.AuditEntries() {
		if e.Action == audit.ActionRescore && e.Reason == "dom_change" {
			found = true
		}
	}
	assert.True(t, found, "rescore entry missing from audit log")
}

// A full run persists the audit log, snapshot and summary, and the snapshot
// resumes into an equivalent scheduler.
func TestRunPersistenceAndResume(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "priority_log.json")

	s := scheduler.New(scheduler.Config{
		TopNExecution: 2,
		MaxRounds:     1,
		LogPath:       logPath,
	}, nil)

	trail, err := audit.OpenTrail(filepath.Join(dir, "audit_trail.log"), false)
	require.NoError(t, err)
	defer trail.Close()
	s.AttachTrail(trail)

	s.IngestItems([]types.TestItem{
		{ID: "T1", Priority: types.PriorityMust, TargetURL: "https://app.test/login"},
		{ID: "T2", Priority: types.PriorityShould},
		{ID: "T3", Priority: types.PriorityMay},
	})

	exec := executor.NewSimulatedExecutorWithSeed(0, 7)
	summary, err := s.ExecuteUntilComplete(context.Background(), exec)
	require.NoError(t, err)

	// Audit log saved as an ordered JSON array.
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.NotEmpty(t, entries)

	// Snapshot and summary round-trip through the report manager.
	reporter := report.NewManager(filepath.Join(dir, "report"))
	require.NoError(t, reporter.WriteSnapshot(s.Snapshot()))
	require.NoError(t, reporter.WriteSummary(summary))

	snap, err := reporter.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, s.RunID(), snap.RunID)

	resumed := newScheduler(t)
	resumed.Restore(snap)
	assert.Equal(t, s.RunID(), resumed.RunID())
	assert.Equal(t, s.QueueLen(), resumed.QueueLen())
	assert.Equal(t, s.Stats(), resumed.Stats())

	loaded, err := reporter.LoadSummary()
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, loaded.RunID)
}

// A run against the fully simulated backend terminates and accounts for
// every item.
func TestSimulatedEndToEnd(t *testing.T) {
	s := scheduler.New(scheduler.Config{
		TopNExecution: 3,
		MaxRounds:     15,
		LogPath:       filepath.Join(t.TempDir(), "priority_log.json"),
	}, nil)

	var items []types.TestItem
	urls := []string{"/login", "/signup", "/profile", "/settings", "/logout"}
	for i, u := range urls {
		priority := types.PriorityMay
		if i < 2 {
			priority = types.PriorityMust
		}
		items = append(items, types.TestItem{
			ID:        types.ItemID(u[1:]),
			Priority:  priority,
			TargetURL: "https://app.test" + u,
		})
	}
	s.IngestItems(items)

	exec := executor.NewSimulatedExecutorWithSeed(0.2, 99)
	summary, err := s.ExecuteUntilComplete(context.Background(), exec)
	require.NoError(t, err)

	stats := summary.ExecutionStats
	assert.Equal(t, len(items), stats.TotalReceived)
	assert.NotZero(t, stats.TotalExecuted)
	assert.Equal(t, stats.TotalExecuted, stats.TotalSuccess+stats.TotalFailed)
	assert.NotZero(t, summary.StateSummary.VisitedURLs)
	assert.NotZero(t, summary.StateSummary.VisitedDOMSignatures)
	assert.NotZero(t, summary.LogSummary.TotalEntries)
}
