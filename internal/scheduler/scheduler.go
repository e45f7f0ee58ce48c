// ============================================================================
// Adaptive Scheduler - Core Orchestrator
// ============================================================================
//
// Package: internal/scheduler
// File: scheduler.go
// Purpose: Coordinate all modules and drive adaptive test execution
//
// Architecture:
//   This is the "brain" of the system, coordinating the following components:
//   - State:    exploration progress (URLs, DOM signatures, failed/completed)
//   - Queue:    score-ordered pending test items
//   - Scoring:  priority computation against current state
//   - Audit:    per-decision log entries plus a durable trail
//   - Executor: the backend that actually runs a test item
//
// Core loop (sequential by design):
//   1. Ingest   - accept test items from upstream producers, score, enqueue
//   2. Execute  - pop the top-priority item and run it through the executor
//   3. Observe  - record visited URL and post-execution DOM signature
//   4. Re-score - when the DOM changed against the batch baseline, re-rank
//                 the whole queue under the new state
//   5. Repeat   - until the queue drains, the MUST completion threshold is
//                 met, or the round limit is reached
//
// Items execute one at a time: re-scoring decisions depend on observing the
// effect of each action before ranking the next, so concurrent execution
// would break the causal ordering the scoring model assumes.
//
// Failure policy:
//   - Executor-reported failure (fatal=false): re-queued with a failure bonus
//   - Executor-reported fatal failure: abandoned, run continues
//   - Executor error (transport, timeout): converted to a failed result and
//     logged, but NOT re-queued. Asymmetric with the reported-failure path;
//     kept intentionally, pending product review.
//
// ============================================================================

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gaiaqa/gaia-scheduler/internal/audit"
	"github.com/gaiaqa/gaia-scheduler/internal/executor"
	"github.com/gaiaqa/gaia-scheduler/internal/metrics"
	"github.com/gaiaqa/gaia-scheduler/internal/queue"
	"github.com/gaiaqa/gaia-scheduler/internal/scoring"
	"github.com/gaiaqa/gaia-scheduler/internal/state"
	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

var log = slog.Default()

// ============================================================================
// Configuration
// ============================================================================

// Config holds scheduler tuning parameters.
type Config struct {
	MaxQueueSize        int     // Maximum pending items before eviction
	TopNExecution       int     // Items to execute per batch
	MaxRounds           int     // Round limit for ExecuteUntilComplete
	CompletionThreshold float64 // Fraction of MUST items required complete
	LogPath             string  // Audit log output path
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		MaxQueueSize:        queue.DefaultMaxSize,
		TopNExecution:       5,
		MaxRounds:           20,
		CompletionThreshold: 0.9,
		LogPath:             "priority_log.json",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.TopNExecution <= 0 {
		c.TopNExecution = d.TopNExecution
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.CompletionThreshold <= 0 {
		c.CompletionThreshold = d.CompletionThreshold
	}
	if c.LogPath == "" {
		c.LogPath = d.LogPath
	}
	return c
}

// ============================================================================
// Scheduler
// ============================================================================

// Scheduler owns one exploration run: its state, queue, audit log and
// statistics. All methods are safe for concurrent use, though execution
// itself is sequential.
type Scheduler struct {
	mu      sync.Mutex
	runID   string
	config  Config
	state   *state.State
	queue   *queue.Queue
	auditor *audit.Logger
	metrics *metrics.Collector
	stats   types.ExecutionStats
}

// New creates a scheduler with the given configuration. A nil metrics
// collector disables instrumentation.
func New(config Config, collector *metrics.Collector) *Scheduler {
	config = config.withDefaults()
	return &Scheduler{
		runID:   uuid.NewString(),
		config:  config,
		state:   state.New(),
		queue:   queue.New(config.MaxQueueSize),
		auditor: audit.NewLogger(config.LogPath),
		metrics: collector,
	}
}

// RunID returns this run's unique identifier.
func (s *Scheduler) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// AttachTrail mirrors audit entries to a durable trail.
func (s *Scheduler) AttachTrail(t *audit.Trail) {
	s.auditor.AttachTrail(t)
}

// ============================================================================
// Ingestion
// ============================================================================

// IngestItems accepts test items from an upstream producer, scores them and
// adds them to the queue. Items without an id or a priority are dropped
// silently; upstream input is best-effort and partial garbage is expected.
func (s *Scheduler) IngestItems(items []types.TestItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if item.Priority == "" {
			log.Debug("dropped item without priority", "item", item.ID)
			continue
		}
		if err := s.queue.Push(item, s.state); err != nil {
			log.Debug("dropped malformed item", "error", err)
			continue
		}

		score := scoring.Score(item, s.state)
		s.auditor.LogScore(item, s.state, audit.ActionIngested)
		s.stats.TotalReceived++
		s.metrics.RecordIngested(score)
	}

	s.metrics.SetQueueSize(s.queue.Len())
}

// ============================================================================
// Execution
// ============================================================================

// ExecuteNextBatch pops and executes up to maxItems top-priority tests.
// maxItems <= 0 uses the configured batch size. Returns the execution
// results in order.
func (s *Scheduler) ExecuteNextBatch(ctx context.Context, exec executor.Executor, maxItems int) []types.ExecutionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.executeBatchLocked(ctx, exec, maxItems)
}

func (s *Scheduler) executeBatchLocked(ctx context.Context, exec executor.Executor, maxItems int) []types.ExecutionResult {
	if maxItems <= 0 {
		maxItems = s.config.TopNExecution
	}

	var results []types.ExecutionResult
	baselineDOM := s.state.CurrentDOMSignature()

	for i := 0; i < maxItems; i++ {
		if ctx.Err() != nil {
			break
		}

		item, ok := s.queue.Pop()
		if !ok {
			break
		}

		result := s.executeItem(ctx, exec, item)
		results = append(results, result)

		// Re-scoring compares against the batch baseline, not the previous
		// item, so each structural change triggers at most one re-rank.
		if result.DOMSignature != "" {
			if result.DOMSignature != baselineDOM {
				s.handleDOMChange(result.DOMSignature)
				baselineDOM = result.DOMSignature
			}
			s.state.MarkDOMSeen(result.DOMSignature)
		}
	}

	s.metrics.SetQueueSize(s.queue.Len())
	return results
}

// executeItem runs one test item through the executor and applies the
// outcome to state, queue and audit log.
func (s *Scheduler) executeItem(ctx context.Context, exec executor.Executor, item types.TestItem) types.ExecutionResult {
	s.stats.TotalExecuted++

	started := time.Now()
	result, err := exec.Execute(ctx, item)
	s.metrics.RecordExecuted(time.Since(started).Seconds())

	if err != nil {
		// The outcome is unknown, so the item is not retried.
		s.state.MarkTestFailed(string(item.ID))
		s.stats.TotalFailed++
		s.metrics.RecordFailed()

		errResult := types.ExecutionResult{
			Status: types.StatusFailed,
			Error:  err.Error(),
		}
		s.auditor.LogExecution(item, s.state, types.StatusFailed, map[string]interface{}{
			"error":   err.Error(),
			"item_id": string(item.ID),
		})
		log.Warn("executor error", "item", item.ID, "error", err)
		return errResult
	}

	// A result without a recognized status means the outcome was never
	// verified; treat it as a failure so the item is marked and retried.
	if result.Status != types.StatusSuccess && result.Status != types.StatusFailed {
		result.Status = types.StatusFailed
	}

	switch result.Status {
	case types.StatusSuccess:
		s.state.MarkTestCompleted(string(item.ID))
		s.stats.TotalSuccess++
		s.metrics.RecordSuccess()
		s.auditor.LogExecution(item, s.state, types.StatusSuccess, result.Details)

	case types.StatusFailed:
		s.state.MarkTestFailed(string(item.ID))
		s.stats.TotalFailed++
		s.metrics.RecordFailed()
		s.auditor.LogExecution(item, s.state, types.StatusFailed, result.Details)

		// Re-queue with the accumulated failure bonus unless fatal.
		if !result.Fatal {
			if err := s.queue.Push(item, s.state); err != nil {
				log.Warn("failed to re-queue item", "item", item.ID, "error", err)
			}
		}
	}

	targetURL := item.TargetURL
	if targetURL == "" {
		targetURL = result.CurrentURL
	}
	s.state.MarkURLVisited(targetURL)

	return result
}

// handleDOMChange re-ranks the queue when a previously unseen DOM structure
// is observed.
func (s *Scheduler) handleDOMChange(signature string) {
	if !s.state.IsDOMNew(signature) {
		return
	}

	s.state.MarkDOMSeen(signature)
	s.queue.RescoreAll(s.state)
	s.auditor.LogRescore(s.state, "dom_change")
	s.stats.RescoreCount++
	s.metrics.RecordRescore()
	log.Info("dom change detected, queue re-scored",
		"signature", signature,
		"queue_size", s.queue.Len())
}

// ExecuteUntilComplete drives batches until the queue drains, the MUST
// completion threshold is met, the round limit is hit or ctx is cancelled.
// The lock is released between rounds so concurrent IngestItems calls (e.g.
// from the drop-directory watcher) can feed a running exploration. The audit
// log is saved on every exit path.
func (s *Scheduler) ExecuteUntilComplete(ctx context.Context, exec executor.Executor) (types.RunSummary, error) {
	for round := 1; round <= s.config.MaxRounds; round++ {
		if ctx.Err() != nil {
			break
		}

		if stop := s.runRound(ctx, exec, round); stop {
			break
		}
	}

	summary := s.Summary()

	if err := s.auditor.Save(); err != nil {
		return summary, fmt.Errorf("failed to save audit log: %w", err)
	}
	return summary, nil
}

// runRound executes one round and reports whether the run should stop.
func (s *Scheduler) runRound(ctx context.Context, exec executor.Executor, round int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IncrementRound()
	s.metrics.SetRound(s.state.ExecutionRound())

	if s.queue.IsEmpty() {
		return true
	}

	if s.checkCompletionThreshold() {
		log.Info("completion threshold met",
			"round", round,
			"completed", s.state.CompletedCount())
		return true
	}

	results := s.executeBatchLocked(ctx, exec, 0)
	return len(results) == 0
}

// checkCompletionThreshold reports whether the configured fraction of MUST
// items is complete. Total MUST work is estimated as queued-MUST plus all
// completed items; the original priority of completed items is not tracked,
// so the ratio is an approximation.
func (s *Scheduler) checkCompletionThreshold() bool {
	pending := s.queue.TopN(s.queue.Len())

	mustPending := 0
	for _, item := range pending {
		if item.Priority == types.PriorityMust {
			mustPending++
		}
	}

	completed := s.state.CompletedCount()
	totalMust := mustPending + completed
	if totalMust == 0 {
		return true
	}

	ratio := float64(completed) / float64(totalMust)
	return ratio >= s.config.CompletionThreshold
}

// ============================================================================
// Introspection & lifecycle
// ============================================================================

// Summary builds the current run summary.
func (s *Scheduler) Summary() types.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Scheduler) summaryLocked() types.RunSummary {
	return types.RunSummary{
		RunID:          s.runID,
		ExecutionStats: s.stats,
		StateSummary:   s.state.Summary(),
		QueueSummary: types.QueueSummary{
			RemainingItems: s.queue.Len(),
			TopPending:     s.queue.TopN(5),
		},
		LogSummary: s.auditor.Summary(),
	}
}

// Stats returns a copy of the execution statistics.
func (s *Scheduler) Stats() types.ExecutionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// SaveAuditLog flushes the audit log to disk.
func (s *Scheduler) SaveAuditLog() error {
	return s.auditor.Save()
}

// AuditEntries returns a copy of the in-memory audit entries.
func (s *Scheduler) AuditEntries() []audit.Entry {
	return s.auditor.Entries()
}

// QueueLen returns the number of pending items.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// QueueContains reports whether an item id is pending.
func (s *Scheduler) QueueContains(id types.ItemID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Contains(id)
}

// WasTestFailed reports whether the id is currently marked failed.
func (s *Scheduler) WasTestFailed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.WasTestFailed(id)
}

// Snapshot captures the full run state for later resumption.
func (s *Scheduler) Snapshot() types.SnapshotData {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.state.Snapshot()
	data.RunID = s.runID
	data.PendingItems = s.queue.TopN(s.queue.Len())
	data.Stats = s.stats
	return data
}

// Restore resumes a run from a snapshot. Pending items are re-scored
// against the restored state as they are pushed.
func (s *Scheduler) Restore(data types.SnapshotData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data.RunID != "" {
		s.runID = data.RunID
	}
	s.state.Restore(data)
	s.stats = data.Stats

	s.queue.Clear()
	for _, item := range data.PendingItems {
		if err := s.queue.Push(item, s.state); err != nil {
			log.Warn("dropped pending item during restore", "error", err)
		}
	}
	s.metrics.SetQueueSize(s.queue.Len())
	s.metrics.SetRound(s.state.ExecutionRound())
}

// Reset restores the scheduler to its initial empty state.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Reset()
	s.queue.Clear()
	s.auditor.Clear()
	s.stats = types.ExecutionStats{}
	s.runID = uuid.NewString()
	s.metrics.SetQueueSize(0)
	s.metrics.SetRound(0)
}
