// Package types defines the core domain models shared across the gaia-scheduler system.
package types

// ItemID uniquely identifies a test item within a scheduling session.
type ItemID string

// Priority is the declared importance of a test item.
type Priority string

// Priority levels understood by the scoring policy.
const (
	PriorityMust   Priority = "MUST"   // Critical path: base score 100
	PriorityShould Priority = "SHOULD" // Important: base score 60
	PriorityMay    Priority = "MAY"    // Nice to have: base score 30
)

// Known reports whether p is one of the three recognized priority levels.
func (p Priority) Known() bool {
	return p == PriorityMust || p == PriorityShould || p == PriorityMay
}

// TestItem represents one schedulable unit of exploration/test work.
//
// ID and Priority are the fields the scheduler itself reads; everything an
// execution backend needs beyond the typed fields rides along in Payload
// untouched. New fields read by scoring (NewElements, TargetURL, NoDOMChange)
// are optional and default to their zero values.
type TestItem struct {
	// Identification and scheduling metadata
	ID       ItemID   `json:"id"`       // Unique item identifier
	Priority Priority `json:"priority"` // MUST | SHOULD | MAY

	// Optional scoring signals
	NewElements int    `json:"new_elements,omitempty"`  // Newly discovered interactive elements attributed to this item
	TargetURL   string `json:"target_url,omitempty"`    // URL this item exercises, if any
	NoDOMChange bool   `json:"no_dom_change,omitempty"` // True when past executions produced no DOM change

	// Opaque pass-through payload for the execution backend
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ResultStatus is the outcome reported by an execution backend.
type ResultStatus string

// Execution outcomes.
const (
	StatusSuccess ResultStatus = "success" // Action completed as expected
	StatusFailed  ResultStatus = "failed"  // Action did not complete
)

// ExecutionResult is the structured outcome of executing one test item.
// Status is the only required field; everything else is best-effort signal
// from the backend.
type ExecutionResult struct {
	Status       ResultStatus           `json:"status"`                  // "success" or "failed"
	DOMSignature string                 `json:"dom_signature,omitempty"` // Content hash of the post-execution page structure
	CurrentURL   string                 `json:"current_url,omitempty"`   // URL observed after execution
	Fatal        bool                   `json:"fatal,omitempty"`         // Suppresses retry on failure
	Error        string                 `json:"error,omitempty"`         // Human-readable failure detail
	Details      map[string]interface{} `json:"details,omitempty"`       // Arbitrary additional backend fields, passed through into logs
}

// ExecutionStats counts scheduling activity over a run.
type ExecutionStats struct {
	TotalReceived int `json:"total_received"` // Valid items accepted by ingestion
	TotalExecuted int `json:"total_executed"` // Executor invocations
	TotalSuccess  int `json:"total_success"`  // Items completed successfully
	TotalFailed   int `json:"total_failed"`   // Failed invocations (including transport errors)
	TotalSkipped  int `json:"total_skipped"`  // Items dropped before execution
	RescoreCount  int `json:"rescore_count"`  // Queue-wide re-scoring events
}

// StateSummary is a point-in-time view of the exploration state counters.
type StateSummary struct {
	VisitedURLs          int `json:"visited_urls"`
	VisitedDOMSignatures int `json:"visited_dom_signatures"`
	CompletedTests       int `json:"completed_tests"`
	FailedTests          int `json:"failed_tests"`
	ExecutionRounds      int `json:"execution_rounds"`
}

// QueueSummary describes the pending work left in the priority queue.
type QueueSummary struct {
	RemainingItems int        `json:"remaining_items"`
	TopPending     []TestItem `json:"top_pending"` // Up to the next 5 items in priority order
}

// LogSummary is the aggregate reduction over the audit log.
type LogSummary struct {
	TotalEntries            int                `json:"total_entries"`
	ExecutedTests           int                `json:"executed_tests"`
	SuccessCount            int                `json:"success_count"`
	FailedCount             int                `json:"failed_count"`
	RescoreEvents           int                `json:"rescore_events"`
	AverageScoresByPriority map[string]float64 `json:"average_scores_by_priority"`
}

// RunSummary is the structured result returned when a scheduling run
// terminates, consumed by report-generation collaborators.
type RunSummary struct {
	RunID          string         `json:"run_id"`
	ExecutionStats ExecutionStats `json:"execution_stats"`
	StateSummary   StateSummary   `json:"state_summary"`
	QueueSummary   QueueSummary   `json:"queue_summary"`
	LogSummary     LogSummary     `json:"log_summary"`
}

// SnapshotData captures everything needed to resume a scheduling run:
// the exploration state, the pending queue contents, and the running
// statistics. Persisted as versioned JSON for forward compatibility.
type SnapshotData struct {
	SchemaVer int    `json:"schema_ver"` // Schema version, currently 1
	RunID     string `json:"run_id,omitempty"`
	CreatedAt int64  `json:"created_at"` // Unix millisecond timestamp

	// Exploration state
	VisitedURLs          []string `json:"visited_urls"`
	VisitedDOMSignatures []string `json:"visited_dom_signatures"`
	FailedTestIDs        []string `json:"failed_test_ids"`
	CompletedTestIDs     []string `json:"completed_test_ids"`
	CurrentDOMSignature  string   `json:"current_dom_signature,omitempty"`
	ExecutionRound       int      `json:"execution_round"`

	// Pending work and counters
	PendingItems []TestItem     `json:"pending_items"`
	Stats        ExecutionStats `json:"stats"`
}
