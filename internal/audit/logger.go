// ============================================================================
// Priority Decision Log
// ============================================================================
//
// Package: internal/audit
// File: logger.go
// Purpose: Append-only structured record of scoring, execution and
//          re-scoring decisions, plus derived summary statistics
//
// Entry kinds:
//   - ingested: an item was accepted into the queue
//   - executed: an executor invocation finished (success or failed)
//   - rescore:  the whole queue was re-scored after a state change
//
// Each entry captures a full score breakdown recomputed at log time, not
// cached from push time: the breakdown reflects state at the moment of
// logging, which is the intended audit semantics.
//
// Persistence:
//   Save() writes the ordered entry list as a JSON array using an atomic
//   temp-file + rename. When a durable trail is attached, every entry is
//   additionally appended to it at log time (see trail.go).
//
// ============================================================================

package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gaiaqa/gaia-scheduler/internal/scoring"
	"github.com/gaiaqa/gaia-scheduler/internal/state"
	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

var log = slog.Default()

// Action identifies the kind of a log entry.
type Action string

// Entry kinds.
const (
	ActionIngested Action = "ingested"
	ActionExecuted Action = "executed"
	ActionRescore  Action = "rescore"
)

// Entry is one immutable audit record.
type Entry struct {
	Seq    uint64 `json:"seq,omitempty"` // Assigned by the durable trail, 0 otherwise
	ID     string `json:"id,omitempty"`
	Action Action `json:"action"`
	Result string `json:"result,omitempty"` // For executed entries: "success" or "failed"
	Reason string `json:"reason,omitempty"` // For rescore entries, e.g. "dom_change"

	// Score breakdown at log time
	Score            int    `json:"score"`
	Priority         string `json:"priority,omitempty"`
	BaseScore        int    `json:"base_score"`
	DOMBonus         int    `json:"dom_bonus"`
	URLBonus         int    `json:"url_bonus"`
	FailBonus        int    `json:"fail_bonus"`
	NoChangePenalty  int    `json:"no_change_penalty"`
	NewElementsCount int    `json:"new_elements_count"`

	Timestamp      string                 `json:"timestamp"`
	ExecutionRound int                    `json:"execution_round"`
	Details        map[string]interface{} `json:"details,omitempty"`
	StateSummary   *types.StateSummary    `json:"state_summary,omitempty"`

	Checksum uint32 `json:"checksum,omitempty"` // CRC32, set by the trail
}

// Logger accumulates audit entries for one scheduler instance.
type Logger struct {
	mu      sync.Mutex
	path    string
	entries []Entry
	trail   *Trail
}

// NewLogger creates a logger that persists to path on Save.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// AttachTrail enables durable append-at-log-time persistence. Trail write
// failures are logged and never fail the scheduling run.
func (l *Logger) AttachTrail(t *Trail) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trail = t
}

// LogScore records a scoring decision for an item (e.g. at ingestion).
func (l *Logger) LogScore(item types.TestItem, st *state.State, action Action) {
	b := scoring.ComputeBreakdown(item, st)

	l.append(Entry{
		ID:               string(item.ID),
		Action:           action,
		Score:            b.Total,
		Priority:         priorityLabel(item.Priority),
		BaseScore:        b.Base,
		DOMBonus:         b.DOMBonus,
		URLBonus:         b.URLBonus,
		FailBonus:        b.FailBonus,
		NoChangePenalty:  b.NoChangePenalty,
		NewElementsCount: b.NewElements,
		ExecutionRound:   st.ExecutionRound(),
	})
}

// LogExecution records an execution outcome with its details payload.
func (l *Logger) LogExecution(item types.TestItem, st *state.State, result types.ResultStatus, details map[string]interface{}) {
	b := scoring.ComputeBreakdown(item, st)

	l.append(Entry{
		ID:               string(item.ID),
		Action:           ActionExecuted,
		Result:           string(result),
		Score:            b.Total,
		Priority:         priorityLabel(item.Priority),
		BaseScore:        b.Base,
		DOMBonus:         b.DOMBonus,
		URLBonus:         b.URLBonus,
		FailBonus:        b.FailBonus,
		NoChangePenalty:  b.NoChangePenalty,
		NewElementsCount: b.NewElements,
		ExecutionRound:   st.ExecutionRound(),
		Details:          details,
	})
}

// LogRescore records a queue-wide re-scoring event with a state summary.
func (l *Logger) LogRescore(st *state.State, reason string) {
	summary := st.Summary()

	l.append(Entry{
		Action:         ActionRescore,
		Reason:         reason,
		ExecutionRound: st.ExecutionRound(),
		StateSummary:   &summary,
	})
}

// append stamps the entry and stores it, mirroring it to the trail when one
// is attached.
func (l *Logger) append(e Entry) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.trail != nil {
		stamped, err := l.trail.Append(e)
		if err != nil {
			log.Warn("Audit trail append failed", "action", e.Action, "id", e.ID, "error", err)
		} else {
			e = stamped
		}
	}

	l.entries = append(l.entries, e)
}

// Save persists the full entry list as an ordered JSON array, atomically.
// When a trail is attached it is rotated afterwards, so the array file is
// the authoritative record of the finished run.
func (l *Logger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit log: %w", err)
	}

	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp audit log: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename audit log: %w", err)
	}

	if l.trail != nil {
		if err := l.trail.Rotate(); err != nil {
			log.Warn("Audit trail rotate failed", "error", err)
		}
	}

	return nil
}

// Entries returns a copy of all recorded entries in order.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Summary derives aggregate statistics by scanning the log. It is a pure
// reduction, recomputable at any time, and never mutates logger state.
func (l *Logger) Summary() types.LogSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	summary := types.LogSummary{
		AverageScoresByPriority: make(map[string]float64),
	}
	summary.TotalEntries = len(l.entries)

	scoreSums := make(map[string]int)
	scoreCounts := make(map[string]int)

	for _, e := range l.entries {
		switch e.Action {
		case ActionExecuted:
			summary.ExecutedTests++
			switch types.ResultStatus(e.Result) {
			case types.StatusSuccess:
				summary.SuccessCount++
			case types.StatusFailed:
				summary.FailedCount++
			}
		case ActionRescore:
			summary.RescoreEvents++
		}

		if e.Priority != "" {
			scoreSums[e.Priority] += e.Score
			scoreCounts[e.Priority]++
		}
	}

	for priority, count := range scoreCounts {
		summary.AverageScoresByPriority[priority] = float64(scoreSums[priority]) / float64(count)
	}

	return summary
}

// Clear discards all recorded entries. Used for full scheduler resets.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// priorityLabel preserves the item's raw priority string for the log,
// defaulting an absent priority to MAY the same way scoring does.
func priorityLabel(p types.Priority) string {
	if p == "" {
		return string(types.PriorityMay)
	}
	return string(p)
}
