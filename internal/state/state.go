// ============================================================================
// GAIA Exploration State
// ============================================================================
//
// Package: internal/state
// File: state.go
// Purpose: Tracks exploration progress that drives adaptive scheduling
//
// Design:
//   A single mutable holder owned by one scheduler instance:
//   - visitedURLs: URLs considered "seen"
//   - visitedDOMSignatures: content hashes of page structures, append-only
//   - failedTestIDs / completedTestIDs: item ids by last known outcome
//   - currentDOMSignature: last-observed page hash
//   - executionRound: incremented once per scheduling round
//
// Invariants:
//   - completed and failed sets are disjoint at all times: marking an id
//     completed removes it from the failed set
//   - empty-string ids/urls/signatures are never recorded (no signal, not
//     an error)
//
// Concurrency:
//   All operations are guarded by a RWMutex so that status/metrics readers
//   in other goroutines can observe counters while the scheduler loop
//   mutates. The scheduler itself remains the single writer.
//
// ============================================================================

package state

import (
	"sync"
	"time"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// State maintains the current exploration state.
type State struct {
	mu                   sync.RWMutex
	visitedURLs          map[string]struct{}
	visitedDOMSignatures map[string]struct{}
	failedTestIDs        map[string]struct{}
	completedTestIDs     map[string]struct{}
	currentDOMSignature  string
	executionRound       int
}

// New creates an empty exploration state.
func New() *State {
	return &State{
		visitedURLs:          make(map[string]struct{}),
		visitedDOMSignatures: make(map[string]struct{}),
		failedTestIDs:        make(map[string]struct{}),
		completedTestIDs:     make(map[string]struct{}),
	}
}

// ============================================================================
// Mutators
// ============================================================================

// MarkURLVisited records a URL as seen. Empty input is a no-op.
func (s *State) MarkURLVisited(url string) {
	if url == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitedURLs[url] = struct{}{}
}

// MarkDOMSeen records a DOM signature as seen and makes it the current
// signature. Empty input is a no-op.
func (s *State) MarkDOMSeen(signature string) {
	if signature == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitedDOMSignatures[signature] = struct{}{}
	s.currentDOMSignature = signature
}

// MarkTestFailed records a test id as recently failed. Empty input is a no-op.
func (s *State) MarkTestFailed(testID string) {
	if testID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedTestIDs[testID] = struct{}{}
}

// MarkTestCompleted records a test id as completed and clears it from the
// failed set, preserving the disjointness invariant. Empty input is a no-op.
func (s *State) MarkTestCompleted(testID string) {
	if testID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedTestIDs[testID] = struct{}{}
	delete(s.failedTestIDs, testID)
}

// IncrementRound advances to the next execution round.
func (s *State) IncrementRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executionRound++
}

// Reset restores all fields to initial empty/zero values. Intended for full
// scheduler resets only, never mid-run.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitedURLs = make(map[string]struct{})
	s.visitedDOMSignatures = make(map[string]struct{})
	s.failedTestIDs = make(map[string]struct{})
	s.completedTestIDs = make(map[string]struct{})
	s.currentDOMSignature = ""
	s.executionRound = 0
}

// ============================================================================
// Queries
// ============================================================================

// IsURLNew reports whether the URL has not been visited.
func (s *State) IsURLNew(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, seen := s.visitedURLs[url]
	return !seen
}

// IsDOMNew reports whether the DOM signature has not been seen.
func (s *State) IsDOMNew(signature string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, seen := s.visitedDOMSignatures[signature]
	return !seen
}

// WasTestFailed reports whether the test id is in the recently-failed set.
func (s *State) WasTestFailed(testID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, failed := s.failedTestIDs[testID]
	return failed
}

// IsTestCompleted reports whether the test id has completed successfully.
func (s *State) IsTestCompleted(testID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, done := s.completedTestIDs[testID]
	return done
}

// CurrentDOMSignature returns the last-observed DOM signature, or the empty
// string when nothing has been observed yet.
func (s *State) CurrentDOMSignature() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDOMSignature
}

// ExecutionRound returns the current round number.
func (s *State) ExecutionRound() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executionRound
}

// CompletedCount returns the number of completed test ids.
func (s *State) CompletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.completedTestIDs)
}

// Summary returns the current state counters.
func (s *State) Summary() types.StateSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.StateSummary{
		VisitedURLs:          len(s.visitedURLs),
		VisitedDOMSignatures: len(s.visitedDOMSignatures),
		CompletedTests:       len(s.completedTestIDs),
		FailedTests:          len(s.failedTestIDs),
		ExecutionRounds:      s.executionRound,
	}
}

// ============================================================================
// Snapshot and restore
// ============================================================================

// Snapshot serializes the state portion of a run snapshot.
func (s *State) Snapshot() types.SnapshotData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.SnapshotData{
		SchemaVer:            1,
		CreatedAt:            time.Now().UnixMilli(),
		VisitedURLs:          setToSlice(s.visitedURLs),
		VisitedDOMSignatures: setToSlice(s.visitedDOMSignatures),
		FailedTestIDs:        setToSlice(s.failedTestIDs),
		CompletedTestIDs:     setToSlice(s.completedTestIDs),
		CurrentDOMSignature:  s.currentDOMSignature,
		ExecutionRound:       s.executionRound,
	}
}

// Restore replaces the state with the contents of a snapshot. Empty strings
// in the snapshot are skipped, matching the mutators' no-signal policy.
func (s *State) Restore(data types.SnapshotData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitedURLs = sliceToSet(data.VisitedURLs)
	s.visitedDOMSignatures = sliceToSet(data.VisitedDOMSignatures)
	s.failedTestIDs = sliceToSet(data.FailedTestIDs)
	s.completedTestIDs = sliceToSet(data.CompletedTestIDs)
	// Re-assert disjointness in case the snapshot was edited by hand
	for id := range s.completedTestIDs {
		delete(s.failedTestIDs, id)
	}
	s.currentDOMSignature = data.CurrentDOMSignature
	s.executionRound = data.ExecutionRound
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

func sliceToSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
