package state

import (
	"testing"
)

func TestNewStateEmpty(t *testing.T) {
	st := New()

	s := st.Summary()
	if s.VisitedURLs != 0 || s.VisitedDOMSignatures != 0 || s.CompletedTests != 0 || s.FailedTests != 0 {
		t.Errorf("new state not empty: %+v", s)
	}
	if st.CurrentDOMSignature() != "" {
		t.Errorf("new state has current signature %q", st.CurrentDOMSignature())
	}
	if st.ExecutionRound() != 0 {
		t.Errorf("new state round = %d, want 0", st.ExecutionRound())
	}
}

func TestMarkURLVisited(t *testing.T) {
	st := New()

	if !st.IsURLNew("https://example.com") {
		t.Error("unvisited URL should be new")
	}

	st.MarkURLVisited("https://example.com")
	if st.IsURLNew("https://example.com") {
		t.Error("visited URL should not be new")
	}

	// Marking twice does not double count.
	st.MarkURLVisited("https://example.com")
	if got := st.Summary().VisitedURLs; got != 1 {
		t.Errorf("visited URL count = %d, want 1", got)
	}
}

func TestMarkDOMSeenUpdatesCurrent(t *testing.T) {
	st := New()

	st.MarkDOMSeen("sig-1")
	if st.CurrentDOMSignature() != "sig-1" {
		t.Errorf("current = %q, want sig-1", st.CurrentDOMSignature())
	}
	if st.IsDOMNew("sig-1") {
		t.Error("seen signature should not be new")
	}

	st.MarkDOMSeen("sig-2")
	if st.CurrentDOMSignature() != "sig-2" {
		t.Errorf("current = %q, want sig-2", st.CurrentDOMSignature())
	}
	if got := st.Summary().VisitedDOMSignatures; got != 2 {
		t.Errorf("signature count = %d, want 2", got)
	}
}

func TestCompletedClearsFailed(t *testing.T) {
	st := New()

	st.MarkTestFailed("TC001")
	if !st.WasTestFailed("TC001") {
		t.Error("TC001 should be failed")
	}

	st.MarkTestCompleted("TC001")
	if st.WasTestFailed("TC001") {
		t.Error("completion should clear the failed mark")
	}
	if !st.IsTestCompleted("TC001") {
		t.Error("TC001 should be completed")
	}
}

func TestEmptyStringMutatorsAreNoOps(t *testing.T) {
	st := New()

	st.MarkURLVisited("")
	st.MarkDOMSeen("")
	st.MarkTestFailed("")
	st.MarkTestCompleted("")

	s := st.Summary()
	if s.VisitedURLs != 0 || s.VisitedDOMSignatures != 0 || s.FailedTests != 0 || s.CompletedTests != 0 {
		t.Errorf("empty-string mutators mutated state: %+v", s)
	}
	if st.CurrentDOMSignature() != "" {
		t.Error("empty signature must not become current")
	}
}

func TestIncrementRound(t *testing.T) {
	st := New()

	st.IncrementRound()
	st.IncrementRound()
	if st.ExecutionRound() != 2 {
		t.Errorf("round = %d, want 2", st.ExecutionRound())
	}
}

func TestReset(t *testing.T) {
	st := New()
	st.MarkURLVisited("https://example.com")
	st.MarkDOMSeen("sig-1")
	st.MarkTestFailed("TC001")
	st.MarkTestCompleted("TC002")
	st.IncrementRound()

	st.Reset()

	s := st.Summary()
	if s.VisitedURLs != 0 || s.VisitedDOMSignatures != 0 || s.FailedTests != 0 || s.CompletedTests != 0 || s.ExecutionRounds != 0 {
		t.Errorf("reset left state behind: %+v", s)
	}
	if st.CurrentDOMSignature() != "" {
		t.Error("reset should clear current signature")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	st := New()
	st.MarkURLVisited("https://example.com")
	st.MarkDOMSeen("sig-1")
	st.MarkTestFailed("TC001")
	st.MarkTestCompleted("TC002")
	st.IncrementRound()

	snap := st.Snapshot()

	restored := New()
	restored.Restore(snap)

	if restored.IsURLNew("https://example.com") {
		t.Error("restored state lost visited URL")
	}
	if restored.IsDOMNew("sig-1") {
		t.Error("restored state lost DOM signature")
	}
	if restored.CurrentDOMSignature() != "sig-1" {
		t.Errorf("restored current = %q, want sig-1", restored.CurrentDOMSignature())
	}
	if !restored.WasTestFailed("TC001") {
		t.Error("restored state lost failed test")
	}
	if !restored.IsTestCompleted("TC002") {
		t.Error("restored state lost completed test")
	}
	if restored.ExecutionRound() != 1 {
		t.Errorf("restored round = %d, want 1", restored.ExecutionRound())
	}
}

func TestRestoreKeepsFailedCompletedDisjoint(t *testing.T) {
	st := New()
	st.MarkTestFailed("TC001")
	snap := st.Snapshot()

	// A snapshot doctored to list the same id in both sets must restore
	// with completion winning.
	snap.CompletedTestIDs = append(snap.CompletedTestIDs, "TC001")

	restored := New()
	restored.Restore(snap)

	if restored.WasTestFailed("TC001") {
		t.Error("completed id must not remain in the failed set")
	}
	if !restored.IsTestCompleted("TC001") {
		t.Error("TC001 should be completed after restore")
	}
}
