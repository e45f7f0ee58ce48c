// ============================================================================
// Simulated Execution Backend
// ============================================================================
//
// Package: internal/executor
// File: simulated.go
// Purpose: Local stand-in for the browser-automation backend.
//
// Behavior:
//   - random delay between MinLatency and MaxLatency (simulates a remote
//     browser action)
//   - configurable failure rate (simulates flaky actions on a real page)
//   - successful actions synthesize a page: a small element inventory
//     derived from the item's target URL, hashed into a DOM signature
//
// The simulation drives the demo and the integration tests; a production
// deployment replaces it with the remote backend behind GRPCExecutor.
//
// ============================================================================

package executor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gaiaqa/gaia-scheduler/internal/scoring"
	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// SimulatedExecutor pretends to drive a web application.
type SimulatedExecutor struct {
	mu          sync.Mutex
	rng         *rand.Rand
	failureRate float64
	minLatency  time.Duration
	maxLatency  time.Duration
}

// NewSimulatedExecutor creates a simulator with the given failure rate
// (0.0–1.0) and default latencies of 5–50ms.
func NewSimulatedExecutor(failureRate float64) *SimulatedExecutor {
	return NewSimulatedExecutorWithSeed(failureRate, time.Now().UnixNano())
}

// NewSimulatedExecutorWithSeed creates a deterministic simulator for tests.
func NewSimulatedExecutorWithSeed(failureRate float64, seed int64) *SimulatedExecutor {
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	return &SimulatedExecutor{
		rng:         rand.New(rand.NewSource(seed)),
		failureRate: failureRate,
		minLatency:  5 * time.Millisecond,
		maxLatency:  50 * time.Millisecond,
	}
}

// Execute simulates running the item against a page.
func (s *SimulatedExecutor) Execute(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
	s.mu.Lock()
	delay := s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)+1))
	failed := s.rng.Float64() < s.failureRate
	s.mu.Unlock()

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return types.ExecutionResult{}, ctx.Err()
	}

	if failed {
		return types.ExecutionResult{
			Status: types.StatusFailed,
			Error:  fmt.Sprintf("simulated action failure for %s", item.ID),
		}, nil
	}

	doc := s.synthesizePage(item)
	return types.ExecutionResult{
		Status:       types.StatusSuccess,
		DOMSignature: scoring.DOMSignature(doc),
		CurrentURL:   item.TargetURL,
		Details: map[string]interface{}{
			"new_elements": len(doc.Elements),
			"simulated":    true,
		},
	}, nil
}

// synthesizePage derives a deterministic element inventory from the item so
// that distinct targets yield distinct DOM signatures while repeated actions
// on the same target do not.
func (s *SimulatedExecutor) synthesizePage(item types.TestItem) scoring.DOMDocument {
	page := item.TargetURL
	if page == "" {
		page = "about:blank"
	}

	return scoring.DOMDocument{
		Elements: []scoring.DOMElement{
			{Tag: "a", Selector: fmt.Sprintf("#nav-%s", page)},
			{Tag: "button", Selector: fmt.Sprintf("#action-%s", item.ID)},
			{Tag: "input", Selector: "#search"},
		},
	}
}
