// ============================================================================
// Executor Contract
// ============================================================================
//
// Package: internal/executor
// File: executor.go
// Purpose: Defines the abstraction for carrying out one test item's action
//          against the target application and reporting the outcome.
//
// Motivation:
//   The scheduler never talks to a browser directly. It sees exactly one
//   contract: execute(item) -> result. Implementations in this package:
//
//   - GRPCExecutor: remote browser-automation backend over gRPC (grpc.go)
//   - SimulatedExecutor: randomized local simulation for demos/tests
//     (simulated.go)
//
//   The executor call is the scheduler's sole suspension point; it is
//   expected to block on I/O and must respect the passed context.
//
// ============================================================================

package executor

import (
	"context"
	"time"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// Executor carries out a single test item and reports the outcome.
//
// A returned error means the action could not be attempted or its outcome is
// unknown (transport failure, timeout, panic in a local backend). Backends
// that observed the action fail should instead return a result with
// Status=failed, which keeps the item eligible for retry.
type Executor interface {
	Execute(ctx context.Context, item types.TestItem) (types.ExecutionResult, error)
}

// Func adapts an ordinary function to the Executor interface.
type Func func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error)

// Execute implements Executor.
func (f Func) Execute(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
	return f(ctx, item)
}

// WithTimeout wraps an executor so every call runs under a per-item
// deadline. A deadline expiry surfaces as an error from Execute, which the
// scheduler treats as a non-retried failure: the transport cannot prove the
// action did not land.
func WithTimeout(inner Executor, timeout time.Duration) Executor {
	if timeout <= 0 {
		return inner
	}
	return Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return inner.Execute(ctx, item)
	})
}
