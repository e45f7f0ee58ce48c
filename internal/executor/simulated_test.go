package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

func TestSimulatedExecutorSuccess(t *testing.T) {
	exec := NewSimulatedExecutorWithSeed(0, 1)

	result, err := exec.Execute(context.Background(), types.TestItem{
		ID:        "TC001",
		TargetURL: "https://example.com/login",
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusSuccess, result.Status)
	assert.Len(t, result.DOMSignature, 32)
	assert.Equal(t, "https://example.com/login", result.CurrentURL)
	assert.Equal(t, true, result.Details["simulated"])
}

func TestSimulatedExecutorAlwaysFails(t *testing.T) {
	exec := NewSimulatedExecutorWithSeed(1.0, 1)

	result, err := exec.Execute(context.Background(), types.TestItem{ID: "TC001"})
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "TC001")
}

// Same target produces the same signature; different targets differ.
func TestSimulatedExecutorSignatureDependsOnTarget(t *testing.T) {
	exec := NewSimulatedExecutorWithSeed(0, 1)

	item := types.TestItem{ID: "TC001", TargetURL: "https://example.com/a"}
	first, err := exec.Execute(context.Background(), item)
	require.NoError(t, err)
	second, err := exec.Execute(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, first.DOMSignature, second.DOMSignature)

	other, err := exec.Execute(context.Background(), types.TestItem{ID: "TC002", TargetURL: "https://example.com/b"})
	require.NoError(t, err)
	assert.NotEqual(t, first.DOMSignature, other.DOMSignature)
}

func TestSimulatedExecutorHonorsContext(t *testing.T) {
	exec := NewSimulatedExecutorWithSeed(0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, types.TestItem{ID: "TC001"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTimeoutExpires(t *testing.T) {
	slow := Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		select {
		case <-time.After(time.Second):
			return types.ExecutionResult{Status: types.StatusSuccess}, nil
		case <-ctx.Done():
			return types.ExecutionResult{}, ctx.Err()
		}
	})

	exec := WithTimeout(slow, 10*time.Millisecond)

	_, err := exec.Execute(context.Background(), types.TestItem{ID: "TC001"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeoutZeroIsPassThrough(t *testing.T) {
	inner := NewSimulatedExecutorWithSeed(0, 1)
	assert.Equal(t, Executor(inner), WithTimeout(inner, 0))
}
