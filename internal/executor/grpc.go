package executor

// ============================================================================
// Remote Executor Client
// Responsibility: reach the browser-automation backend over gRPC.
//
// The scheduler side is a pure client: one unary method, Execute, carrying a
// TestItem out and an ExecutionResult back through the JSON codec.
// ============================================================================

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// ServiceName is the fully qualified executor service name.
const ServiceName = "gaia.scheduler.v1.ExecutorService"

const executeMethod = "/" + ServiceName + "/Execute"

// GRPCExecutor invokes a remote execution backend.
type GRPCExecutor struct {
	conn grpc.ClientConnInterface
}

// NewGRPCExecutor wraps an established gRPC connection.
func NewGRPCExecutor(conn grpc.ClientConnInterface) *GRPCExecutor {
	return &GRPCExecutor{conn: conn}
}

// Dial creates a client connection to a backend address. Transport security
// is plaintext; the backend is expected to live on a trusted test network.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to executor backend: %w", err)
	}
	return conn, nil
}

// Execute sends the item to the backend and returns its reported result.
// Transport-level failures surface as errors, never as fabricated results.
func (e *GRPCExecutor) Execute(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
	var result types.ExecutionResult

	err := e.conn.Invoke(ctx, executeMethod, &item, &result, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return types.ExecutionResult{}, fmt.Errorf("executor rpc failed: %w", err)
	}

	return result, nil
}
