package executor

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// startBufconnBackend serves exec over an in-memory listener and returns a
// connected client conn.
func startBufconnBackend(t *testing.T, exec Executor) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	RegisterExecutorServer(server, exec)

	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestGRPCExecutorRoundTrip(t *testing.T) {
	backend := Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		return types.ExecutionResult{
			Status:       types.StatusSuccess,
			DOMSignature: "sig-" + string(item.ID),
			CurrentURL:   item.TargetURL,
			Details:      map[string]interface{}{"echo": string(item.ID)},
		}, nil
	})

	conn := startBufconnBackend(t, backend)
	client := NewGRPCExecutor(conn)

	result, err := client.Execute(context.Background(), types.TestItem{
		ID:        "TC001",
		Priority:  types.PriorityMust,
		TargetURL: "https://example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusSuccess, result.Status)
	assert.Equal(t, "sig-TC001", result.DOMSignature)
	assert.Equal(t, "https://example.com", result.CurrentURL)
	assert.Equal(t, "TC001", result.Details["echo"])
}

func TestGRPCExecutorCarriesPayload(t *testing.T) {
	backend := Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		// Opaque payload fields must survive the wire.
		if item.Payload["steps"] == nil {
			return types.ExecutionResult{Status: types.StatusFailed, Error: "payload lost"}, nil
		}
		return types.ExecutionResult{Status: types.StatusSuccess}, nil
	})

	conn := startBufconnBackend(t, backend)
	client := NewGRPCExecutor(conn)

	result, err := client.Execute(context.Background(), types.TestItem{
		ID:      "TC001",
		Payload: map[string]interface{}{"steps": []interface{}{"click", "submit"}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, result.Status)
}

func TestGRPCExecutorBackendError(t *testing.T) {
	backend := Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		return types.ExecutionResult{}, errors.New("browser crashed")
	})

	conn := startBufconnBackend(t, backend)
	client := NewGRPCExecutor(conn)

	_, err := client.Execute(context.Background(), types.TestItem{ID: "TC001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser crashed")
}

func TestGRPCExecutorRespectsDeadline(t *testing.T) {
	backend := Func(func(ctx context.Context, item types.TestItem) (types.ExecutionResult, error) {
		select {
		case <-time.After(time.Second):
			return types.ExecutionResult{Status: types.StatusSuccess}, nil
		case <-ctx.Done():
			return types.ExecutionResult{}, ctx.Err()
		}
	})

	conn := startBufconnBackend(t, backend)
	client := WithTimeout(NewGRPCExecutor(conn), 20*time.Millisecond)

	_, err := client.Execute(context.Background(), types.TestItem{ID: "TC001"})
	require.Error(t, err)
}
