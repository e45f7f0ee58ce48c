package executor

// ============================================================================
// Executor Service Harness
// Responsibility: serve any local Executor implementation over gRPC so that
// a backend process (or the built-in simulator) can answer the scheduler's
// Execute calls.
//
// The service descriptor is written out by hand: the method set is one unary
// call and the payloads are JSON structs, so generated stubs would add
// nothing but a build step.
// ============================================================================

import (
	"context"

	"google.golang.org/grpc"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// RegisterExecutorServer exposes exec as the ExecutorService on s.
func RegisterExecutorServer(s *grpc.Server, exec Executor) {
	s.RegisterService(&executorServiceDesc, exec)
}

var executorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Executor)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    executeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gaia/scheduler/v1/executor.proto",
}

func executeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(types.TestItem)
	if err := dec(in); err != nil {
		return nil, err
	}

	exec := srv.(Executor)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		result, err := exec.Execute(ctx, *req.(*types.TestItem))
		if err != nil {
			return nil, err
		}
		return &result, nil
	}

	if interceptor == nil {
		return handler(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: executeMethod,
	}
	return interceptor(ctx, in, info, handler)
}
