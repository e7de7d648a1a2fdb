package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// BacktestsServiceName is the fully qualified gRPC service name.
const BacktestsServiceName = "protrader.v1.Backtests"

const runBacktestMethod = "/" + BacktestsServiceName + "/RunBacktest"

// BacktestsServer is the server API for the Backtests service. Messages are
// generic structs carrying the same fields as the JSON API.
type BacktestsServer interface {
	RunBacktest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// BacktestsServiceDesc describes the Backtests service for grpc.Server.
var BacktestsServiceDesc = grpc.ServiceDesc{
	ServiceName: BacktestsServiceName,
	HandlerType: (*BacktestsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunBacktest", Handler: runBacktestHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "protrader/v1/backtests",
}

func runBacktestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BacktestsServer).RunBacktest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runBacktestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BacktestsServer).RunBacktest(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCServer adapts a Service to BacktestsServer.
type GRPCServer struct {
	svc *Service
}

var _ BacktestsServer = (*GRPCServer)(nil)

// NewGRPCServer creates the gRPC front end for svc.
func NewGRPCServer(svc *Service) *GRPCServer { return &GRPCServer{svc: svc} }

// Register adds the Backtests service to gs.
func (g *GRPCServer) Register(gs *grpc.Server) {
	gs.RegisterService(&BacktestsServiceDesc, g)
}

// RunBacktest decodes the request struct, runs the backtest and returns the
// run as a struct.
func (g *GRPCServer) RunBacktest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req BacktestRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding request: %v", err)
	}
	run, err := g.svc.RunBacktest(ctx, req)
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}
	out, err := toStruct(run)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

// grpcCode mirrors httpStatus for gRPC callers.
func grpcCode(err error) codes.Code {
	switch httpStatus(err) {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusUnprocessableEntity:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes s into v through its JSON encoding.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("empty message")
	}
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// GRPCClient calls the Backtests service over conn.
type GRPCClient struct {
	conn grpc.ClientConnInterface
}

// NewGRPCClient wraps an established connection.
func NewGRPCClient(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// RunBacktest runs req remotely and decodes the returned run.
func (c *GRPCClient) RunBacktest(ctx context.Context, req BacktestRequest, opts ...grpc.CallOption) (*RunJSON, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, runBacktestMethod, in, out, opts...); err != nil {
		return nil, err
	}
	var run RunJSON
	if err := fromStruct(out, &run); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &run, nil
}
