package normd

import (
	"context"
	"fmt"
	"path"
	"runtime/debug"
	"time"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPCServiceName is the fully-qualified gRPC service name
const GRPCServiceName = "normopt.v1.NormOptimizer"

// NormOptimizerServer is the server API of the NormOptimizer service.
type NormOptimizerServer interface {
	OptimizeNorms(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetConfig(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetOptimizerClass(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	SetOptimizerArgs(context.Context, *structpb.ListValue) (*emptypb.Empty, error)
	SetOptimizerKwargs(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetTermination(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetPathLength(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
	SetPathSample(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

// NormOptimizerServiceDesc describes the service over well-known protobuf types.
var NormOptimizerServiceDesc = grpc.ServiceDesc{
	ServiceName: GRPCServiceName,
	HandlerType: (*NormOptimizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OptimizeNorms", Handler: unary[emptypb.Empty]("OptimizeNorms", NormOptimizerServer.OptimizeNorms)},
		{MethodName: "GetConfig", Handler: unary[emptypb.Empty]("GetConfig", NormOptimizerServer.GetConfig)},
		{MethodName: "SetOptimizerClass", Handler: unary[wrapperspb.StringValue]("SetOptimizerClass", NormOptimizerServer.SetOptimizerClass)},
		{MethodName: "SetOptimizerArgs", Handler: unary[structpb.ListValue]("SetOptimizerArgs", NormOptimizerServer.SetOptimizerArgs)},
		{MethodName: "SetOptimizerKwargs", Handler: unary[structpb.Struct]("SetOptimizerKwargs", NormOptimizerServer.SetOptimizerKwargs)},
		{MethodName: "SetTermination", Handler: unary[structpb.Struct]("SetTermination", NormOptimizerServer.SetTermination)},
		{MethodName: "SetPathLength", Handler: unary[wrapperspb.Int64Value]("SetPathLength", NormOptimizerServer.SetPathLength)},
		{MethodName: "SetPathSample", Handler: unary[wrapperspb.Int64Value]("SetPathSample", NormOptimizerServer.SetPathSample)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "normopt/v1/normopt.proto",
}

// RegisterNormOptimizerServer registers srv on s
func RegisterNormOptimizerServer(s grpc.ServiceRegistrar, srv NormOptimizerServer) {
	s.RegisterService(&NormOptimizerServiceDesc, srv)
}

func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](method string, call func(NormOptimizerServer, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + GRPCServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(NormOptimizerServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCServer implements NormOptimizerServer on top of a Service.
type GRPCServer struct {
	service *Service
}

var _ NormOptimizerServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new GRPCServer
func NewGRPCServer(service *Service) *GRPCServer {
	return &GRPCServer{service: service}
}

func (g *GRPCServer) OptimizeNorms(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	res, err := g.service.Optimize(ctx)
	if err != nil {
		return nil, g.statusError("OptimizeNorms", err)
	}
	out, err := structpb.NewStruct(ResultView(res))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (g *GRPCServer) GetConfig(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(g.service.Config())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (g *GRPCServer) SetOptimizerClass(_ context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := g.service.SetOptimizerClass(req.GetValue()); err != nil {
		return nil, g.statusError("SetOptimizerClass", err)
	}
	return &emptypb.Empty{}, nil
}

func (g *GRPCServer) SetOptimizerArgs(_ context.Context, req *structpb.ListValue) (*emptypb.Empty, error) {
	if err := g.service.SetOptimizerArgs(req.AsSlice()); err != nil {
		return nil, g.statusError("SetOptimizerArgs", err)
	}
	return &emptypb.Empty{}, nil
}

func (g *GRPCServer) SetOptimizerKwargs(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if err := g.service.SetOptimizerKwargs(req.AsMap()); err != nil {
		return nil, g.statusError("SetOptimizerKwargs", err)
	}
	return &emptypb.Empty{}, nil
}

func (g *GRPCServer) SetTermination(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if err := g.service.SetTermination(req.AsMap()); err != nil {
		return nil, g.statusError("SetTermination", err)
	}
	return &emptypb.Empty{}, nil
}

func (g *GRPCServer) SetPathLength(_ context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	g.service.SetPathLength(int(req.GetValue()))
	return &emptypb.Empty{}, nil
}

func (g *GRPCServer) SetPathSample(_ context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	g.service.SetPathSample(int(req.GetValue()))
	return &emptypb.Empty{}, nil
}

func (g *GRPCServer) statusError(method string, err error) error {
	code := grpcCode(err)
	logger.Warn("rpc failed", "method", method, "code", code.String(), "error", err)
	return status.Error(code, g.service.Describe(err))
}

// UnaryInterceptor records request metrics and turns handler panics into
// Internal errors.
func UnaryInterceptor(collector *metrics.Collector) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("rpc panicked", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				resp = nil
				err = status.Error(codes.Internal, fmt.Sprintf("panic: %v", r))
			}
			if collector != nil {
				collector.ObserveRequest(metrics.TransportGRPC, path.Base(info.FullMethod), int(status.Code(err)), time.Since(start))
			}
		}()
		return handler(ctx, req)
	}
}
