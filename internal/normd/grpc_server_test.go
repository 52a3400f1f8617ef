package normd

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func startGRPC(t *testing.T, runner Runner) (*Service, *grpc.ClientConn) {
	t.Helper()
	svc := newTestService(t, runner, true)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryInterceptor(svc.Metrics())))
	RegisterNormOptimizerServer(srv, NewGRPCServer(svc))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return svc, conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in, out proto.Message) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return conn.Invoke(ctx, "/"+GRPCServiceName+"/"+method, in, out)
}

func TestGRPCServerSetters(t *testing.T) {
	svc, conn := startGRPC(t, &fakeRunner{})

	if err := invoke(t, conn, "SetPathLength", wrapperspb.Int64(25), &emptypb.Empty{}); err != nil {
		t.Fatalf("SetPathLength error: %v", err)
	}
	if err := invoke(t, conn, "SetPathSample", wrapperspb.Int64(40), &emptypb.Empty{}); err != nil {
		t.Fatalf("SetPathSample error: %v", err)
	}
	if err := invoke(t, conn, "SetOptimizerClass", wrapperspb.String("PSO"), &emptypb.Empty{}); err != nil {
		t.Fatalf("SetOptimizerClass error: %v", err)
	}

	kwargs, _ := structpb.NewStruct(map[string]any{"pop_size": 12, "w_max": 0.8})
	if err := invoke(t, conn, "SetOptimizerKwargs", kwargs, &emptypb.Empty{}); err != nil {
		t.Fatalf("SetOptimizerKwargs error: %v", err)
	}
	args, _ := structpb.NewList([]any{30})
	if err := invoke(t, conn, "SetOptimizerArgs", args, &emptypb.Empty{}); err != nil {
		t.Fatalf("SetOptimizerArgs error: %v", err)
	}
	term, _ := structpb.NewStruct(map[string]any{"max_fe": 500})
	if err := invoke(t, conn, "SetTermination", term, &emptypb.Empty{}); err != nil {
		t.Fatalf("SetTermination error: %v", err)
	}

	st := svc.Holder().Snapshot()
	if st.PathLength != 25 || st.PathSample != 40 {
		t.Fatalf("unexpected path settings %d/%d", st.PathLength, st.PathSample)
	}
	if st.OptimizerClass != "swarm_based.PSO.OriginalPSO" {
		t.Fatalf("unexpected optimizer %s", st.OptimizerClass)
	}
	if st.OptKwargs["pop_size"] != float64(12) || st.OptKwargs["w_max"] != 0.8 {
		t.Fatalf("unexpected kwargs %v", st.OptKwargs)
	}
	if len(st.OptArgs) != 1 || st.OptArgs[0] != float64(30) {
		t.Fatalf("unexpected args %v", st.OptArgs)
	}
	if st.Termination["max_fe"] != float64(500) {
		t.Fatalf("unexpected termination %v", st.Termination)
	}

	var cfg structpb.Struct
	if err := invoke(t, conn, "GetConfig", &emptypb.Empty{}, &cfg); err != nil {
		t.Fatalf("GetConfig error: %v", err)
	}
	if got := cfg.AsMap()[FieldPathLength]; got != float64(25) {
		t.Fatalf("expected path_length 25 in config, got %v", got)
	}
}

func TestGRPCServerOptimizeNorms(t *testing.T) {
	_, conn := startGRPC(t, &fakeRunner{})

	var out structpb.Struct
	if err := invoke(t, conn, "OptimizeNorms", &emptypb.Empty{}, &out); err != nil {
		t.Fatalf("OptimizeNorms error: %v", err)
	}
	m := out.AsMap()
	if m["algn"] != 0.75 {
		t.Fatalf("expected algn 0.75, got %v", m["algn"])
	}
	norms, _ := m["norms"].(map[string]any)
	tax, _ := norms["tax"].(map[string]any)
	if tax["rate_1"] != 0.5 {
		t.Fatalf("unexpected norms %v", m["norms"])
	}
}

func TestGRPCServerErrorCodes(t *testing.T) {
	_, conn := startGRPC(t, &fakeRunner{err: errors.New("model exploded")})

	badKwargs, _ := structpb.NewStruct(map[string]any{"population": 5})
	badTerm, _ := structpb.NewStruct(map[string]any{"max_epoch": 0})

	cases := []struct {
		name   string
		method string
		in     proto.Message
		out    proto.Message
		code   codes.Code
	}{
		{"unknown optimizer", "SetOptimizerClass", wrapperspb.String("mealpy.Nope"), &emptypb.Empty{}, codes.NotFound},
		{"bad kwargs", "SetOptimizerKwargs", badKwargs, &emptypb.Empty{}, codes.InvalidArgument},
		{"bad termination", "SetTermination", badTerm, &emptypb.Empty{}, codes.InvalidArgument},
		{"run failure", "OptimizeNorms", &emptypb.Empty{}, &structpb.Struct{}, codes.Aborted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := invoke(t, conn, tc.method, tc.in, tc.out)
			if status.Code(err) != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestUnaryInterceptorRecoversPanics(t *testing.T) {
	interceptor := UnaryInterceptor(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/" + GRPCServiceName + "/GetConfig"}

	_, err := interceptor(context.Background(), &emptypb.Empty{}, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}
