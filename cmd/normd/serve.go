package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/model"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/normd"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/normopt"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/logger"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	if cmd.Flags().Changed("http-addr") {
		cfg.Server.HTTPAddr = httpAddr
	}
	if cmd.Flags().Changed("grpc-addr") {
		cfg.Server.GRPCAddr = grpcAddr
	}

	optimizers := search.DefaultRegistry()
	state, err := normd.BuildState(cfg, model.DefaultRegistry(), optimizers)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	service := normd.NewService(normd.NewHolder(state), normopt.New(optimizers), optimizers, collector, cfg.Server.ExposeDetail())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// TODO: Configure gRPC server security (e.g., TLS, authentication, rate limiting)
	// before using this service in a production environment.
	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(normd.UnaryInterceptor(collector)))
		normd.RegisterNormOptimizerServer(grpcServer, normd.NewGRPCServer(service))

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(grpcLis); err != nil {
				logger.Error("gRPC server error", "error", err)
				stop()
			}
		}()
	}

	// WriteTimeout stays at the configured value (0 by default): a request to
	// /opt_norms lasts as long as the optimization run.
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           normd.NewHTTPServer(service).Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr,
			"optimizer", state.OptimizerClass,
			"model", state.ModelName,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		stopGRPC(shutdownCtx, grpcServer)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
		// Close cancels the contexts of requests still running an optimization.
		_ = httpSrv.Close()
	}
	return nil
}

type grpcStopper interface {
	GracefulStop()
	Stop()
}

// stopGRPC drains in-flight RPCs until ctx expires, then closes the
// remaining connections so their handlers see a cancelled context.
func stopGRPC(ctx context.Context, srv grpcStopper) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("gRPC graceful stop timed out, closing connections")
		srv.Stop()
		<-done
	}
}
