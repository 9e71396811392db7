package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/shanmiteko/bili-login/internal/server/handler/rpc"
	"github.com/shanmiteko/bili-login/internal/server/handler/web"
	"github.com/shanmiteko/bili-login/internal/server/service"
)

type RPCConfig struct {
	Addr   string
	Logger *zerolog.Logger
}

type HTTPConfig struct {
	Addr   string
	Logger *zerolog.Logger
}

type Server struct {
	RPC  RPCConfig
	HTTP HTTPConfig

	FlowService *service.FlowService
}

// ServeRPC serves the LoginFlow service until ctx is cancelled.
func (s *Server) ServeRPC(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.RPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to init server: %w", err)
	}
	return s.serveRPC(ctx, ln)
}

func (s *Server) serveRPC(ctx context.Context, ln net.Listener) error {
	logger := loggerOrNop(s.RPC.Logger)
	logger.Info().
		Str("address", ln.Addr().String()).
		Msg("started server")

	inst := grpc.NewServer()
	rpc.RegisterLoginFlowServer(inst, &rpc.LoginFlowHandler{
		Service: s.FlowService,
	})

	reflection.Register(inst)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		inst.GracefulStop()
	}()

	if err := inst.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ServeHTTP serves the JSON flow endpoints until ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to init server: %w", err)
	}
	return s.serveHTTP(ctx, ln)
}

func (s *Server) serveHTTP(ctx context.Context, ln net.Listener) error {
	logger := loggerOrNop(s.HTTP.Logger)
	logger.Info().
		Str("address", ln.Addr().String()).
		Msg("started server")

	srv := &http.Server{
		Handler: web.New(&web.FlowHandler{Service: s.FlowService}),
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		srv.Shutdown(context.Background())
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func loggerOrNop(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return logger
}
