package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
	"github.com/custodia-labs/ragsample/internal/logger"
)

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("grpc: chat service is required")

// Ensure Server implements the service API.
var _ RagSampleServer = (*Server)(nil)

// Server answers Ask calls with the stateless chat service and reports its
// state through the standard health service.
type Server struct {
	chat   driving.ChatService
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates a server. Extra options are passed to grpc.NewServer.
func NewServer(chat driving.ChatService, opts ...grpc.ServerOption) (*Server, error) {
	if chat == nil {
		return nil, ErrMissingChatService
	}

	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(logRequests),
	}, opts...)

	s := &Server{
		chat:   chat,
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
	}
	RegisterRagSampleServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, nil
}

// Ask answers a single question.
func (s *Server) Ask(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	question := strings.TrimSpace(in.GetValue())
	if question == "" {
		return nil, status.Error(codes.InvalidArgument, "question is empty")
	}

	answer, err := s.chat.Ask(ctx, question)
	if err != nil {
		logger.Error("grpc: ask failed: %v", err)
		return nil, status.Error(Code(err), err.Error())
	}
	return wrapperspb.String(answer.Text), nil
}

// Serve accepts connections on lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	logger.Info("gRPC server listening on %s", lis.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.GracefulStop()
		return nil
	}
}

// GracefulStop marks the service as not serving and drains open calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Code maps a service error onto a gRPC status code.
func Code(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, domain.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrUnsupported), errors.Is(err, domain.ErrUnsupportedType):
		return codes.Unimplemented
	case errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrTransport):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func logRequests(
	ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.Debug("grpc: %s %s in %v", info.FullMethod, status.Code(err), time.Since(start))
	return resp, err
}
