package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

type mockChat struct {
	err   error
	asked []string
}

func (m *mockChat) Ask(_ context.Context, question string) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Answer{Question: question, Text: "answer to " + question}, nil
}

func (m *mockChat) NewSession() driving.ChatSession { return nil }

// dial starts srv on an in-memory listener and returns a connected client.
func dial(t *testing.T, srv *Server) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.GracefulStop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewServer_RequiresChat(t *testing.T) {
	_, err := NewServer(nil)

	assert.ErrorIs(t, err, ErrMissingChatService)
}

func TestServer_Ask(t *testing.T) {
	chat := &mockChat{}
	srv, err := NewServer(chat)
	require.NoError(t, err)
	client := NewClient(dial(t, srv))

	answer, err := client.Ask(context.Background(), "  who won?  ")

	require.NoError(t, err)
	assert.Equal(t, "answer to who won?", answer)
	assert.Equal(t, []string{"who won?"}, chat.asked)
}

func TestServer_Ask_Errors(t *testing.T) {
	tests := []struct {
		name     string
		question string
		chatErr  error
		want     codes.Code
	}{
		{"empty question", "   ", nil, codes.InvalidArgument},
		{"llm unavailable", "q", fmt.Errorf("%w: connection refused", domain.ErrLLMUnavailable), codes.Unavailable},
		{"store unavailable", "q", domain.ErrStoreUnavailable, codes.Unavailable},
		{"backend failure", "q", fmt.Errorf("search: %w", domain.ErrBackend), codes.Internal},
		{"invalid input", "q", domain.ErrInvalidInput, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewServer(&mockChat{err: tt.chatErr})
			require.NoError(t, err)
			client := NewClient(dial(t, srv))

			_, err = client.Ask(context.Background(), tt.question)

			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestServer_Health(t *testing.T) {
	srv, err := NewServer(&mockChat{})
	require.NoError(t, err)
	health := healthpb.NewHealthClient(dial(t, srv))

	resp, err := health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})

	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestServer_Run_StopsOnCancel(t *testing.T) {
	srv, err := NewServer(&mockChat{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	cancel()

	assert.NoError(t, <-done)
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{fmt.Errorf("x: %w", domain.ErrInvalidInput), codes.InvalidArgument},
		{domain.ErrNotFound, codes.NotFound},
		{domain.ErrUnsupported, codes.Unimplemented},
		{domain.ErrEmbeddingUnavailable, codes.Unavailable},
		{domain.ErrTransport, codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
