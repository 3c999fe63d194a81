package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragsample/internal/adapters/driving/grpcapi"
	"github.com/custodia-labs/ragsample/internal/adapters/driving/httpapi"
)

var (
	serveGRPCPort int
	serveHTTP     bool
	serveHTTPPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Ask API over gRPC",
	Long: `Starts the gRPC service ragsample.RagSample with a single method,
Ask(google.protobuf.StringValue) returns (google.protobuf.StringValue), plus
the standard grpc.health.v1 health service.

With --http a JSON API is served as well:
  POST /api/ask     {"question": "..."}
  POST /api/search  {"query": "...", "maxResults": 5, "minScore": 0.6}
  GET  /health`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&serveGRPCPort, "grpc-port", 0, "gRPC port (default server.grpcPort)")
	serveCmd.Flags().BoolVar(&serveHTTP, "http", false, "also serve the JSON API")
	serveCmd.Flags().IntVar(&serveHTTPPort, "http-port", 0, "HTTP port (default server.httpPort)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Chat == nil {
		return errors.New("chat service not configured")
	}

	grpcPort := cfg.Server.GRPCPort
	if serveGRPCPort > 0 {
		grpcPort = serveGRPCPort
	}
	httpPort := cfg.Server.HTTPPort
	if serveHTTPPort > 0 {
		httpPort = serveHTTPPort
	}

	grpcServer, err := grpcapi.NewServer(svc.Chat)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return grpcServer.Run(ctx, fmt.Sprintf(":%d", grpcPort))
	})
	cmd.Printf("gRPC server listening on :%d\n", grpcPort)

	if serveHTTP {
		httpServer, err := httpapi.NewServer(httpapi.Ports{Retrieval: svc.Retrieval, Chat: svc.Chat})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return httpServer.Run(ctx, fmt.Sprintf(":%d", httpPort))
		})
		cmd.Printf("HTTP server listening on :%d\n", httpPort)
	}

	return g.Wait()
}
