// Package cli provides the ragsample command-line interface.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragsample/internal/config"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
	"github.com/custodia-labs/ragsample/internal/logger"
	"github.com/custodia-labs/ragsample/internal/telemetry"
)

// version is set at build time.
var version = "dev"

// Persistent flags.
var (
	configPath string
	envFile    string
	verbose    bool
)

// Services holds the core services the commands drive.
type Services struct {
	Ingest    driving.IngestService
	Retrieval driving.RetrievalService
	Chat      driving.ChatService
	Prompts   driven.PromptStore
	Metrics   *telemetry.Metrics

	// Close releases stores and clients. Optional.
	Close func() error
}

// Builder wires the services for a configuration.
type Builder func(ctx context.Context, cfg *config.Config) (*Services, error)

var (
	builder     Builder
	configStore driven.ConfigStore
	appConfig   *config.Config
	services    *Services
)

var rootCmd = &cobra.Command{
	Use:   "ragsample",
	Short: "Retrieval-augmented chat over books and news",
	Long: `ragsample ingests EPUB books, PDF files or RSS news into an embedding
store (Vespa, OpenSearch, SQLite or memory) and answers questions with a
local chat model grounded in the most similar segments.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.ragsample/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetBuilder sets the function that wires services once flags are parsed.
func SetBuilder(b Builder) {
	builder = b
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command until it completes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeServices()

	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	if configStore != nil {
		return nil
	}
	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configStore = store
	return nil
}

// loadConfig returns the typed configuration, reading it on first use.
func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	if configStore == nil {
		return nil, errors.New("config store not configured")
	}
	cfg, err := config.Load(configStore)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configStore.Path(), err)
	}
	appConfig = cfg
	return cfg, nil
}

// loadServices wires the services on first use.
func loadServices(ctx context.Context) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if builder == nil {
		return nil, errors.New("services not configured")
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := builder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	services = s
	return s, nil
}

func closeServices() {
	if services == nil || services.Close == nil {
		return
	}
	if err := services.Close(); err != nil {
		logger.Warn("closing services: %v", err)
	}
}
