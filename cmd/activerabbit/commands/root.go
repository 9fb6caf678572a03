// Package commands implements the activerabbit CLI.
//
// The CLI is a diagnostic companion for the SDK: it verifies collector
// credentials and sends ad-hoc exception, event, and performance records
// through the same client and delivery pipeline an instrumented
// application uses.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit"
)

var (
	// Global flags
	configPath string
	apiKey     string
	projectID  string
	endpoint   string
	verbose    bool
)

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "activerabbit",
		Short: "ActiveRabbit collector diagnostics",
		Long: `Diagnostic companion for the ActiveRabbit Go SDK.

Verifies collector credentials and sends ad-hoc exception, event, and
performance records, using the same client and delivery pipeline as an
instrumented application.`,
		Version:       activerabbit.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file path")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "collector API key (overrides config file)")
	rootCmd.PersistentFlags().StringVar(&projectID, "project", "", "project identifier (overrides config file)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "collector base URL (overrides config file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newTestConnectionCommand())
	rootCmd.AddCommand(newEventCommand())
	rootCmd.AddCommand(newExceptionCommand())
	rootCmd.AddCommand(newPerfCommand())

	return rootCmd
}

// loadConfig merges the config file, when one is given, with flag overrides.
func loadConfig() (activerabbit.Config, error) {
	var cfg activerabbit.Config
	if configPath != "" {
		loaded, err := activerabbit.LoadConfig(configPath)
		if err != nil {
			return activerabbit.Config{}, err
		}
		cfg = loaded
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if projectID != "" {
		cfg.ProjectID = projectID
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if cfg.APIKey == "" {
		return activerabbit.Config{}, fmt.Errorf("an API key is required: pass --api-key or set api_key in the config file")
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return logCfg.Build()
}

// buildClient constructs a client from the merged configuration.
func buildClient() (*activerabbit.Client, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	client, err := activerabbit.New(cfg, activerabbit.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return client, logger, nil
}

// shutdown drains the delivery queue with a bounded deadline.
func shutdown(ctx context.Context, client *activerabbit.Client, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := client.Shutdown(ctx)
	_ = logger.Sync()
	return err
}

// parsePairs turns repeated key=value flags into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed pair %q, want key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
