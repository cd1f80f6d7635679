package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"consultai/internal/config"
	"consultai/internal/engagement"
	"consultai/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string
	ownerID    string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "consultai",
	Short: "consultai - consulting engagement tracker with an AI assistant",
	Long: `consultai tracks consulting engagements (opportunities) through the
delivery phases pre_assessment, discovery, solution_design, and
implementation, files typed artifacts against each phase, and feeds the
engagement context to an AI assistant that can read and write the same data
through a fixed tool set.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.consultai/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "owner identity (default $CONSULTAI_OWNER or \"local\")")

	rootCmd.AddCommand(opportunityCmd)
	rootCmd.AddCommand(artifactCmd)
	rootCmd.AddCommand(phaseCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(chatCmd)
}

// owner resolves the opaque owner identity for this invocation. Identity
// comes from outside; nothing here authenticates it.
func owner() string {
	if ownerID != "" {
		return ownerID
	}
	if env := os.Getenv("CONSULTAI_OWNER"); env != "" {
		return env
	}
	return "local"
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = home + "/.consultai/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openService builds the engagement service on the configured backend.
// Callers must Close the returned store.
func openService() (*engagement.Service, store.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	var st store.Store
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		st = store.NewMemoryStore()
	case config.BackendSQLite:
		st, err = store.NewSQLiteStore(cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return engagement.NewService(st, logger), st, cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
