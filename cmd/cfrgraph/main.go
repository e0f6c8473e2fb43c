package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/config"
)

var Version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	storePath   string
	snapshotDir string
}

func main() {
	log.SetFlags(0)
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("cfrgraph: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "cfrgraph",
		Short:         "Ingest the eCFR into an entity graph and report on it",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&flags.storePath, "db", "", "SQLite path, overrides store.path")
	root.PersistentFlags().StringVar(&flags.snapshotDir, "snapshot-dir", "", "read upstream payloads from a snapshot directory")

	root.AddCommand(
		ingestCmd(&flags),
		snapshotCmd(&flags),
		agenciesCmd(&flags),
		titlesCmd(&flags),
		sectionsCmd(&flags),
		reportCmd(&flags),
		summaryCmd(&flags),
	)
	return root
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		var err error
		if cfg, err = config.Load(flags.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if flags.storePath != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.Path = flags.storePath
	}
	if flags.snapshotDir != "" {
		cfg.API.SnapshotDir = flags.snapshotDir
	}
	return cfg, cfg.Validate()
}

// openEngine loads configuration, applies adjust, installs the logger and
// opens the engine.
func openEngine(ctx context.Context, cmd *cobra.Command, flags *globalFlags, adjust ...func(*config.Config)) (*cfrgraph.Engine, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(&cfg)
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cfrgraph.Open(ctx, cfrgraph.Options{Config: cfg, Logger: logger})
}

func newLogger(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
