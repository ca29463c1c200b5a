package main

import (
	"fmt"
	"os"
	"strconv"

	"elcs/internal/config"
	"elcs/internal/fragment"
	"elcs/internal/library"
	"elcs/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	seed       int64

	// Set up by PersistentPreRunE
	logger *zap.Logger
	cfg    *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "elcs",
		Short: "Code-fragment learning classifier system tools",
		Long: `elcs works with code-fragment classifiers: Boolean expression trees over
binary attributes, written in postfix ("D0 D1 &").

It evaluates and renders fragments, grows random ones from the fragment
library, covers instances with new classifiers, stores and exports
population snapshots, and curates exported populations into the next
abstraction level's fragment pool.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
			logging.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "elcs.yaml", "Configuration file")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Random seed (overrides config and ELCS_SEED)")

	rootCmd.AddCommand(
		newEvalCmd(),
		newPrintCmd(),
		newGenerateCmd(),
		newCoverCmd(),
		newMatchCmd(),
		newCurateCmd(),
		newExportCmd(),
		newSnapshotsCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// initLogger builds the CLI logger and hands it to the categorized loggers.
func initLogger() error {
	lc := cfg.Logging.ToLogging()
	if verbose {
		lc.Level = "debug"
	}

	if lc.File != "" {
		if err := logging.Initialize(lc); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = zap.NewNop()
		return nil
	}

	zcfg := zap.NewProductionConfig()
	if lc.Format == "console" || lc.Format == "text" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if lc.Level == "debug" {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.Use(logger, lc)
	return nil
}

// loadLibrary reads the configured fragment pools.
func loadLibrary() *library.Library {
	lib := library.LoadDir(cfg.Library.Dir, cfg.Library.MaxLevel)
	logger.Debug("Fragment library loaded",
		zap.String("dir", cfg.Library.Dir),
		zap.Ints("levels", lib.Levels()))
	return lib
}

// parseInstance reads attribute values from args.
func parseInstance(args []string) (fragment.Instance, error) {
	inst := make(fragment.Instance, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %q is not a number", i, a)
		}
		inst[i] = v
	}
	return inst, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
