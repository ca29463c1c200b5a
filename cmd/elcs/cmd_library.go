package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elcs/internal/curation"
	"elcs/internal/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCurateCmd() *cobra.Command {
	var level int
	cmd := &cobra.Command{
		Use:   "curate [export-file]",
		Short: "Harvest fragments from an exported population into a pool",
		Long: `Reads an exported population (.csv or .xlsx), keeps the rows whose fitness,
accuracy and match count all exceed their column means, and appends the
fragments they use to CF_L<level>.csv in the library directory.`,
		Example: `  elcs curate population.xlsx --level 2`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := loadLibrary()
			res, err := curation.CurateFile(args[0], cfg.Library.Dir, level, lib)
			if err != nil {
				return err
			}
			logger.Info("Curation complete",
				zap.Int("level", res.Level),
				zap.Int("selected", res.Selected),
				zap.Int("added", res.Added))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "thresholds: fitness>%.4g accuracy>%.4g match_count>%.4g\n",
				res.Thresholds.Fitness, res.Thresholds.Accuracy, res.Thresholds.MatchCount)
			fmt.Fprintf(out, "selected %d rows, %d fragments, %d new\n", res.Selected, len(res.Fragments), res.Added)
			fmt.Fprintf(out, "%s now holds %d fragments\n", library.PoolFileName(res.Level), res.PoolSize)
			return nil
		},
	}
	cmd.Flags().IntVarP(&level, "level", "l", 2, "Pool level to publish into")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var runFor time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the library directory and reload pools as they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := loadLibrary()
			w, err := library.NewWatcher(cfg.Library.Dir, lib, cfg.GetDebounce())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if runFor > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runFor)
				defer cancel()
			}

			if err := w.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", cfg.Library.Dir)

			<-ctx.Done()
			w.Stop()

			st := w.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "events=%d reloads=%d errors=%d\n", st.Events, st.Reloads, st.Errors)
			for _, lvl := range lib.Levels() {
				fmt.Fprintf(cmd.OutOrStdout(), "level %d: %d fragments\n", lvl, lib.Len(lvl))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&runFor, "for", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}
