package main

import (
	"fmt"

	"elcs/internal/classifier"
	"elcs/internal/logging"
	"elcs/internal/population"
	"elcs/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func openStore() (*store.SnapshotStore, error) {
	return store.Open(cfg.Store.DatabasePath)
}

func newCoverCmd() *cobra.Command {
	var (
		count      int
		label      string
		value      float64
		saveLabel  string
		exportPath string
	)
	cmd := &cobra.Command{
		Use:   "cover [values...]",
		Short: "Cover an instance with new classifiers",
		Long: `Covers the instance --count times, prints each classifier with its
deletion vote, and optionally saves the result as a snapshot or exports it.`,
		Example: `  elcs cover 1 0 1 1 0 0 --label 1 -n 5 --save demo`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := parseInstance(args)
			if err != nil {
				return err
			}
			if len(inst) != cfg.Problem.NumAttributes {
				return fmt.Errorf("got %d values, config has %d attributes", len(inst), cfg.Problem.NumAttributes)
			}

			env := cfg.Environment(loadLibrary())
			if env.Discrete && label == "" {
				return fmt.Errorf("--label is required for a discrete phenotype")
			}
			rng := cfg.NewRand()
			target := classifier.Target{Label: label, Value: value}

			timer := logging.StartTimer(logging.CategoryCovering, "cover")
			pop := make([]*classifier.Classifier, 0, count)
			for i := 0; i < count; i++ {
				cl, err := classifier.Cover(env, rng, float64(count), i, inst, target)
				if err != nil {
					return err
				}
				pop = append(pop, cl)
			}
			timer.Stop()

			votes, err := population.DeletionVotes(cmd.Context(), env, pop, cfg.Population.Workers)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-48s %-10s %s\n", "CONDITION", "PHENOTYPE", "VOTE")
			for i, cl := range pop {
				fmt.Fprintf(out, "%-48s %-10s %.4g\n", cl.ConditionString(), cl.PhenotypeString(env), votes[i])
			}

			records := population.Records(env, pop)
			if saveLabel != "" {
				s, err := openStore()
				if err != nil {
					return err
				}
				defer s.Close()
				id, err := s.Save(cmd.Context(), saveLabel, count, records)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "saved snapshot %s\n", id)
			}
			if exportPath != "" {
				if err := population.WriteFile(exportPath, records); err != nil {
					return err
				}
				fmt.Fprintf(out, "exported %d classifiers to %s\n", len(records), exportPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of classifiers to cover")
	cmd.Flags().StringVar(&label, "label", "", "Target label (discrete phenotype)")
	cmd.Flags().Float64Var(&value, "value", 0, "Target value (continuous phenotype)")
	cmd.Flags().StringVar(&saveLabel, "save", "", "Save the classifiers as a snapshot with this label")
	cmd.Flags().StringVar(&exportPath, "export", "", "Export the classifiers to a .csv or .xlsx file")
	return cmd
}

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match [snapshot-id] [values...]",
		Short: "List the classifiers of a snapshot that match an instance",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := parseInstance(args[1:])
			if err != nil {
				return err
			}
			if len(inst) != cfg.Problem.NumAttributes {
				return fmt.Errorf("got %d values, config has %d attributes", len(inst), cfg.Problem.NumAttributes)
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			env := cfg.Environment(nil)
			pop, err := rebuild(env, snap.Records)
			if err != nil {
				return err
			}

			idx, err := population.MatchSet(cmd.Context(), pop, inst, cfg.Population.Workers)
			if err != nil {
				return err
			}
			logger.Debug("Match set built", zap.String("snapshot", snap.ID), zap.Int("size", len(idx)))

			out := cmd.OutOrStdout()
			for _, i := range idx {
				fmt.Fprintf(out, "%s -> %s\n", pop[i].ConditionString(), pop[i].PhenotypeString(env))
			}
			fmt.Fprintf(out, "%d of %d classifiers match\n", len(idx), len(pop))
			return nil
		},
	}
}

// rebuild turns stored records back into classifiers.
func rebuild(env *classifier.Environment, records []population.Record) ([]*classifier.Classifier, error) {
	pop := make([]*classifier.Classifier, 0, len(records))
	for i, r := range records {
		cl, err := r.Classifier(env)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		pop = append(pop, cl)
	}
	return pop, nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export [snapshot-id] [path]",
		Short:   "Export a stored snapshot to CSV or XLSX",
		Example: `  elcs export 2b0c... population.xlsx`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := population.WriteFile(args[1], snap.Records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d classifiers to %s\n", len(snap.Records), args[1])
			return nil
		},
	}
}

func newSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List stored population snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			list, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no snapshots")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-16s %9s %6s  %s\n", "ID", "LABEL", "ITERATION", "SIZE", "CREATED")
			for _, info := range list {
				fmt.Fprintf(out, "%-36s  %-16s %9d %6d  %s\n", info.ID, info.Label, info.Iteration, info.Size,
					info.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
