package main

import (
	"fmt"

	"elcs/internal/fragment"
	"elcs/internal/treeprint"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval [expression] [values...]",
		Short: "Evaluate a postfix fragment on an instance",
		Example: `  elcs eval "D0 D1 &" 1 1
  elcs eval "D2 ~" 0 1 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := fragment.ParsePostfix(args[0])
			if err != nil {
				return err
			}
			inst, err := parseInstance(args[1:])
			if err != nil {
				return err
			}
			if vars := fragment.Variables(tree); len(vars) > 0 && vars[len(vars)-1] >= len(inst) {
				return fmt.Errorf("expression reads D%d but only %d values were given", vars[len(vars)-1], len(inst))
			}
			fmt.Fprintln(cmd.OutOrStdout(), fragment.Evaluate(tree, inst))
			return nil
		},
	}
}

func newPrintCmd() *cobra.Command {
	var (
		format string
		color  bool
	)
	cmd := &cobra.Command{
		Use:     "print [expression]",
		Short:   "Render a postfix fragment as a tree",
		Example: `  elcs print "D16 D15 ~ D14 nor nand D16 D16 nor &"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out string
				err error
			)
			switch format {
			case "ascii":
				if color {
					out, err = treeprint.DefaultStyler().ASCII(args[0])
				} else {
					out, err = treeprint.ASCII(args[0])
				}
			case "paren":
				out, err = treeprint.Parenthesized(args[0])
			default:
				return fmt.Errorf("unknown format %q (valid: ascii, paren)", format)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "ascii", "Output format: ascii or paren")
	cmd.Flags().BoolVar(&color, "color", false, "Color operators and terminals")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		count int
		level int
		depth int
		tree  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Grow random fragments over the configured attributes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("level") {
				level = cfg.Generation.Level
			}
			if !cmd.Flags().Changed("depth") {
				depth = cfg.Generation.MaxDepth
			}
			env := cfg.Environment(nil)
			rng := cfg.NewRand()

			var lib fragment.Library
			if level > 1 {
				lib = loadLibrary()
			}
			logger.Debug("Generating fragments",
				zap.Int("count", count), zap.Int("level", level), zap.Int("depth", depth))

			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				n := fragment.Generate(rng, env.Variables(), level, depth, lib)
				expr := fragment.ToPostfix(n)
				fmt.Fprintln(out, expr)
				if tree {
					fmt.Fprintln(out, treeprint.FromTree(n).String())
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of fragments")
	cmd.Flags().IntVar(&level, "level", 1, "Abstraction level (default from config)")
	cmd.Flags().IntVar(&depth, "depth", 2, "Maximum depth (default from config)")
	cmd.Flags().BoolVar(&tree, "tree", false, "Also print each fragment as a tree")
	return cmd
}
