package main

import (
	"fmt"

	"github.com/loomvcs/loom/pkg/graph"
	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newMergeBaseCmd() *cobra.Command {
	var isAncestor bool

	cmd := &cobra.Command{
		Use:   "merge-base <ref-a> <ref-b>",
		Short: "Find the common ancestor of two commits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			a, err := r.ResolveRef(args[0])
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", args[0], err)
			}
			b, err := r.ResolveRef(args[1])
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", args[1], err)
			}

			nav := graph.NewNavigator(r.Store)
			out := cmd.OutOrStdout()

			if isAncestor {
				if nav.IsAncestor(a, b) {
					fmt.Fprintf(out, "%s is an ancestor of %s\n", args[0], args[1])
					return nil
				}
				return fmt.Errorf("%s is not an ancestor of %s", args[0], args[1])
			}

			base, err := nav.FindMergeBase(a, b)
			if err != nil {
				return err
			}
			if base == "" {
				return fmt.Errorf("%s and %s have no common ancestor", args[0], args[1])
			}
			fmt.Fprintln(out, base)
			return nil
		},
	}

	cmd.Flags().BoolVar(&isAncestor, "is-ancestor", false, "test whether the first commit is an ancestor of the second")
	return cmd
}
