package main

import (
	"fmt"

	"github.com/loomvcs/loom/pkg/graph"
	"github.com/loomvcs/loom/pkg/merge"
	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var noFF bool

	cmd := &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a branch into the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			branchName := args[0]

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			current, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			if current == "" {
				return fmt.Errorf("merge: HEAD is detached")
			}

			currentTip, err := r.ResolveRef(current)
			if err != nil {
				return fmt.Errorf("merge: cannot resolve %q: %w", current, err)
			}
			incoming, err := r.ResolveRef(branchName)
			if err != nil {
				return fmt.Errorf("merge: cannot resolve %q: %w", branchName, err)
			}

			nav := graph.NewNavigator(r.Store)
			base, err := nav.FindMergeBase(currentTip, incoming)
			if err != nil {
				return err
			}
			if base == "" {
				return fmt.Errorf("merge: %s and %s have no common ancestor", current, branchName)
			}

			out := cmd.OutOrStdout()

			if base == incoming {
				fmt.Fprintln(out, "already up to date")
				return nil
			}
			if base == currentTip && !noFF {
				if err := r.UpdateRefCAS(current, incoming, currentTip); err != nil {
					return err
				}
				fmt.Fprintf(out, "fast-forwarded %s to %s\n", current, shortHash(string(incoming)))
				return nil
			}

			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}
			engine := merge.NewEngine(r.Store)
			message := fmt.Sprintf("Merge branch '%s' into %s", branchName, current)
			mergeHash, result, err := engine.MergeCommits(base, currentTip, incoming, cfg.Identity(), message)
			if err != nil {
				return err
			}

			if result.HasConflicts() {
				for _, path := range result.ConflictPaths() {
					fmt.Fprintf(out, "CONFLICT: %s\n", path)
				}
				return fmt.Errorf("merge: %d conflicting path(s); resolve manually and snapshot", len(result.Conflicts))
			}

			if err := r.UpdateRefCAS(current, mergeHash, currentTip); err != nil {
				return err
			}
			fmt.Fprintf(out, "[%s %s] %s\n", current, shortHash(string(mergeHash)), message)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noFF, "no-ff", false, "always create a merge commit")
	return cmd
}
