package main

import (
	"errors"
	"fmt"

	"github.com/loomvcs/loom/pkg/graph"
	"github.com/loomvcs/loom/pkg/queue"
	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newRebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebase <onto-branch>",
		Short: "Replay the current branch's commits onto another branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			current, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			if current == "" {
				return fmt.Errorf("rebase: HEAD is detached")
			}

			head, err := r.ResolveRef(current)
			if err != nil {
				return err
			}
			onto, err := r.ResolveRef(args[0])
			if err != nil {
				return fmt.Errorf("rebase: cannot resolve %q: %w", args[0], err)
			}

			nav := graph.NewNavigator(r.Store)
			base, err := nav.FindMergeBase(head, onto)
			if err != nil {
				return err
			}
			if base == "" {
				return fmt.Errorf("rebase: %s and %s have no common ancestor", current, args[0])
			}

			out := cmd.OutOrStdout()
			if base == head {
				// Nothing of ours beyond the target: fast-forward.
				if err := r.UpdateRefCAS(current, onto, head); err != nil {
					return err
				}
				fmt.Fprintf(out, "fast-forwarded %s to %s\n", current, shortHash(string(onto)))
				return nil
			}
			if base == onto {
				fmt.Fprintln(out, "already up to date")
				return nil
			}

			m := queue.NewManager(r)
			newHead, err := m.RebasePR(head, base, onto)
			if err != nil {
				var rerr *queue.RebaseError
				if errors.As(err, &rerr) && len(rerr.ConflictPaths) > 0 {
					for _, path := range rerr.ConflictPaths {
						fmt.Fprintf(out, "CONFLICT: %s (while replaying %s)\n",
							path, shortHash(string(rerr.Commit)))
					}
				}
				return err
			}

			if err := r.UpdateRefCAS(current, newHead, head); err != nil {
				return err
			}
			fmt.Fprintf(out, "rebased %s onto %s: %s\n",
				current, args[0], shortHash(string(newHead)))
			return nil
		},
	}
}
