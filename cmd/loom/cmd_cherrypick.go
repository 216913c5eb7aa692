package main

import (
	"fmt"

	"github.com/loomvcs/loom/pkg/merge"
	"github.com/loomvcs/loom/pkg/object"
	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newCherryPickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cherry-pick <commit>",
		Short: "Apply a single commit's delta onto the current branch",
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
				return fmt.Errorf("cherry-pick: HEAD is detached")
			}

			target, err := r.ResolveRef(args[0])
			if err != nil {
				return fmt.Errorf("cherry-pick: cannot resolve %q: %w", args[0], err)
			}
			tip, err := r.ResolveRef(current)
			if err != nil {
				return err
			}

			engine := merge.NewEngine(r.Store)
			newHash, result, err := engine.ApplyCommit(target, tip)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.HasConflicts() {
				if err := writeConflictMarkers(r, engine, result.Conflicts); err != nil {
					return err
				}
				for _, path := range result.ConflictPaths() {
					fmt.Fprintf(out, "CONFLICT: %s (markers written under .loom/conflicts/)\n", path)
				}
				return fmt.Errorf("cherry-pick: %d conflicting path(s)", len(result.Conflicts))
			}

			if err := r.UpdateRefCAS(current, newHash, tip); err != nil {
				return err
			}
			fmt.Fprintf(out, "[%s %s] cherry-picked %s\n",
				current, shortHash(string(newHash)), shortHash(string(target)))
			return nil
		},
	}
}

// writeConflictMarkers materializes marker files for every conflicted path.
func writeConflictMarkers(r *repo.Repo, engine *merge.Engine, conflicts []merge.Conflict) error {
	for _, c := range conflicts {
		content, err := engine.RenderConflictForPath(c, "current", "incoming")
		if err != nil {
			return err
		}
		if _, err := r.WriteConflictFile(c.Path, content, object.TreeModeFile); err != nil {
			return err
		}
	}
	return nil
}
