package main

import (
	"fmt"

	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	var deleteBranch bool

	cmd := &cobra.Command{
		Use:   "branch [name]",
		Short: "List, create, or delete branches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if deleteBranch {
					return fmt.Errorf("branch: -d requires a branch name")
				}
				current, _ := r.CurrentBranch()
				names, err := r.ListBranches()
				if err != nil {
					return err
				}
				for _, name := range names {
					marker := "  "
					if name == current {
						marker = "* "
					}
					fmt.Fprintf(out, "%s%s\n", marker, name)
				}
				return nil
			}

			name := args[0]
			if deleteBranch {
				if err := r.DeleteBranch(name); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted branch %s\n", name)
				return nil
			}

			target, err := r.ResolveRef("HEAD")
			if err != nil {
				return fmt.Errorf("branch: cannot resolve HEAD: %w", err)
			}
			if err := r.CreateBranch(name, target); err != nil {
				return err
			}
			fmt.Fprintf(out, "created branch %s at %s\n", name, shortHash(string(target)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&deleteBranch, "delete", "d", false, "delete the named branch")
	return cmd
}
