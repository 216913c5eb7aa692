package main

import (
	"fmt"
	"strings"

	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	var message string
	var sign bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record the working directory as a new commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("snapshot: commit message is required (-m)")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}

			tree, err := r.Snapshot()
			if err != nil {
				return err
			}

			var signer repo.CommitSigner
			if sign || cfg.Sign.KeyPath != "" {
				signer, _, err = newSSHCommitSigner(cfg.Sign.KeyPath)
				if err != nil {
					if sign {
						return err
					}
					// Configured key missing is not fatal unless --sign
					// was explicit.
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: commit not signed: %v\n", err)
					signer = nil
				}
			}

			commit, err := r.CommitTree(tree, message, cfg.Identity(), nil, signer)
			if err != nil {
				return err
			}

			branch, _ := r.CurrentBranch()
			if branch == "" {
				branch = "detached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, shortHash(string(commit)), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with the configured SSH key")
	return cmd
}
