package main

import (
	"fmt"

	"github.com/loomvcs/loom/pkg/object"
	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [ref]",
		Short: "Verify the SSH signature on a commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			ref := "HEAD"
			if len(args) == 1 {
				ref = args[0]
			}
			h, err := r.ResolveRef(ref)
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", ref, err)
			}
			c, err := r.Store.ReadCommit(h)
			if err != nil {
				return err
			}
			if c.Signature == "" {
				return fmt.Errorf("commit %s is not signed", shortHash(string(h)))
			}

			payload := object.CommitSigningPayload(c)
			keyType, err := verifyCommitSignature(c.Signature, payload)
			if err != nil {
				return fmt.Errorf("commit %s: %w", shortHash(string(h)), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "good signature on %s (%s)\n",
				shortHash(string(h)), keyType)
			return nil
		},
	}
}
