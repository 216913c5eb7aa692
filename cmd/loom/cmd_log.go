package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/loomvcs/loom/pkg/graph"
	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log [ref]",
		Short: "Show commit history",
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
			start, err := r.ResolveRef(ref)
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", ref, err)
			}

			nav := graph.NewNavigator(r.Store)
			commits, hashes, err := nav.Log(start, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, c := range commits {
				if oneline {
					subject := c.Message
					if idx := strings.IndexByte(subject, '\n'); idx >= 0 {
						subject = subject[:idx]
					}
					fmt.Fprintf(out, "%s %s\n", shortHash(string(hashes[i])), subject)
					continue
				}

				fmt.Fprintf(out, "commit %s\n", hashes[i])
				if len(c.Parents) > 1 {
					shorts := make([]string, len(c.Parents))
					for j, p := range c.Parents {
						shorts[j] = shortHash(string(p))
					}
					fmt.Fprintf(out, "Merge: %s\n", strings.Join(shorts, " "))
				}
				fmt.Fprintf(out, "Author: %s\n", c.Author)
				fmt.Fprintf(out, "Date:   %s\n", time.Unix(c.Timestamp, 0).Format(time.RFC1123))
				if c.Signature != "" {
					fmt.Fprintln(out, "Signed: yes")
				}
				fmt.Fprintln(out)
				for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of commits")
	return cmd
}
