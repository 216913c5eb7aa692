package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loomvcs/loom/pkg/graph"
	"github.com/loomvcs/loom/pkg/object"
	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

// bisectSession is the on-disk state of an in-progress bisection, stored
// at .loom/BISECT. The graph layer is called fresh each step; only the
// endpoints and verdicts live here.
type bisectSession struct {
	Bad   object.Hash                `json:"bad"`
	Good  []object.Hash              `json:"good"`
	Marks map[object.Hash]graph.Mark `json:"marks"`
}

func bisectPath(r *repo.Repo) string {
	return filepath.Join(r.LoomDir, "BISECT")
}

func loadBisect(r *repo.Repo) (*bisectSession, error) {
	data, err := os.ReadFile(bisectPath(r))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no bisection in progress (run loom bisect start)")
		}
		return nil, err
	}
	var s bisectSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt bisect session: %w", err)
	}
	if s.Marks == nil {
		s.Marks = make(map[object.Hash]graph.Mark)
	}
	return &s, nil
}

func saveBisect(r *repo.Repo, s *bisectSession) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(bisectPath(r), data, 0o644)
}

func newBisectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bisect",
		Short: "Binary-search the commit range between a good and a bad commit",
	}
	cmd.AddCommand(newBisectStartCmd())
	cmd.AddCommand(newBisectMarkCmd("good", graph.MarkGood))
	cmd.AddCommand(newBisectMarkCmd("bad", graph.MarkBad))
	cmd.AddCommand(newBisectMarkCmd("skip", graph.MarkSkipped))
	cmd.AddCommand(newBisectStatusCmd())
	cmd.AddCommand(newBisectResetCmd())
	return cmd
}

func newBisectStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <bad-ref> <good-ref>",
		Short: "Begin a bisection between a bad and a good commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			bad, err := r.ResolveRef(args[0])
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", args[0], err)
			}
			good, err := r.ResolveRef(args[1])
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", args[1], err)
			}

			s := &bisectSession{
				Bad:   bad,
				Good:  []object.Hash{good},
				Marks: map[object.Hash]graph.Mark{bad: graph.MarkBad, good: graph.MarkGood},
			}
			if err := saveBisect(r, s); err != nil {
				return err
			}
			return printBisectNext(cmd, r, s)
		},
	}
}

func newBisectMarkCmd(name string, mark graph.Mark) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [ref]",
		Short: fmt.Sprintf("Mark a commit (default HEAD) as %s", name),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			s, err := loadBisect(r)
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

			s.Marks[h] = mark
			if mark == graph.MarkGood {
				s.Good = append(s.Good, h)
			}
			if err := saveBisect(r, s); err != nil {
				return err
			}
			return printBisectNext(cmd, r, s)
		},
	}
}

func newBisectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bisection progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			s, err := loadBisect(r)
			if err != nil {
				return err
			}
			return printBisectNext(cmd, r, s)
		},
	}
}

func newBisectResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abandon the current bisection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := os.Remove(bisectPath(r)); err != nil && !os.IsNotExist(err) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "bisection abandoned")
			return nil
		},
	}
}

func printBisectNext(cmd *cobra.Command, r *repo.Repo, s *bisectSession) error {
	nav := graph.NewNavigator(r.Store)
	b, err := nav.NewBisection(s.Bad, s.Good)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	next, ok := b.Next(s.Marks)
	if !ok {
		culprit, found := b.Culprit(s.Marks)
		if !found {
			fmt.Fprintln(out, "bisection converged but no bad commit was identified")
			return nil
		}
		fmt.Fprintf(out, "%s is the first bad commit\n", culprit)
		if c, err := r.Store.ReadCommit(culprit); err == nil {
			fmt.Fprintf(out, "    %s\n", c.Message)
		}
		return nil
	}

	fmt.Fprintf(out, "next commit to test: %s\n", next)
	fmt.Fprintf(out, "roughly %d step(s) remaining\n", b.StepsEstimate(s.Marks))
	return nil
}
