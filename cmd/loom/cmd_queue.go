package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/loomvcs/loom/pkg/queue"
	"github.com/loomvcs/loom/pkg/queue/badgerstore"
	"github.com/loomvcs/loom/pkg/repo"
	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the merge queue",
	}
	cmd.AddCommand(newQueueAddCmd())
	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueRemoveCmd())
	cmd.AddCommand(newQueueProcessCmd())
	return cmd
}

// openQueueManager opens the repository plus the badger-backed queue store
// under .loom/queue. The caller must call the returned closer.
func openQueueManager() (*queue.Manager, *repo.Repo, func() error, error) {
	r, err := repo.Open(".")
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := badgerstore.Open(filepath.Join(r.LoomDir, "queue"))
	if err != nil {
		return nil, nil, nil, err
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	m := queue.NewManager(r,
		queue.WithStore(store),
		queue.WithConfig(queue.ConfigFromRepo(cfg.Queue, cfg.Identity())),
		queue.WithPublisher(queue.LogPublisher{Logger: logger}),
		queue.WithLogger(logger),
	)
	return m, r, store.Close, nil
}

func newQueueAddCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "add <branch>",
		Short: "Enqueue a branch for merging into the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, r, closeStore, err := openQueueManager()
			if err != nil {
				return err
			}
			defer closeStore()

			target, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			if target == "" {
				return fmt.Errorf("queue add: HEAD is detached")
			}

			head, err := r.ResolveRef(args[0])
			if err != nil {
				return fmt.Errorf("queue add: cannot resolve %q: %w", args[0], err)
			}
			base, err := r.ResolveRef(target)
			if err != nil {
				return err
			}

			if id == "" {
				id = args[0]
			}
			entry := queue.Entry{ID: queue.ChangesetID(id), HeadSHA: head, BaseSHA: base}
			if err := m.Enqueue(target, entry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s) for %s\n",
				id, shortHash(string(head)), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "changeset identifier (defaults to the branch name)")
	return cmd
}

func newQueueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued changesets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, closeStore, err := openQueueManager()
			if err != nil {
				return err
			}
			defer closeStore()

			entries, err := m.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATE\tHEAD\tTARGET\tENQUEUED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.ID,
					e.State,
					shortHash(string(e.HeadSHA)),
					e.TargetBranch,
					time.Unix(e.EnqueuedAt, 0).Format(time.RFC822),
				)
			}
			return w.Flush()
		},
	}
}

func newQueueRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Drop a changeset from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, closeStore, err := openQueueManager()
			if err != nil {
				return err
			}
			defer closeStore()

			if err := m.Remove(queue.ChangesetID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func newQueueProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Merge all pending changesets as one optimistic batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, r, closeStore, err := openQueueManager()
			if err != nil {
				return err
			}
			defer closeStore()

			target, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			if target == "" {
				return fmt.Errorf("queue process: HEAD is detached")
			}

			records, err := m.Entries()
			if err != nil {
				return err
			}
			var entries []queue.Entry
			for _, rec := range records {
				if rec.TargetBranch != target || rec.State != queue.EntryPending {
					continue
				}
				entries = append(entries, queue.Entry{
					ID:      rec.ID,
					HeadSHA: rec.HeadSHA,
					BaseSHA: rec.BaseSHA,
				})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "nothing pending for", target)
				return nil
			}

			res, err := m.ProcessBatch(target, entries)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "batch %s: %d merged, %d failed (%d attempt(s))\n",
				res.BatchID, len(res.Merged), len(res.Failed), res.Attempts)
			for _, id := range res.Merged {
				fmt.Fprintf(out, "  merged  %s\n", id)
			}
			for id, reason := range res.Failed {
				fmt.Fprintf(out, "  failed  %s: %s\n", id, reason)
			}
			if len(res.Merged) > 0 {
				fmt.Fprintf(out, "%s is now at %s\n", target, shortHash(string(res.Tip)))
			}
			return nil
		},
	}
}
