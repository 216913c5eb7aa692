package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loomvcs/loom/pkg/object"
)

const zeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ReflogEntry is one line of a ref's update log, newest entries last on
// disk and newest first when read back.
type ReflogEntry struct {
	Ref       string
	OldHash   object.Hash
	NewHash   object.Hash
	Timestamp int64
	Reason    string
}

// formatReflogLine renders an entry in its on-disk form:
//
//	<old> <new> <unix-seconds> <reason>
//
// Empty hashes are written as the all-zero hash so the line shape is fixed.
func formatReflogLine(e ReflogEntry) string {
	return fmt.Sprintf("%s %s %d %s\n",
		hashOrZero(e.OldHash), hashOrZero(e.NewHash), e.Timestamp, e.Reason)
}

// parseReflogLine is the inverse of formatReflogLine. The reason field keeps
// any embedded spaces. Malformed lines report ok=false and are skipped by
// the reader rather than failing the whole log.
func parseReflogLine(refName, line string) (ReflogEntry, bool) {
	fields := strings.SplitN(line, " ", 4)
	if len(fields) < 4 {
		return ReflogEntry{}, false
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return ReflogEntry{}, false
	}
	return ReflogEntry{
		Ref:       refName,
		OldHash:   object.Hash(fields[0]),
		NewHash:   object.Hash(fields[1]),
		Timestamp: ts,
		Reason:    fields[3],
	}, true
}

func hashOrZero(h object.Hash) string {
	if strings.TrimSpace(string(h)) == "" {
		return zeroHash
	}
	return string(h)
}

func (r *Repo) reflogPath(refName string) string {
	return filepath.Join(r.LoomDir, "logs", filepath.FromSlash(refName))
}

func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if strings.TrimSpace(reason) == "" {
		reason = "update"
	}

	logPath := r.reflogPath(ref)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("reflog mkdir: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog open: %w", err)
	}
	defer f.Close()

	entry := ReflogEntry{
		Ref:       ref,
		OldHash:   oldHash,
		NewHash:   newHash,
		Timestamp: time.Now().Unix(),
		Reason:    reason,
	}
	if _, err := f.WriteString(formatReflogLine(entry)); err != nil {
		return fmt.Errorf("reflog write: %w", err)
	}
	return nil
}

// ReadReflog returns the update history of a ref, newest first. A limit of
// zero (or less) means all entries. A missing log file is not an error; it
// returns no entries.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	refName := r.reflogRefName(ref)

	f, err := os.Open(r.reflogPath(refName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	defer f.Close()

	var history []ReflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if e, ok := parseReflogLine(refName, line); ok {
			history = append(history, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}

	// On disk the log appends, so walk it backwards to hand out the most
	// recent updates first.
	n := len(history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]ReflogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

// reflogRefName maps the user-facing ref argument to the log file's ref
// path: HEAD (or empty) follows the symbolic ref when one is set, full
// refs/ paths pass through, and anything else is taken as a branch name.
func (r *Repo) reflogRefName(ref string) string {
	switch ref = strings.TrimSpace(ref); {
	case ref == "" || ref == "HEAD":
		if head, err := r.Head(); err == nil && strings.HasPrefix(head, "refs/") {
			return head
		}
		return "HEAD"
	case strings.HasPrefix(ref, "refs/"):
		return ref
	default:
		return branchRefName(ref)
	}
}
