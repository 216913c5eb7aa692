package queue

import "github.com/loomvcs/loom/pkg/repo"

// Config tunes conflict prediction and ordering. Zero values fall back to
// the defaults below.
type Config struct {
	// ManualThreshold is the predicted probability above which a pair of
	// changesets is flagged for manual resolution.
	ManualThreshold float64
	// PreferSmallerAbove is the probability above which the smaller diff
	// is ordered first.
	PreferSmallerAbove float64
	// ConflictProneLines marks a file conflict-prone when its combined
	// added+deleted line count exceeds this.
	ConflictProneLines int
	// ConflictPronePatterns are path.Match patterns (tested against both
	// the base name and the full path) for files that historically cause
	// conflicts: lockfiles, schemas, migrations.
	ConflictPronePatterns []string
	// Author is the identity recorded on queue-created merge commits.
	Author string
}

const (
	defaultManualThreshold    = 0.7
	defaultPreferSmallerAbove = 0.3
	defaultConflictProneLines = 100
	defaultAuthor             = "merge-queue"
)

func defaultConflictPronePatterns() []string {
	return []string{
		"*.lock",
		"go.sum",
		"package-lock.json",
		"yarn.lock",
		"Gemfile.lock",
		"Cargo.lock",
		"schema.sql",
		"*/migrations/*",
	}
}

// DefaultConfig returns the built-in tuning.
func DefaultConfig() Config {
	return Config{
		ManualThreshold:       defaultManualThreshold,
		PreferSmallerAbove:    defaultPreferSmallerAbove,
		ConflictProneLines:    defaultConflictProneLines,
		ConflictPronePatterns: defaultConflictPronePatterns(),
		Author:                defaultAuthor,
	}
}

func (c Config) withDefaults() Config {
	if c.ManualThreshold == 0 {
		c.ManualThreshold = defaultManualThreshold
	}
	if c.PreferSmallerAbove == 0 {
		c.PreferSmallerAbove = defaultPreferSmallerAbove
	}
	if c.ConflictProneLines == 0 {
		c.ConflictProneLines = defaultConflictProneLines
	}
	if len(c.ConflictPronePatterns) == 0 {
		c.ConflictPronePatterns = defaultConflictPronePatterns()
	}
	if c.Author == "" {
		c.Author = defaultAuthor
	}
	return c
}

// ConfigFromRepo maps repository-local queue settings onto a Config,
// filling in defaults for anything unset.
func ConfigFromRepo(rc repo.QueueConfig, author string) Config {
	cfg := Config{
		ManualThreshold:       rc.ManualThreshold,
		PreferSmallerAbove:    rc.PreferSmallerAbove,
		ConflictProneLines:    rc.ConflictProneLines,
		ConflictPronePatterns: rc.ConflictPronePatterns,
		Author:                author,
	}
	return cfg.withDefaults()
}
