package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config stores repository-local settings: committer identity, the SSH
// signing key, and merge-queue tuning. It lives at .loom/config.toml.
type Config struct {
	User  UserConfig  `toml:"user"`
	Sign  SignConfig  `toml:"sign"`
	Queue QueueConfig `toml:"queue"`
}

type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

type SignConfig struct {
	// KeyPath is the path to an SSH private key used to sign commits.
	// Empty disables signing.
	KeyPath string `toml:"key"`
}

// QueueConfig tunes the merge queue's conflict prediction and ordering.
// Zero values mean "use defaults".
type QueueConfig struct {
	ManualThreshold       float64  `toml:"manual_threshold"`
	PreferSmallerAbove    float64  `toml:"prefer_smaller_above"`
	ConflictProneLines    int      `toml:"conflict_prone_lines"`
	ConflictPronePatterns []string `toml:"conflict_prone_patterns"`
}

// Identity renders the author string used in commit headers.
func (c *Config) Identity() string {
	switch {
	case c.User.Name != "" && c.User.Email != "":
		return fmt.Sprintf("%s <%s>", c.User.Name, c.User.Email)
	case c.User.Name != "":
		return c.User.Name
	default:
		return "unknown"
	}
}

func (r *Repo) configPath() string {
	return filepath.Join(r.LoomDir, "config.toml")
}

// ReadConfig reads .loom/config.toml. Missing config returns an empty
// config rather than an error.
func (r *Repo) ReadConfig() (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(r.configPath(), &cfg); err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}

// WriteConfig atomically writes .loom/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}

	tmp, err := os.CreateTemp(r.LoomDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}
