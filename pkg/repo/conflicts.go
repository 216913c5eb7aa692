package repo

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteConflictFile materializes conflict-marker content for a path under
// .loom/conflicts/, mirroring the path's directory layout. It returns the
// absolute path of the written file.
func (r *Repo) WriteConflictFile(relPath string, data []byte, mode string) (string, error) {
	outPath := filepath.Join(r.LoomDir, "conflicts", filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("conflict file %q: mkdir: %w", relPath, err)
	}
	if err := os.WriteFile(outPath, data, filePermFromMode(mode)); err != nil {
		return "", fmt.Errorf("conflict file %q: write: %w", relPath, err)
	}
	return outPath, nil
}

// ClearConflictFiles removes any previously materialized conflict files.
func (r *Repo) ClearConflictFiles() error {
	dir := filepath.Join(r.LoomDir, "conflicts")
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear conflict files: %w", err)
	}
	return nil
}
