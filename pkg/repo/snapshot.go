package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/loomvcs/loom/pkg/object"
)

// Snapshot hashes the working directory into blobs and trees and returns
// the root tree hash. Hidden entries (dotfiles, including .loom itself) are
// skipped. Nothing outside .loom/objects is touched.
func (r *Repo) Snapshot() (object.Hash, error) {
	files := make(map[string]object.FileEntry)

	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != r.RootDir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %q: %w", rel, err)
		}
		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: data})
		if err != nil {
			return fmt.Errorf("write blob %q: %w", rel, err)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files[rel] = object.FileEntry{Hash: blobHash, Mode: FileMode(info.Mode())}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	treeHash, err := r.Store.BuildTree(files)
	if err != nil {
		return "", fmt.Errorf("snapshot: build tree: %w", err)
	}
	return treeHash, nil
}
