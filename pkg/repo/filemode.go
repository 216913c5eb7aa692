package repo

import (
	"io/fs"

	"github.com/loomvcs/loom/pkg/object"
)

// FileMode maps an on-disk file mode to a tree entry mode string.
func FileMode(mode fs.FileMode) string {
	if mode&0o111 != 0 {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

func normalizeFileMode(mode string) string {
	if mode == object.TreeModeExecutable {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

func filePermFromMode(mode string) fs.FileMode {
	if normalizeFileMode(mode) == object.TreeModeExecutable {
		return 0o755
	}
	return 0o644
}
