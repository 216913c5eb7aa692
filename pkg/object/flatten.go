package object

import (
	"fmt"
	"sort"
	"strings"
)

// FlattenTree walks the tree at h and returns a map from full file path to
// {hash, mode}. Paths use forward slashes; pathPrefix (may be empty) is
// prepended to every path. The walk uses an explicit stack rather than
// recursion so pathological directory depth cannot exhaust the goroutine
// stack. An empty hash flattens to an empty map.
//
// Any unreadable subtree fails the whole flatten; use FlattenTreeBestEffort
// when partial results are acceptable.
func (s *Store) FlattenTree(h Hash, pathPrefix string) (map[string]FileEntry, error) {
	return s.flattenTree(h, pathPrefix, false)
}

// FlattenTreeBestEffort is FlattenTree for stats-gathering contexts: it
// skips subtrees that cannot be read instead of failing. It must never be
// used where merge correctness depends on the result.
func (s *Store) FlattenTreeBestEffort(h Hash, pathPrefix string) map[string]FileEntry {
	files, _ := s.flattenTree(h, pathPrefix, true)
	return files
}

type flattenFrame struct {
	hash   Hash
	prefix string
}

func (s *Store) flattenTree(h Hash, pathPrefix string, bestEffort bool) (map[string]FileEntry, error) {
	files := make(map[string]FileEntry)
	if h == "" {
		return files, nil
	}

	stack := []flattenFrame{{hash: h, prefix: pathPrefix}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		tree, err := s.ReadTree(frame.hash)
		if err != nil {
			if bestEffort {
				continue
			}
			return nil, fmt.Errorf("flatten tree %s: %w", frame.hash, err)
		}

		for _, entry := range tree.Entries {
			fullPath := entry.Name
			if frame.prefix != "" {
				fullPath = frame.prefix + "/" + entry.Name
			}
			if entry.IsDir {
				stack = append(stack, flattenFrame{hash: entry.Hash, prefix: fullPath})
			} else {
				files[fullPath] = FileEntry{Hash: entry.Hash, Mode: entry.Mode}
			}
		}
	}
	return files, nil
}

// BuildTree is the inverse of FlattenTree: given a flat path map it
// reconstructs the minimal set of nested tree objects, writes them all, and
// returns the root tree hash. Directories are built deepest first so a
// parent's entry always carries the already-computed hash of its child.
// Identical content always produces an identical root hash because tree
// serialization is canonical.
func (s *Store) BuildTree(files map[string]FileEntry) (Hash, error) {
	dirFiles := make(map[string][]TreeEntry) // dir path -> file entries
	dirChildren := make(map[string]map[string]bool)
	dirChildren[""] = make(map[string]bool)

	for p, fe := range files {
		if err := validateTreePath(p); err != nil {
			return "", fmt.Errorf("build tree: %w", err)
		}
		dir, name := splitTreePath(p)
		dirFiles[dir] = append(dirFiles[dir], TreeEntry{
			Name: name,
			Mode: fe.Mode,
			Hash: fe.Hash,
		})

		// Register every ancestor directory.
		for dir != "" {
			parent, child := splitTreePath(dir)
			if dirChildren[parent] == nil {
				dirChildren[parent] = make(map[string]bool)
			}
			dirChildren[parent][child] = true
			dir = parent
		}
	}

	// A name cannot be both a file and a directory within one tree.
	for dir, children := range dirChildren {
		for _, fe := range dirFiles[dir] {
			if children[fe.Name] {
				full := fe.Name
				if dir != "" {
					full = dir + "/" + fe.Name
				}
				return "", fmt.Errorf("build tree: %q is both a file and a directory", full)
			}
		}
	}

	// Order directories deepest first.
	dirs := make([]string, 0, len(dirChildren))
	for dir := range dirChildren {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := treeDepth(dirs[i]), treeDepth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	built := make(map[string]Hash, len(dirs))
	for _, dir := range dirs {
		entries := append([]TreeEntry(nil), dirFiles[dir]...)
		for child := range dirChildren[dir] {
			childPath := child
			if dir != "" {
				childPath = dir + "/" + child
			}
			entries = append(entries, TreeEntry{
				Name:  child,
				IsDir: true,
				Mode:  TreeModeDir,
				Hash:  built[childPath],
			})
		}
		SortTreeEntries(entries)

		h, err := s.WriteTree(&TreeObj{Entries: entries})
		if err != nil {
			return "", fmt.Errorf("build tree %q: %w", dir, err)
		}
		built[dir] = h
	}

	return built[""], nil
}

func validateTreePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	if strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return fmt.Errorf("path %q must not start or end with a slash", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("path %q contains invalid segment %q", p, seg)
		}
		if strings.ContainsRune(seg, '\n') {
			return fmt.Errorf("path %q contains a newline", p)
		}
	}
	return nil
}

// splitTreePath splits "a/b/c" into dir "a/b" and name "c". A bare name has
// an empty dir.
func splitTreePath(p string) (dir, name string) {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}

func treeDepth(dir string) int {
	if dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
