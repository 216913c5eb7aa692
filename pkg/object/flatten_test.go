package object

import (
	"fmt"
	"testing"
)

func writeBlobs(t *testing.T, s *Store, contents map[string]string) map[string]FileEntry {
	t.Helper()
	files := make(map[string]FileEntry, len(contents))
	for p, c := range contents {
		h, err := s.WriteBlob(&Blob{Data: []byte(c)})
		if err != nil {
			t.Fatalf("WriteBlob %q: %v", p, err)
		}
		files[p] = FileEntry{Hash: h, Mode: TreeModeFile}
	}
	return files
}

func TestBuildFlattenRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	files := writeBlobs(t, s, map[string]string{
		"README.md":          "readme",
		"cmd/loom/main.go":   "package main",
		"pkg/object/hash.go": "package object",
		"pkg/object/sub/x":   "x",
		"pkg/graph/walk.go":  "package graph",
	})

	root, err := s.BuildTree(files)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	flat, err := s.FlattenTree(root, "")
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != len(files) {
		t.Fatalf("flattened count: got %d, want %d", len(flat), len(files))
	}
	for p, fe := range files {
		got, ok := flat[p]
		if !ok {
			t.Errorf("path %q missing after round trip", p)
			continue
		}
		if got.Hash != fe.Hash {
			t.Errorf("path %q: hash changed in round trip", p)
		}
	}

	// Rebuilding the flattened map must reproduce the identical root hash.
	root2, err := s.BuildTree(flat)
	if err != nil {
		t.Fatalf("BuildTree (second): %v", err)
	}
	if root2 != root {
		t.Errorf("rebuild not canonical: %s vs %s", root2, root)
	}
}

func TestBuildTreeEmpty(t *testing.T) {
	s := NewStore(t.TempDir())

	root, err := s.BuildTree(map[string]FileEntry{})
	if err != nil {
		t.Fatalf("BuildTree(empty): %v", err)
	}
	tr, err := s.ReadTree(root)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(tr.Entries) != 0 {
		t.Errorf("empty build produced %d entries", len(tr.Entries))
	}
}

func TestFlattenEmptyHash(t *testing.T) {
	s := NewStore(t.TempDir())
	flat, err := s.FlattenTree("", "")
	if err != nil {
		t.Fatalf("FlattenTree(\"\"): %v", err)
	}
	if len(flat) != 0 {
		t.Errorf("empty hash should flatten to empty map, got %d entries", len(flat))
	}
}

func TestFlattenDeepNesting(t *testing.T) {
	s := NewStore(t.TempDir())

	// Deep enough that naive recursion would be a concern; the iterative
	// walk must handle it without issue.
	path := "d0"
	for i := 1; i < 500; i++ {
		path = fmt.Sprintf("%s/d%d", path, i)
	}
	path += "/leaf.txt"

	files := writeBlobs(t, s, map[string]string{path: "deep"})
	root, err := s.BuildTree(files)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	flat, err := s.FlattenTree(root, "")
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if _, ok := flat[path]; !ok {
		t.Errorf("deep path lost: %q", path)
	}
}

func TestFlattenPathPrefix(t *testing.T) {
	s := NewStore(t.TempDir())
	files := writeBlobs(t, s, map[string]string{"a/b.txt": "b"})
	root, err := s.BuildTree(files)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	flat, err := s.FlattenTree(root, "vendor")
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if _, ok := flat["vendor/a/b.txt"]; !ok {
		t.Errorf("prefix not applied: %v", flat)
	}
}

func TestBuildTreeRejectsBadPaths(t *testing.T) {
	s := NewStore(t.TempDir())
	h, err := s.WriteBlob(&Blob{Data: []byte("x")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	for _, bad := range []string{"", "/abs", "trail/", "a//b", "a/../b", ".", "a/bad\nname"} {
		_, err := s.BuildTree(map[string]FileEntry{bad: {Hash: h, Mode: TreeModeFile}})
		if err == nil {
			t.Errorf("path %q should be rejected", bad)
		}
	}
}

func TestBuildFlattenSpacedNames(t *testing.T) {
	s := NewStore(t.TempDir())

	files := writeBlobs(t, s, map[string]string{
		"my file.txt":              "spaced",
		"release notes/draft 1.md": "draft",
		"plain.txt":                "plain",
	})

	root, err := s.BuildTree(files)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	flat, err := s.FlattenTree(root, "")
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != len(files) {
		t.Fatalf("flattened count: got %d, want %d", len(flat), len(files))
	}
	for p, fe := range files {
		got, ok := flat[p]
		if !ok {
			t.Fatalf("path %q missing after round trip: %v", p, flat)
		}
		if got.Hash != fe.Hash {
			t.Errorf("path %q: hash changed in round trip", p)
		}
	}
}

func TestBuildTreeRejectsFileDirCollision(t *testing.T) {
	s := NewStore(t.TempDir())
	files := writeBlobs(t, s, map[string]string{
		"a":     "file a",
		"a/b.c": "nested under a",
	})
	if _, err := s.BuildTree(files); err == nil {
		t.Error("a path that is both file and directory should be rejected")
	}
}

func TestFlattenBestEffortSkipsUnreadable(t *testing.T) {
	s := NewStore(t.TempDir())

	okBlob, err := s.WriteBlob(&Blob{Data: []byte("ok")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	// Subtree hash that was never written.
	missing := HashBytes([]byte("missing subtree"))

	root, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{
		{Name: "gone", IsDir: true, Mode: TreeModeDir, Hash: missing},
		{Name: "ok.txt", Mode: TreeModeFile, Hash: okBlob},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	if _, err := s.FlattenTree(root, ""); err == nil {
		t.Error("strict flatten should fail on unreadable subtree")
	}

	flat := s.FlattenTreeBestEffort(root, "")
	if _, ok := flat["ok.txt"]; !ok {
		t.Error("best-effort flatten should keep readable entries")
	}
}
