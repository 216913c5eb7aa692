package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loomvcs/loom/pkg/object"
	"github.com/loomvcs/loom/pkg/repo"
)

func initCmdTestRepo(t *testing.T) *repo.Repo {
	t.Helper()
	dir := t.TempDir()
	r, err := repo.Init(dir)
	if err != nil {
		t.Fatalf("repo.Init: %v", err)
	}
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("os.Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prevWD); err != nil {
			t.Fatalf("os.Chdir: %v", err)
		}
	})
	return r
}

func commitMap(t *testing.T, r *repo.Repo, msg string, contents map[string]string) object.Hash {
	t.Helper()
	files := make(map[string]object.FileEntry, len(contents))
	for p, c := range contents {
		h, err := r.Store.WriteBlob(&object.Blob{Data: []byte(c)})
		if err != nil {
			t.Fatalf("WriteBlob: %v", err)
		}
		files[p] = object.FileEntry{Hash: h, Mode: object.TreeModeFile}
	}
	tree, err := r.Store.BuildTree(files)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	commit, err := r.CommitTree(tree, msg, "tester", nil, nil)
	if err != nil {
		t.Fatalf("CommitTree: %v", err)
	}
	return commit
}

func TestMergeCmdFastForward(t *testing.T) {
	r := initCmdTestRepo(t)

	commitMap(t, r, "base", map[string]string{"a.txt": "1"})
	base, err := r.ResolveRef("main")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatal(err)
	}

	// Advance feature past main.
	if err := r.SetHead("feature"); err != nil {
		t.Fatal(err)
	}
	featureTip := commitMap(t, r, "feature work", map[string]string{"a.txt": "1", "b.txt": "2"})
	if err := r.SetHead("main"); err != nil {
		t.Fatal(err)
	}

	var output bytes.Buffer
	mergeCmd := newMergeCmd()
	mergeCmd.SetOut(&output)
	mergeCmd.SetArgs([]string{"feature"})
	if err := mergeCmd.Execute(); err != nil {
		t.Fatalf("merge Execute: %v\noutput:\n%s", err, output.String())
	}
	if !strings.Contains(output.String(), "fast-forwarded") {
		t.Errorf("expected fast-forward, got:\n%s", output.String())
	}

	tip, err := r.ResolveRef("main")
	if err != nil || tip != featureTip {
		t.Errorf("main after merge: %s, %v", tip, err)
	}
}

func TestMergeCmdReportsConflicts(t *testing.T) {
	r := initCmdTestRepo(t)

	commitMap(t, r, "base", map[string]string{"f.txt": "x"})
	base, err := r.ResolveRef("main")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatal(err)
	}

	if err := r.SetHead("feature"); err != nil {
		t.Fatal(err)
	}
	commitMap(t, r, "theirs", map[string]string{"f.txt": "z"})
	if err := r.SetHead("main"); err != nil {
		t.Fatal(err)
	}
	mainTip := commitMap(t, r, "ours", map[string]string{"f.txt": "y"})

	var output bytes.Buffer
	mergeCmd := newMergeCmd()
	mergeCmd.SetOut(&output)
	mergeCmd.SetArgs([]string{"feature"})
	if err := mergeCmd.Execute(); err == nil {
		t.Fatalf("conflicting merge should fail, output:\n%s", output.String())
	}
	if !strings.Contains(output.String(), "CONFLICT: f.txt") {
		t.Errorf("conflict path not surfaced:\n%s", output.String())
	}

	// The branch must not move on a conflicted merge.
	tip, err := r.ResolveRef("main")
	if err != nil || tip != mainTip {
		t.Errorf("main moved on conflict: %s, %v", tip, err)
	}
}

func TestCherryPickCmdWritesConflictMarkers(t *testing.T) {
	r := initCmdTestRepo(t)

	commitMap(t, r, "base", map[string]string{"f.txt": "x"})
	base, err := r.ResolveRef("main")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatal(err)
	}

	if err := r.SetHead("feature"); err != nil {
		t.Fatal(err)
	}
	pick := commitMap(t, r, "theirs", map[string]string{"f.txt": "z"})
	if err := r.SetHead("main"); err != nil {
		t.Fatal(err)
	}
	commitMap(t, r, "ours", map[string]string{"f.txt": "y"})

	var output bytes.Buffer
	pickCmd := newCherryPickCmd()
	pickCmd.SetOut(&output)
	pickCmd.SetArgs([]string{string(pick)})
	if err := pickCmd.Execute(); err == nil {
		t.Fatalf("conflicting cherry-pick should fail, output:\n%s", output.String())
	}

	marker, err := os.ReadFile(filepath.Join(r.LoomDir, "conflicts", "f.txt"))
	if err != nil {
		t.Fatalf("conflict marker file: %v", err)
	}
	for _, want := range []string{"<<<<<<< current", "y", "=======", "z", ">>>>>>> incoming"} {
		if !strings.Contains(string(marker), want) {
			t.Errorf("marker file missing %q:\n%s", want, marker)
		}
	}
}
