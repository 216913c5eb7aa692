package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/loomvcs/loom/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// CommitTree creates a commit pointing at an already-built tree and
// advances the current branch (or detached HEAD) to it.
//
// Parents default to the current HEAD commit when parents is nil; pass an
// explicit empty slice for a parentless commit on a non-empty branch.
func (r *Repo) CommitTree(treeHash object.Hash, message, author string, parents []object.Hash, signer CommitSigner) (object.Hash, error) {
	var headHash object.Hash
	if h, err := r.ResolveRef("HEAD"); err == nil {
		headHash = h
	}
	// HEAD resolution failure means an unborn branch; first commit is fine.

	if parents == nil && headHash != "" {
		parents = []object.Hash{headHash}
	}

	commitObj := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    author,
		Timestamp: time.Now().Unix(),
		Message:   message,
	}
	if signer != nil {
		payload := object.CommitSigningPayload(commitObj)
		signature, err := signer(payload)
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit: read HEAD: %w", err)
	}

	// head is either a ref path ("refs/heads/main") or a detached hash.
	if strings.HasPrefix(head, "refs/") {
		var updateErr error
		if headHash == "" {
			updateErr = r.UpdateRefCAS(head, commitHash)
		} else {
			updateErr = r.UpdateRefCAS(head, commitHash, headHash)
		}
		if updateErr != nil {
			return "", fmt.Errorf("commit: update ref %q: %w", head, updateErr)
		}
	} else {
		if err := r.UpdateRefCAS("HEAD", commitHash, object.Hash(strings.TrimSpace(head))); err != nil {
			return "", fmt.Errorf("commit: update detached HEAD: %w", err)
		}
	}

	return commitHash, nil
}
