package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// Native implements Metadata by reading the repository directly with go-git,
// without spawning processes.
type Native struct {
	root string
	repo *gitlib.Repository
}

var _ Metadata = (*Native)(nil)

func OpenNative(repoPath string) (*Native, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return NewNative(abs, repo), nil
}

func NewNative(root string, repo *gitlib.Repository) *Native {
	return &Native{root: root, repo: repo}
}

func (n *Native) fail(op string, err error) error {
	return &vcs.BackendError{Root: n.root, Op: op, Err: err}
}

func (n *Native) Branches(ctx context.Context) ([]vcs.Ref, error) {
	iter, err := n.repo.References()
	if err != nil {
		return nil, n.fail("read references", err)
	}
	defer iter.Close()

	var refs []vcs.Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		if !name.IsBranch() && !name.IsRemote() {
			return nil
		}
		if isRemoteHead(name.String()) {
			return nil
		}
		refs = append(refs, vcs.NewRef(n.root, vcs.Hash(ref.Hash().String()), name.String()))
		return nil
	})
	if err != nil {
		return nil, n.fail("read references", err)
	}

	head, err := n.repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// unborn branch
	case err != nil:
		return nil, n.fail("resolve HEAD", err)
	default:
		refs = append(refs, vcs.Ref{Commit: vcs.Hash(head.Hash().String()), Name: vcs.HeadName, Type: vcs.RefTypeHead, Root: n.root})
	}
	return refs, nil
}

func (n *Native) TagNames(ctx context.Context) ([]string, error) {
	iter, err := n.repo.Tags()
	if err != nil {
		return nil, n.fail("read tags", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, n.fail("read tags", err)
	}
	slices.Sort(names)
	return names, nil
}

func (n *Native) Tracking(ctx context.Context) (vcs.Tracking, error) {
	if err := ctx.Err(); err != nil {
		return vcs.Tracking{}, err
	}
	cfg, err := n.repo.Config()
	if err != nil {
		return vcs.Tracking{}, n.fail("read config", err)
	}
	tracking := vcs.Tracking{Upstream: map[string]string{}}
	for name := range cfg.Remotes {
		tracking.Remotes = append(tracking.Remotes, name)
	}
	slices.Sort(tracking.Remotes)
	for name, branch := range cfg.Branches {
		if branch.Merge == "" || branch.Remote == "" {
			continue
		}
		upstream := branch.Merge.Short()
		if branch.Remote != "." {
			upstream = branch.Remote + "/" + upstream
		}
		tracking.Upstream[name] = upstream
	}

	head, err := n.repo.Storer.Reference(plumbing.HEAD)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	case err != nil:
		return vcs.Tracking{}, n.fail("read HEAD", err)
	case head.Type() == plumbing.SymbolicReference:
		tracking.CurrentBranch = head.Target().Short()
	default:
		tracking.Detached = true
	}
	return tracking, nil
}
