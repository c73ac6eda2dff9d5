package backend

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// HeadState returns the commit HEAD points to and the short name of the
// checked out branch ("HEAD" when detached). ok is false on an unborn branch.
func (g *CLI) HeadState(ctx context.Context) (hash vcs.Hash, headName string, ok bool, err error) {
	out, err := g.runGitCommand(ctx, "git rev-parse", []string{"rev-parse", "-q", "--verify", "HEAD"}, true)
	if err != nil {
		return "", "", false, err
	}
	if strings.TrimSpace(out) == "" {
		return "", "", false, nil
	}
	hash, err = vcs.ParseHash(out)
	if err != nil {
		return "", "", false, g.fail("parse git rev-parse", nil, "", err)
	}
	ref, err := g.runGitCommand(ctx, "git symbolic-ref", []string{"symbolic-ref", "-q", "--short", "HEAD"}, true)
	if err != nil {
		return "", "", false, err
	}
	headName = strings.TrimSpace(ref)
	if headName == "" {
		headName = vcs.HeadName
	}
	return hash, headName, true, nil
}

// ListRefs returns every branch and tag, with annotated tags peeled to the
// commit they point to.
func (g *CLI) ListRefs(ctx context.Context) ([]vcs.Ref, error) {
	out, err := g.runGitCommand(ctx, "git show-ref", []string{"--no-pager", "show-ref", "--dereference"}, true)
	if err != nil {
		return nil, err
	}
	refs, err := parseRefsFromShowRef(g.root, out)
	if err != nil {
		return nil, g.fail("parse git show-ref", nil, "", err)
	}
	return refs, nil
}

func (g *CLI) Branches(ctx context.Context) ([]vcs.Ref, error) {
	refs, err := g.ListRefs(ctx)
	if err != nil {
		return nil, err
	}
	branches := slices.DeleteFunc(refs, func(r vcs.Ref) bool { return !r.Type.IsBranch() })
	hash, _, ok, err := g.HeadState(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		branches = append(branches, vcs.Ref{Commit: hash, Name: vcs.HeadName, Type: vcs.RefTypeHead, Root: g.root})
	}
	return branches, nil
}

func (g *CLI) TagNames(ctx context.Context) ([]string, error) {
	out, err := g.runGitCommand(ctx, "git for-each-ref", []string{"for-each-ref", "--format=%(refname:strip=2)", "refs/tags"}, false)
	if err != nil {
		return nil, err
	}
	var names []string
	for line := range strings.SplitSeq(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (g *CLI) Tracking(ctx context.Context) (vcs.Tracking, error) {
	out, err := g.runGitCommand(ctx, "git for-each-ref", []string{"for-each-ref", "--format=%(refname:strip=2)%00%(upstream:short)", "refs/heads"}, false)
	if err != nil {
		return vcs.Tracking{}, err
	}
	tracking := vcs.Tracking{Upstream: parseUpstreams(out)}

	remotes, err := g.runGitCommand(ctx, "git remote", []string{"remote"}, false)
	if err != nil {
		return vcs.Tracking{}, err
	}
	for line := range strings.SplitSeq(remotes, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			tracking.Remotes = append(tracking.Remotes, name)
		}
	}
	slices.Sort(tracking.Remotes)

	_, headName, ok, err := g.HeadState(ctx)
	if err != nil {
		return vcs.Tracking{}, err
	}
	switch {
	case !ok:
		// unborn branch: nothing checked out yet
	case headName == vcs.HeadName:
		tracking.Detached = true
	default:
		tracking.CurrentBranch = headName
	}
	return tracking, nil
}

func parseUpstreams(out string) map[string]string {
	upstream := map[string]string{}
	for line := range strings.SplitSeq(out, "\n") {
		local, remote, ok := strings.Cut(strings.TrimRight(line, "\r"), "\x00")
		if !ok || local == "" || remote == "" {
			continue
		}
		upstream[local] = remote
	}
	return upstream
}

func parseRefsFromShowRef(root string, out string) ([]vcs.Ref, error) {
	type refEntry struct {
		hash vcs.Hash
		ref  string
	}

	peeledByTagRef := map[string]vcs.Hash{}
	var entries []refEntry

	for rawLine := range strings.SplitSeq(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash, err := vcs.ParseHash(parts[0])
		if err != nil {
			return nil, fmt.Errorf("unexpected show-ref output line: %q: %w", rawLine, err)
		}
		refName := parts[1]
		if base, ok := strings.CutSuffix(refName, "^{}"); ok {
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var refs []vcs.Ref
	for _, entry := range entries {
		typ := vcs.Classify(entry.ref)
		if typ == vcs.RefTypeOther || isRemoteHead(entry.ref) {
			continue
		}
		ref := vcs.NewRef(root, entry.hash, entry.ref)
		if ref.Name == "" {
			continue
		}
		if typ == vcs.RefTypeTag {
			if peeled, ok := peeledByTagRef[entry.ref]; ok {
				ref.Commit = peeled
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
