package backend

import (
	"context"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// Backend runs history queries against one repository root.
//
// The default implementation shells out to the git executable. Query
// arguments are passed verbatim after "git log", so callers own the
// argument grammar (revisions first, "--" and paths last).
type Backend interface {
	Root() string

	// ReadMetadata streams commits with author, committer, message and the
	// refs decorating them.
	ReadMetadata(ctx context.Context, args []string, sink func(Record) error) error
	// ReadTimed streams the graph-only form of commits.
	ReadTimed(ctx context.Context, args []string, sink func(vcs.TimedCommit) error) error
	// ReadDetails streams metadata together with changed paths.
	ReadDetails(ctx context.Context, args []string, sink func(vcs.CommitDetails) error) error
}

// Metadata reads repository state without walking history.
type Metadata interface {
	// Branches returns HEAD plus every local and remote branch.
	Branches(ctx context.Context) ([]vcs.Ref, error)
	TagNames(ctx context.Context) ([]string, error)
	Tracking(ctx context.Context) (vcs.Tracking, error)
}

// Record is one commit of a metadata query with the refs git decorated it with.
type Record struct {
	Commit vcs.CommitMetadata
	Refs   []vcs.Ref
}
