package vcs

import (
	"slices"
	"time"
)

// TimedCommit is the minimal graph record of a commit. Parents[0] is the
// first parent (mainline).
type TimedCommit struct {
	ID        Hash
	Parents   []Hash
	Timestamp int64 // committer time, unix seconds
}

func (c TimedCommit) Clone() TimedCommit {
	c.Parents = slices.Clone(c.Parents)
	return c
}

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// CommitMetadata carries what is needed to display a commit row.
type CommitMetadata struct {
	TimedCommit
	Root      string
	Author    Signature
	Committer Signature
	Message   string
}

// Subject returns the first line of the message.
func (c CommitMetadata) Subject() string {
	msg := c.Message
	for i := 0; i < len(msg); i++ {
		if msg[i] == '\n' {
			return msg[:i]
		}
	}
	return msg
}

type Change struct {
	Status  string // git name-status letter, e.g. M, A, D, R100
	Path    string
	OldPath string // set for renames and copies
}

type CommitDetails struct {
	CommitMetadata
	Changes []Change
}

// LogData is the published snapshot of a first-block read.
type LogData struct {
	Refs    []Ref
	Commits []CommitMetadata
}

// Requirements describes a first-block read.
type Requirements struct {
	CommitCount  int
	Refresh      bool
	RefreshRefs  bool
	PreviousRefs []Ref
}

// Tracking is the repository metadata consulted when ordering and grouping
// refs. Upstream maps a local branch name to the short name of the remote
// branch it tracks (e.g. "main" -> "origin/main").
type Tracking struct {
	CurrentBranch string
	Detached      bool
	Remotes       []string
	Upstream      map[string]string
}

// TrackedBy reports whether some local branch tracks the given remote branch.
func (t Tracking) TrackedBy(remoteBranch string) (string, bool) {
	for local, upstream := range t.Upstream {
		if upstream == remoteBranch {
			return local, true
		}
	}
	return "", false
}
