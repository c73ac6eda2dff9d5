package git

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// DefaultBekPattern matches the message of merges created by "git pull"
// from old clients that recorded the parents in reverse order.
const DefaultBekPattern = "Merge remote"

// DefaultBekProbeLimit bounds the probe query to the most recent matches.
const DefaultBekProbeLimit = 5000

// ParentOrderStrategy finds commits whose parents the backend reports in
// reverse order.
type ParentOrderStrategy interface {
	Probe(ctx context.Context, root string) ([]vcs.Hash, error)
}

// MessageProbe flags merge commits whose message contains Pattern.
type MessageProbe struct {
	Pattern string
	Limit   int // zero or negative: unbounded
	Query   func(ctx context.Context, root string, filters FilterCollection, maxCount int) ([]vcs.TimedCommit, error)
}

func (p MessageProbe) Probe(ctx context.Context, root string) ([]vcs.Hash, error) {
	pattern := p.Pattern
	if pattern == "" {
		pattern = DefaultBekPattern
	}
	filters := FilterCollection{
		Text:   &TextFilter{Pattern: pattern, MatchCase: true},
		Parent: &ParentFilter{Min: 2, Max: NoParentBound},
	}
	commits, err := p.Query(ctx, root, filters, p.Limit)
	if err != nil {
		return nil, err
	}
	ids := make([]vcs.Hash, 0, len(commits))
	for _, c := range commits {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// ParentFixer reverses the parents of flagged commits. The corrected form is
// cached per id, so fixing an already fixed commit returns it unchanged.
type ParentFixer struct {
	flagged map[vcs.Hash]struct{}

	mu    sync.Mutex
	fixed map[vcs.Hash][]vcs.Hash
}

func NewParentFixer(flagged []vcs.Hash) *ParentFixer {
	f := &ParentFixer{
		flagged: make(map[vcs.Hash]struct{}, len(flagged)),
		fixed:   make(map[vcs.Hash][]vcs.Hash),
	}
	for _, h := range flagged {
		f.flagged[h] = struct{}{}
	}
	return f
}

// PrepareParentFixer runs the probe once. A nil strategy or a failing probe
// yields a fixer that changes nothing.
func PrepareParentFixer(ctx context.Context, root string, strategy ParentOrderStrategy) *ParentFixer {
	if strategy == nil {
		return NewParentFixer(nil)
	}
	flagged, err := strategy.Probe(ctx, root)
	if err != nil {
		slog.Warn("parent order probe failed",
			slog.String("root", root),
			slog.Any("error", err),
		)
		return NewParentFixer(nil)
	}
	slog.Debug("parent order probe done",
		slog.String("root", root),
		slog.Int("flagged", len(flagged)),
	)
	return NewParentFixer(flagged)
}

func (f *ParentFixer) Flagged() int {
	if f == nil {
		return 0
	}
	return len(f.flagged)
}

func (f *ParentFixer) Fix(c vcs.TimedCommit) vcs.TimedCommit {
	if f == nil {
		return c
	}
	if _, ok := f.flagged[c.ID]; !ok {
		return c
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	parents, ok := f.fixed[c.ID]
	if !ok {
		parents = slices.Clone(c.Parents)
		slices.Reverse(parents)
		f.fixed[c.ID] = parents
	}
	c.Parents = slices.Clone(parents)
	return c
}

func (f *ParentFixer) FixMetadata(c vcs.CommitMetadata) vcs.CommitMetadata {
	c.TimedCommit = f.Fix(c.TimedCommit)
	return c
}
