package git

import (
	"context"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/thiagokokada/gitk-sync/internal/git/backend"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

type fakeBackend struct {
	root string

	readMetadataFunc func(args []string) ([]backend.Record, error)
	readTimedFunc    func(args []string) ([]vcs.TimedCommit, error)
	readDetailsFunc  func(args []string) ([]vcs.CommitDetails, error)

	mu    sync.Mutex
	calls [][]string
}

var _ backend.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Root() string { return f.root }

func (f *fakeBackend) record(args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slices.Clone(args))
}

func (f *fakeBackend) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeBackend) ReadMetadata(ctx context.Context, args []string, sink func(backend.Record) error) error {
	f.record(args)
	if f.readMetadataFunc == nil {
		return errors.New("unexpected ReadMetadata call")
	}
	recs, err := f.readMetadataFunc(args)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeBackend) ReadTimed(ctx context.Context, args []string, sink func(vcs.TimedCommit) error) error {
	f.record(args)
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.readTimedFunc == nil {
		return errors.New("unexpected ReadTimed call")
	}
	commits, err := f.readTimedFunc(args)
	if err != nil {
		return err
	}
	for _, c := range commits {
		if err := sink(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeBackend) ReadDetails(ctx context.Context, args []string, sink func(vcs.CommitDetails) error) error {
	f.record(args)
	if f.readDetailsFunc == nil {
		return errors.New("unexpected ReadDetails call")
	}
	details, err := f.readDetailsFunc(args)
	if err != nil {
		return err
	}
	for _, d := range details {
		if err := sink(d); err != nil {
			return err
		}
	}
	return nil
}

type fakeMetadata struct {
	branchesFunc func() ([]vcs.Ref, error)
	tagNamesFunc func() ([]string, error)
	trackingFunc func() (vcs.Tracking, error)

	tagNameCalls int
}

var _ backend.Metadata = (*fakeMetadata)(nil)

func (f *fakeMetadata) Branches(context.Context) ([]vcs.Ref, error) {
	if f.branchesFunc != nil {
		return f.branchesFunc()
	}
	return nil, errors.New("unexpected Branches call")
}

func (f *fakeMetadata) TagNames(context.Context) ([]string, error) {
	f.tagNameCalls++
	if f.tagNamesFunc != nil {
		return f.tagNamesFunc()
	}
	return nil, errors.New("unexpected TagNames call")
}

func (f *fakeMetadata) Tracking(context.Context) (vcs.Tracking, error) {
	if f.trackingFunc != nil {
		return f.trackingFunc()
	}
	return vcs.Tracking{}, errors.New("unexpected Tracking call")
}

func fakeOpener(b *fakeBackend, m *fakeMetadata) Opener {
	return func(context.Context, string) (backend.Backend, backend.Metadata, error) {
		return b, m, nil
	}
}

// hash builds a deterministic 40 character id from a short label.
func hash(label string) vcs.Hash {
	encoded := hex.EncodeToString([]byte(label))
	return vcs.Hash(encoded + strings.Repeat("0", 40-len(encoded)))
}

func timed(id string, ts int64, parents ...string) vcs.TimedCommit {
	c := vcs.TimedCommit{ID: hash(id), Timestamp: ts}
	for _, p := range parents {
		c.Parents = append(c.Parents, hash(p))
	}
	return c
}

func meta(root, id string, ts int64, parents ...string) vcs.CommitMetadata {
	return vcs.CommitMetadata{TimedCommit: timed(id, ts, parents...), Root: root, Message: "commit " + id}
}

func ids(commits []vcs.CommitMetadata) []vcs.Hash {
	out := make([]vcs.Hash, len(commits))
	for i, c := range commits {
		out[i] = c.ID
	}
	return out
}

func timedIDs(commits []vcs.TimedCommit) []vcs.Hash {
	out := make([]vcs.Hash, len(commits))
	for i, c := range commits {
		out[i] = c.ID
	}
	return out
}
