package git

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitk-sync/internal/git/backend"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

const testRoot = "/repo"

func newTestProvider(b *fakeBackend, m *fakeMetadata, mutate func(*Options)) *LogProvider {
	opts := DefaultOptions()
	opts.Bek.Enabled = false
	if mutate != nil {
		mutate(&opts)
	}
	return NewLogProvider(fakeOpener(b, m), opts)
}

// linearRepo is d -> c -> b -> a with main and HEAD on d.
func linearRepo() (*fakeBackend, *fakeMetadata) {
	head := ref(testRoot, "HEAD", "d")
	main := ref(testRoot, "refs/heads/main", "d")
	b := &fakeBackend{
		root: testRoot,
		readMetadataFunc: func(args []string) ([]backend.Record, error) {
			return []backend.Record{
				{Commit: meta(testRoot, "d", 40, "c"), Refs: []vcs.Ref{head, main}},
				{Commit: meta(testRoot, "c", 30, "b")},
				{Commit: meta(testRoot, "b", 20, "a")},
				{Commit: meta(testRoot, "a", 10)},
			}, nil
		},
	}
	m := &fakeMetadata{
		branchesFunc: func() ([]vcs.Ref, error) { return []vcs.Ref{head, main}, nil },
		tagNamesFunc: func() ([]string, error) { return nil, nil },
	}
	return b, m
}

func refNames(refs []vcs.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.FullName()
	}
	slices.Sort(out)
	return out
}

func TestReadFirstBlock_InitialLoadOverQueriesAndTruncates(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	p := newTestProvider(b, m, nil)

	data, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 2})
	require.NoError(t, err)
	assert.Equal(t, []vcs.Hash{hash("d"), hash("c")}, ids(data.Commits))
	assert.Equal(t, []string{"HEAD", "refs/heads/main"}, refNames(data.Refs))

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"HEAD", "--branches", "--remotes", "--max-count=4", "--date-order", "--"}, calls[0])
	assert.Zero(t, m.tagNameCalls, "initial load must not read tags")
}

func TestReadFirstBlock_QueryFactorIsConfigurable(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	p := newTestProvider(b, m, func(o *Options) { o.QueryFactor = 3 })
	_, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 5})
	require.NoError(t, err)
	assert.Contains(t, b.Calls()[0], "--max-count=15")
}

func TestReadFirstBlock_UnbornHeadIsNotQueried(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{root: testRoot, readMetadataFunc: func([]string) ([]backend.Record, error) { return nil, nil }}
	m := &fakeMetadata{branchesFunc: func() ([]vcs.Ref, error) { return nil, nil }}
	p := newTestProvider(b, m, nil)

	data, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10})
	require.NoError(t, err)
	assert.Empty(t, data.Commits)
	assert.Empty(t, data.Refs)
	assert.Equal(t, "--branches", b.Calls()[0][0])
}

func TestReadFirstBlock_RetainsOldStillExistingTags(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	m.tagNamesFunc = func() ([]string, error) { return []string{"v2.0"}, nil }
	p := newTestProvider(b, m, nil)

	previous := []vcs.Ref{
		ref(testRoot, "refs/heads/main", "c"),
		ref(testRoot, "refs/tags/v2.0", "old"),
		ref(testRoot, "refs/tags/v0.9", "older"),
		ref("/elsewhere", "refs/tags/v2.0", "x"),
	}
	data, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{
		CommitCount:  10,
		Refresh:      true,
		PreviousRefs: previous,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"HEAD", "refs/heads/main", "refs/tags/v2.0"}, refNames(data.Refs))
	for _, r := range data.Refs {
		if r.Type == vcs.RefTypeTag {
			assert.Equal(t, hash("old"), r.Commit)
			assert.Equal(t, testRoot, r.Root)
		}
		if r.Type == vcs.RefTypeLocalBranch {
			assert.Equal(t, hash("d"), r.Commit, "fresh refs win over previous ones")
		}
	}
	assert.Len(t, b.Calls(), 1, "known tags need no extra query")
}

func TestReadFirstBlock_FetchesNewTagsInBatches(t *testing.T) {
	t.Parallel()

	head := ref(testRoot, "HEAD", "d")
	v1 := ref(testRoot, "refs/tags/v1", "d")
	b := &fakeBackend{
		root: testRoot,
		readMetadataFunc: func(args []string) ([]backend.Record, error) {
			if args[0] == "HEAD" {
				return []backend.Record{
					{Commit: meta(testRoot, "d", 40, "c"), Refs: []vcs.Ref{head, v1}},
					{Commit: meta(testRoot, "c", 30)},
				}, nil
			}
			var out []backend.Record
			for _, a := range args {
				name, ok := strings.CutPrefix(a, "refs/tags/")
				if !ok {
					continue
				}
				out = append(out, backend.Record{
					Commit: meta(testRoot, "on-"+name, 5, "c"),
					Refs:   []vcs.Ref{ref(testRoot, a, "on-"+name)},
				})
			}
			out = append(out, backend.Record{Commit: meta(testRoot, "c", 30)})
			return out, nil
		},
	}
	m := &fakeMetadata{
		branchesFunc: func() ([]vcs.Ref, error) { return []vcs.Ref{head}, nil },
		tagNamesFunc: func() ([]string, error) { return []string{"t3", "v1", "t1", "old", "t2"}, nil },
	}
	p := newTestProvider(b, m, func(o *Options) { o.TagBatchSize = 2 })

	data, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{
		CommitCount:  10,
		Refresh:      true,
		PreviousRefs: []vcs.Ref{ref(testRoot, "refs/tags/old", "c")},
	})
	require.NoError(t, err)

	calls := b.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"--max-count=20", "--date-order", "refs/tags/t1", "refs/tags/t2", "--"}, calls[1])
	assert.Equal(t, []string{"--max-count=20", "--date-order", "refs/tags/t3", "--"}, calls[2])

	assert.Equal(t, []string{"HEAD", "refs/tags/old", "refs/tags/t1", "refs/tags/t2", "refs/tags/t3", "refs/tags/v1"}, refNames(data.Refs))
	assert.ElementsMatch(t, []vcs.Hash{hash("d"), hash("c"), hash("on-t1"), hash("on-t2"), hash("on-t3")}, ids(data.Commits))
	assert.Equal(t, hash("d"), data.Commits[0].ID)
}

func TestReadFirstBlock_RefreshRefsReadsBranchesFromMetadata(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	far := ref(testRoot, "refs/heads/far", "ancient")
	branches := []vcs.Ref{ref(testRoot, "HEAD", "d"), ref(testRoot, "refs/heads/main", "d"), far}
	m.branchesFunc = func() ([]vcs.Ref, error) { return branches, nil }
	p := newTestProvider(b, m, nil)

	req := vcs.Requirements{CommitCount: 10, Refresh: true}
	data, err := p.ReadFirstBlock(context.Background(), testRoot, req)
	require.NoError(t, err)
	assert.NotContains(t, refNames(data.Refs), "refs/heads/far")

	req.RefreshRefs = true
	data, err = p.ReadFirstBlock(context.Background(), testRoot, req)
	require.NoError(t, err)
	assert.Contains(t, refNames(data.Refs), "refs/heads/far")
}

func TestReadFirstBlock_MergeIsIdempotent(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	m.tagNamesFunc = func() ([]string, error) { return []string{"v2.0"}, nil }
	p := newTestProvider(b, m, nil)

	req := vcs.Requirements{
		CommitCount:  10,
		Refresh:      true,
		RefreshRefs:  true,
		PreviousRefs: []vcs.Ref{ref(testRoot, "refs/tags/v2.0", "b")},
	}
	first, err := p.ReadFirstBlock(context.Background(), testRoot, req)
	require.NoError(t, err)

	req.PreviousRefs = first.Refs
	second, err := p.ReadFirstBlock(context.Background(), testRoot, req)
	require.NoError(t, err)
	req.PreviousRefs = second.Refs
	third, err := p.ReadFirstBlock(context.Background(), testRoot, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestReadFirstBlockStaged_ReportsStagesAndWarning(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	b.readMetadataFunc = func([]string) ([]backend.Record, error) {
		return []backend.Record{
			{Commit: meta(testRoot, "dangling", 50, "c")},
			{Commit: meta(testRoot, "d", 40, "c"), Refs: []vcs.Ref{ref(testRoot, "refs/heads/main", "d")}},
			{Commit: meta(testRoot, "c", 30)},
		}, nil
	}
	p := newTestProvider(b, m, nil)

	var stages []Stage
	block, err := p.ReadFirstBlockStaged(context.Background(), testRoot, vcs.Requirements{CommitCount: 10}, func(s Stage) {
		stages = append(stages, s)
	})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageFetching, StageMerging, StageValidating}, stages)
	require.NotNil(t, block.Warning)
	assert.Equal(t, []vcs.Hash{hash("dangling")}, block.Warning.Heads)
	assert.Len(t, block.Data.Commits, 3, "inconsistent data is still published")
}

func TestReadFirstBlock_ValidationCanBeDisabled(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	p := newTestProvider(b, m, func(o *Options) { o.Validate = false })
	var stages []Stage
	_, err := p.ReadFirstBlockStaged(context.Background(), testRoot, vcs.Requirements{CommitCount: 1}, func(s Stage) {
		stages = append(stages, s)
	})
	require.NoError(t, err)
	assert.NotContains(t, stages, StageValidating)
}

func TestReadFirstBlock_BackendErrorPropagates(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	b.readMetadataFunc = func([]string) ([]backend.Record, error) {
		return nil, &vcs.BackendError{Root: testRoot, Op: "git log", Err: errors.New("exit status 128")}
	}
	p := newTestProvider(b, m, nil)

	_, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10})
	var be *vcs.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, testRoot, be.Root)
}

func TestReadFirstBlock_TagReadFailureAbortsRefresh(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	m.tagNamesFunc = func() ([]string, error) { return nil, errors.New("locked") }
	p := newTestProvider(b, m, nil)

	_, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10, Refresh: true})
	assert.ErrorContains(t, err, "read tag names")
}

func TestReadFirstBlock_AppliesParentOrderFix(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		root: testRoot,
		readMetadataFunc: func([]string) ([]backend.Record, error) {
			return []backend.Record{
				{Commit: meta(testRoot, "m", 40, "theirs", "ours"), Refs: []vcs.Ref{ref(testRoot, "refs/heads/main", "m")}},
				{Commit: meta(testRoot, "ours", 30)},
				{Commit: meta(testRoot, "theirs", 20)},
			}, nil
		},
		readTimedFunc: func(args []string) ([]vcs.TimedCommit, error) {
			if slices.Contains(args, "--min-parents=2") && slices.Contains(args, "--grep=Merge remote") {
				return []vcs.TimedCommit{timed("m", 40, "theirs", "ours")}, nil
			}
			return nil, errors.New("unexpected query")
		},
	}
	m := &fakeMetadata{branchesFunc: func() ([]vcs.Ref, error) { return nil, nil }}
	p := newTestProvider(b, m, func(o *Options) { o.Bek.Enabled = true })

	for range 2 {
		data, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10})
		require.NoError(t, err)
		require.Equal(t, hash("m"), data.Commits[0].ID)
		assert.Equal(t, []vcs.Hash{hash("ours"), hash("theirs")}, data.Commits[0].Parents)
	}

	queries := 0
	for _, c := range b.Calls() {
		if slices.Contains(c, "--min-parents=2") {
			queries++
		}
	}
	assert.Equal(t, 1, queries, "parent order is queried once per session")

	p.Forget(testRoot)
	_, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10})
	require.NoError(t, err)
}

func TestReadFirstBlock_ProbeFailureFailsOpen(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	b.readTimedFunc = func([]string) ([]vcs.TimedCommit, error) {
		return nil, &vcs.BackendError{Root: testRoot, Op: "git log", Err: errors.New("boom")}
	}
	p := newTestProvider(b, m, func(o *Options) { o.Bek.Enabled = true })

	data, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10})
	require.NoError(t, err)
	assert.Len(t, data.Commits, 4)
}

func TestCommitsMatchingFilter_UnionOfBranchAndRange(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		root: testRoot,
		readTimedFunc: func(args []string) ([]vcs.TimedCommit, error) {
			switch args[0] {
			case "b1":
				return []vcs.TimedCommit{timed("c2", 20, "c1"), timed("c1", 10)}, nil
			case "v1..v2":
				return []vcs.TimedCommit{timed("c4", 40, "c3"), timed("c3", 30)}, nil
			}
			return nil, errors.New("unexpected scope " + args[0])
		},
	}
	m := &fakeMetadata{branchesFunc: func() ([]vcs.Ref, error) {
		return []vcs.Ref{ref(testRoot, "HEAD", "c2"), ref(testRoot, "refs/heads/b1", "c2")}, nil
	}}
	p := newTestProvider(b, m, nil)

	filters := FilterCollection{
		Branch: &BranchFilter{Names: []string{"b1"}},
		Range:  &RangeFilter{Ranges: []RefRange{{Exclusive: "v1", Inclusive: "v2"}}},
	}
	got, err := p.CommitsMatchingFilter(context.Background(), testRoot, filters, 0)
	require.NoError(t, err)
	assert.Equal(t, []vcs.Hash{hash("c4"), hash("c3"), hash("c2"), hash("c1")}, timedIDs(got))

	got, err = p.CommitsMatchingFilter(context.Background(), testRoot, filters, 3)
	require.NoError(t, err)
	assert.Equal(t, []vcs.Hash{hash("c4"), hash("c3"), hash("c2")}, timedIDs(got))
}

func TestCommitsMatchingFilter_MatchesNothing(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{root: testRoot}
	m := &fakeMetadata{branchesFunc: func() ([]vcs.Ref, error) {
		return []vcs.Ref{ref(testRoot, "refs/heads/main", "a")}, nil
	}}
	p := newTestProvider(b, m, nil)

	got, err := p.CommitsMatchingFilter(context.Background(), testRoot, FilterCollection{
		Branch: &BranchFilter{Names: []string{"nope"}},
	}, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, b.Calls())
}

func TestReadMetadata_BatchesWithNoWalk(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		root: testRoot,
		readMetadataFunc: func(args []string) ([]backend.Record, error) {
			var out []backend.Record
			for _, a := range args[1 : len(args)-1] {
				out = append(out, backend.Record{Commit: vcs.CommitMetadata{TimedCommit: vcs.TimedCommit{ID: vcs.Hash(a)}}})
			}
			return out, nil
		},
	}
	p := newTestProvider(b, &fakeMetadata{}, func(o *Options) { o.DetailsBatchSize = 2 })

	want := []vcs.Hash{hash("x"), hash("y"), hash("z")}
	var got []vcs.Hash
	err := p.ReadMetadata(context.Background(), testRoot, want, func(c vcs.CommitMetadata) error {
		got = append(got, c.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	calls := b.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"--no-walk=unsorted", hash("x").String(), hash("y").String(), "--"}, calls[0])
	assert.Equal(t, []string{"--no-walk=unsorted", hash("z").String(), "--"}, calls[1])
}

func TestReadFullDetails_StopsOnSinkError(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		root: testRoot,
		readDetailsFunc: func([]string) ([]vcs.CommitDetails, error) {
			return []vcs.CommitDetails{
				{CommitMetadata: meta(testRoot, "a", 1), Changes: []vcs.Change{{Status: "M", Path: "f"}}},
			}, nil
		},
	}
	p := newTestProvider(b, &fakeMetadata{}, func(o *Options) { o.DetailsBatchSize = 1 })

	stop := errors.New("stop")
	err := p.ReadFullDetails(context.Background(), testRoot, []vcs.Hash{hash("a"), hash("b")}, func(d vcs.CommitDetails) error {
		assert.Equal(t, "f", d.Changes[0].Path)
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Len(t, b.Calls(), 1)
}

func TestReadAllCommits(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		root: testRoot,
		readTimedFunc: func(args []string) ([]vcs.TimedCommit, error) {
			return []vcs.TimedCommit{timed("b", 2, "a"), timed("a", 1)}, nil
		},
	}
	m := &fakeMetadata{branchesFunc: func() ([]vcs.Ref, error) {
		return []vcs.Ref{ref(testRoot, "HEAD", "b"), ref(testRoot, "refs/heads/main", "b")}, nil
	}}
	p := newTestProvider(b, m, nil)

	var got []vcs.TimedCommit
	err := p.ReadAllCommits(context.Background(), testRoot, func(c vcs.TimedCommit) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []string{"HEAD", "--branches", "--remotes", "--tags", "--date-order", "--"}, b.Calls()[0])
}

func TestReadAllCommits_UnbornHeadIsNotQueried(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		root: testRoot,
		readTimedFunc: func(args []string) ([]vcs.TimedCommit, error) {
			if slices.Contains(args, "HEAD") {
				return nil, errors.New("ambiguous argument 'HEAD'")
			}
			return []vcs.TimedCommit{timed("o", 1)}, nil
		},
	}
	// HEAD is on an orphan branch while another branch has history.
	m := &fakeMetadata{branchesFunc: func() ([]vcs.Ref, error) {
		return []vcs.Ref{ref(testRoot, "refs/heads/other", "o")}, nil
	}}
	p := newTestProvider(b, m, nil)

	var got []vcs.TimedCommit
	err := p.ReadAllCommits(context.Background(), testRoot, func(c vcs.TimedCommit) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []vcs.Hash{hash("o")}, timedIDs(got))
	assert.Equal(t, []string{"--branches", "--remotes", "--tags", "--date-order", "--"}, b.Calls()[0])

	matched, err := p.CommitsMatchingFilter(context.Background(), testRoot, FilterCollection{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []vcs.Hash{hash("o")}, timedIDs(matched))
	calls := b.Calls()
	assert.NotContains(t, calls[len(calls)-1], "HEAD")
}

func TestReadFirstBlock_UnbornHeadStillFixesParents(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		root: testRoot,
		readMetadataFunc: func([]string) ([]backend.Record, error) {
			return []backend.Record{
				{Commit: meta(testRoot, "m", 40, "theirs", "ours")},
				{Commit: meta(testRoot, "ours", 30)},
				{Commit: meta(testRoot, "theirs", 20)},
			}, nil
		},
		readTimedFunc: func(args []string) ([]vcs.TimedCommit, error) {
			if slices.Contains(args, "HEAD") {
				return nil, errors.New("ambiguous argument 'HEAD'")
			}
			return []vcs.TimedCommit{timed("m", 40, "theirs", "ours")}, nil
		},
	}
	m := &fakeMetadata{branchesFunc: func() ([]vcs.Ref, error) {
		return []vcs.Ref{ref(testRoot, "refs/heads/other", "m")}, nil
	}}
	p := newTestProvider(b, m, func(o *Options) { o.Bek.Enabled = true })

	data, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10})
	require.NoError(t, err)
	assert.Equal(t, []vcs.Hash{hash("ours"), hash("theirs")}, data.Commits[0].Parents)
}

func TestReadFirstBlock_CanceledParentOrderQueryIsRetried(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		root: testRoot,
		readMetadataFunc: func([]string) ([]backend.Record, error) {
			return []backend.Record{
				{Commit: meta(testRoot, "m", 40, "theirs", "ours")},
				{Commit: meta(testRoot, "ours", 30)},
				{Commit: meta(testRoot, "theirs", 20)},
			}, nil
		},
		readTimedFunc: func([]string) ([]vcs.TimedCommit, error) {
			return []vcs.TimedCommit{timed("m", 40, "theirs", "ours")}, nil
		},
	}
	m := &fakeMetadata{branchesFunc: func() ([]vcs.Ref, error) { return nil, nil }}
	p := newTestProvider(b, m, func(o *Options) { o.Bek.Enabled = true })

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ReadFirstBlock(canceled, testRoot, vcs.Requirements{CommitCount: 10})
	require.ErrorIs(t, err, context.Canceled)

	data, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10})
	require.NoError(t, err)
	require.Equal(t, hash("m"), data.Commits[0].ID)
	assert.Equal(t, []vcs.Hash{hash("ours"), hash("theirs")}, data.Commits[0].Parents)

	queries := 0
	for _, c := range b.Calls() {
		if slices.Contains(c, "--min-parents=2") {
			queries++
		}
	}
	assert.Equal(t, 2, queries)
}

func TestReadFirstBlock_ParentOrderQueryIsBoundedByDefault(t *testing.T) {
	t.Parallel()

	b, m := linearRepo()
	var queryArgs []string
	b.readTimedFunc = func(args []string) ([]vcs.TimedCommit, error) {
		queryArgs = args
		return nil, nil
	}
	p := NewLogProvider(fakeOpener(b, m), DefaultOptions())

	_, err := p.ReadFirstBlock(context.Background(), testRoot, vcs.Requirements{CommitCount: 10})
	require.NoError(t, err)
	assert.Contains(t, queryArgs, "--min-parents=2")
	assert.Contains(t, queryArgs, "--max-count="+strconv.Itoa(DefaultBekProbeLimit))
}
