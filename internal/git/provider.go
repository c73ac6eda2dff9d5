package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thiagokokada/gitk-sync/internal/git/backend"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

const tracerName = "gitk-sync"

const (
	DefaultCommitCount      = 1000
	DefaultQueryFactor      = 2
	DefaultTagBatchSize     = 20
	DefaultDetailsBatchSize = 200
)

// Stage is reported while a first block is being read.
type Stage uint8

const (
	StageFetching Stage = iota + 1
	StageMerging
	StageValidating
)

func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StageMerging:
		return "merging"
	case StageValidating:
		return "validating"
	default:
		return "unknown"
	}
}

type BekOptions struct {
	Enabled    bool
	Pattern    string
	ProbeLimit int
}

type Options struct {
	// QueryFactor multiplies the commit budget of first-block queries. git
	// does not order commits of different branches globally, so the window
	// is over-read and truncated after sorting.
	QueryFactor      int
	TagBatchSize     int
	DetailsBatchSize int
	Validate         bool
	Bek              BekOptions
}

func DefaultOptions() Options {
	return Options{
		QueryFactor:      DefaultQueryFactor,
		TagBatchSize:     DefaultTagBatchSize,
		DetailsBatchSize: DefaultDetailsBatchSize,
		Validate:         true,
		Bek:              BekOptions{Enabled: true, Pattern: DefaultBekPattern, ProbeLimit: DefaultBekProbeLimit},
	}
}

func (o Options) withDefaults() Options {
	if o.QueryFactor <= 0 {
		o.QueryFactor = DefaultQueryFactor
	}
	if o.TagBatchSize <= 0 {
		o.TagBatchSize = DefaultTagBatchSize
	}
	if o.DetailsBatchSize <= 0 {
		o.DetailsBatchSize = DefaultDetailsBatchSize
	}
	return o
}

// Opener connects to the repository at root.
type Opener func(ctx context.Context, root string) (backend.Backend, backend.Metadata, error)

// CLIOpener opens roots with the git executable. With nativeMetadata set,
// branches, tags and tracking are read with go-git instead.
func CLIOpener(opts backend.CLIOptions, nativeMetadata bool) Opener {
	return func(ctx context.Context, root string) (backend.Backend, backend.Metadata, error) {
		cli, err := backend.OpenCLI(ctx, root, opts)
		if err != nil {
			return nil, nil, err
		}
		if !nativeMetadata {
			return cli, cli, nil
		}
		native, err := backend.OpenNative(cli.Root())
		if err != nil {
			return nil, nil, err
		}
		return cli, native, nil
	}
}

// session is the per-root state of one synchronization session.
type session struct {
	root     string
	backend  backend.Backend
	metadata backend.Metadata

	fixerMu   sync.Mutex
	fixerDone bool
	fixer     *ParentFixer
}

// LogProvider answers history queries for any number of roots.
type LogProvider struct {
	open Opener
	opts Options

	mu       sync.Mutex
	sessions map[string]*session
}

func NewLogProvider(open Opener, opts Options) *LogProvider {
	return &LogProvider{
		open:     open,
		opts:     opts.withDefaults(),
		sessions: map[string]*session{},
	}
}

func (p *LogProvider) session(ctx context.Context, root string) (*session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[root]; ok {
		return s, nil
	}
	b, m, err := p.open(ctx, root)
	if err != nil {
		return nil, err
	}
	s := &session{root: root, backend: b, metadata: m}
	p.sessions[root] = s
	return s, nil
}

// Forget ends the session of root. The next query starts a new one and
// probes parent order again.
func (p *LogProvider) Forget(root string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, root)
}

// Root resolves the canonical root of the repository containing path.
func (p *LogProvider) Root(ctx context.Context, path string) (string, error) {
	s, err := p.session(ctx, path)
	if err != nil {
		return "", err
	}
	root := s.backend.Root()
	if root != path {
		p.mu.Lock()
		if _, ok := p.sessions[root]; !ok {
			p.sessions[root] = s
		}
		p.mu.Unlock()
	}
	return root, nil
}

// parentFixer probes parent order once per session. A probe cut short by
// ctx is not remembered, so the next read probes again.
func (p *LogProvider) parentFixer(ctx context.Context, s *session) *ParentFixer {
	s.fixerMu.Lock()
	defer s.fixerMu.Unlock()
	if s.fixerDone {
		return s.fixer
	}
	var strategy ParentOrderStrategy
	if p.opts.Bek.Enabled {
		strategy = MessageProbe{
			Pattern: p.opts.Bek.Pattern,
			Limit:   p.opts.Bek.ProbeLimit,
			Query:   p.CommitsMatchingFilter,
		}
	}
	fixer := PrepareParentFixer(ctx, s.root, strategy)
	if ctx.Err() != nil {
		return fixer
	}
	s.fixer, s.fixerDone = fixer, true
	return fixer
}

func (p *LogProvider) Tracking(ctx context.Context, root string) (vcs.Tracking, error) {
	s, err := p.session(ctx, root)
	if err != nil {
		return vcs.Tracking{}, err
	}
	return s.metadata.Tracking(ctx)
}

func (p *LogProvider) Branches(ctx context.Context, root string) ([]vcs.Ref, error) {
	s, err := p.session(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.metadata.Branches(ctx)
}

// FirstBlock is the outcome of ReadFirstBlockStaged.
type FirstBlock struct {
	Data    vcs.LogData
	Warning *vcs.ConsistencyWarning
}

// ReadFirstBlock reads the most recent req.CommitCount commits of root with
// the refs pointing into them.
func (p *LogProvider) ReadFirstBlock(ctx context.Context, root string, req vcs.Requirements) (vcs.LogData, error) {
	block, err := p.ReadFirstBlockStaged(ctx, root, req, nil)
	return block.Data, err
}

// ReadFirstBlockStaged is ReadFirstBlock reporting its progress to stage and
// returning the consistency warning, if any.
func (p *LogProvider) ReadFirstBlockStaged(ctx context.Context, root string, req vcs.Requirements, stage func(Stage)) (FirstBlock, error) {
	if stage == nil {
		stage = func(Stage) {}
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gitk-sync.read_first_block",
		trace.WithAttributes(
			attribute.String("vcs.root", root),
			attribute.Int("log.commit_count", req.CommitCount),
			attribute.Bool("log.refresh", req.Refresh),
		))
	defer span.End()

	block, err := p.readFirstBlock(ctx, root, req, stage)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read first block")
		return FirstBlock{}, err
	}
	span.SetAttributes(
		attribute.Int("log.commits", len(block.Data.Commits)),
		attribute.Int("log.refs", len(block.Data.Refs)),
		attribute.Bool("log.consistent", block.Warning == nil),
	)
	return block, nil
}

func (p *LogProvider) readFirstBlock(ctx context.Context, root string, req vcs.Requirements, stage func(Stage)) (FirstBlock, error) {
	s, err := p.session(ctx, root)
	if err != nil {
		return FirstBlock{}, err
	}
	fixer := p.parentFixer(ctx, s)

	count := req.CommitCount
	if count <= 0 {
		count = DefaultCommitCount
	}
	queryCount := count * p.opts.QueryFactor

	stage(StageFetching)
	branches, err := s.metadata.Branches(ctx)
	if err != nil {
		return FirstBlock{}, fmt.Errorf("read branches: %w", err)
	}
	scope := []string{"--branches", "--remotes"}
	if !unbornHead(branches) {
		scope = append([]string{vcs.HeadName}, scope...)
	}
	args := append(scope, "--max-count="+strconv.Itoa(queryCount), "--date-order", "--")
	safeRefs, fresh, err := p.readRecords(ctx, s, fixer, args)
	if err != nil {
		return FirstBlock{}, err
	}

	stage(StageMerging)
	allRefs := vcs.NewRefSet(safeRefs...)
	commits := newCommitSet(fresh...)
	var diag Diagnostics
	if req.Refresh && req.RefreshRefs {
		allRefs.AddNew(branches...)
		diag.Branches = branches
	}
	if req.Refresh {
		tagCommits, err := p.mergeTags(ctx, s, fixer, allRefs, commits, safeRefs, req.PreviousRefs, queryCount)
		if err != nil {
			return FirstBlock{}, err
		}
		diag.TagCommits = tagCommits
		diag.PreviousRefs = req.PreviousRefs
	}

	start := time.Now()
	sorted := SortMetadata(commits.commits)
	if len(sorted) > count {
		sorted = sorted[:count]
	}
	slog.Debug("sorted first block",
		slog.String("root", s.root),
		slog.Int("commits", len(sorted)),
		slog.Duration("took", time.Since(start)),
	)

	block := FirstBlock{Data: vcs.LogData{Refs: allRefs.Slice(), Commits: sorted}}
	if p.opts.Validate {
		stage(StageValidating)
		start = time.Now()
		block.Warning = Validate(s.root, block.Data.Refs, sorted, diag)
		slog.Debug("validated first block",
			slog.String("root", s.root),
			slog.Duration("took", time.Since(start)),
		)
		if block.Warning != nil {
			slog.Warn("inconsistent log data",
				slog.String("root", s.root),
				slog.Any("error", block.Warning),
				slog.String("dump", block.Warning.Dump),
			)
		}
	}
	return block, nil
}

// mergeTags keeps old tags that still exist and fetches history for tags
// that are new and not covered by the first block. It returns the commits
// fetched for tags.
func (p *LogProvider) mergeTags(
	ctx context.Context, s *session, fixer *ParentFixer,
	allRefs *vcs.RefSet, commits *commitSet,
	safeRefs, previousRefs []vcs.Ref, queryCount int,
) ([]vcs.CommitMetadata, error) {
	names, err := s.metadata.TagNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("read tag names: %w", err)
	}
	currentTags := make(map[string]struct{}, len(names))
	for _, n := range names {
		currentTags[n] = struct{}{}
	}
	addOldStillExistingTags(allRefs, s.root, currentTags, previousRefs)

	unmatched := newUnmatchedTags(currentTags, vcs.TagNames(previousRefs), vcs.TagNames(safeRefs))
	if len(unmatched) == 0 {
		return nil, nil
	}
	slog.Debug("loading history of new tags",
		slog.String("root", s.root),
		slog.Int("tags", len(unmatched)),
	)
	var fetched []vcs.CommitMetadata
	for batch := range slices.Chunk(unmatched, p.opts.TagBatchSize) {
		args := []string{"--max-count=" + strconv.Itoa(queryCount), "--date-order"}
		for _, name := range batch {
			args = append(args, "refs/tags/"+name)
		}
		args = append(args, "--")
		refs, tagged, err := p.readRecords(ctx, s, fixer, args)
		if err != nil {
			return nil, fmt.Errorf("read tagged history: %w", err)
		}
		allRefs.AddNew(refs...)
		commits.addNew(tagged...)
		fetched = append(fetched, tagged...)
	}
	return fetched, nil
}

// addOldStillExistingTags re-adds tags of the previous snapshot that the
// bounded query missed but that still exist.
func addOldStillExistingTags(allRefs *vcs.RefSet, root string, currentTags map[string]struct{}, previous []vcs.Ref) int {
	added := 0
	for _, r := range previous {
		if r.Type != vcs.RefTypeTag || r.Root != root {
			continue
		}
		if _, ok := currentTags[r.Name]; !ok {
			continue
		}
		added += allRefs.AddNew(r)
	}
	return added
}

func newUnmatchedTags(current, previous, safe map[string]struct{}) []string {
	var out []string
	for name := range current {
		if _, ok := previous[name]; ok {
			continue
		}
		if _, ok := safe[name]; ok {
			continue
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (p *LogProvider) readRecords(ctx context.Context, s *session, fixer *ParentFixer, args []string) ([]vcs.Ref, []vcs.CommitMetadata, error) {
	var refs []vcs.Ref
	var commits []vcs.CommitMetadata
	err := s.backend.ReadMetadata(ctx, args, func(rec backend.Record) error {
		refs = append(refs, rec.Refs...)
		commits = append(commits, fixer.FixMetadata(rec.Commit))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return refs, commits, nil
}

// ReadAllCommits streams the graph form of every commit reachable from any ref.
func (p *LogProvider) ReadAllCommits(ctx context.Context, root string, sink func(vcs.TimedCommit) error) error {
	s, err := p.session(ctx, root)
	if err != nil {
		return err
	}
	branches, err := s.metadata.Branches(ctx)
	if err != nil {
		return fmt.Errorf("read branches: %w", err)
	}
	fixer := p.parentFixer(ctx, s)
	args := append(allRefsScope(unbornHead(branches)), "--date-order", "--")
	return s.backend.ReadTimed(ctx, args, func(c vcs.TimedCommit) error {
		return sink(fixer.Fix(c))
	})
}

// ReadMetadata streams metadata of ids, in the given order.
func (p *LogProvider) ReadMetadata(ctx context.Context, root string, ids []vcs.Hash, sink func(vcs.CommitMetadata) error) error {
	s, err := p.session(ctx, root)
	if err != nil {
		return err
	}
	fixer := p.parentFixer(ctx, s)
	for batch := range slices.Chunk(ids, p.opts.DetailsBatchSize) {
		err := s.backend.ReadMetadata(ctx, noWalkArgs(batch), func(rec backend.Record) error {
			return sink(fixer.FixMetadata(rec.Commit))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadFullDetails streams metadata and changed paths of ids, in the given order.
func (p *LogProvider) ReadFullDetails(ctx context.Context, root string, ids []vcs.Hash, sink func(vcs.CommitDetails) error) error {
	s, err := p.session(ctx, root)
	if err != nil {
		return err
	}
	fixer := p.parentFixer(ctx, s)
	for batch := range slices.Chunk(ids, p.opts.DetailsBatchSize) {
		err := s.backend.ReadDetails(ctx, noWalkArgs(batch), func(d vcs.CommitDetails) error {
			d.CommitMetadata = fixer.FixMetadata(d.CommitMetadata)
			return sink(d)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// unbornHead reports whether the metadata branch list lacks HEAD, which is
// the case while HEAD names a branch without commits.
func unbornHead(branches []vcs.Ref) bool {
	return !slices.ContainsFunc(branches, func(r vcs.Ref) bool { return r.Type == vcs.RefTypeHead })
}

func noWalkArgs(ids []vcs.Hash) []string {
	args := make([]string, 0, len(ids)+2)
	args = append(args, "--no-walk=unsorted")
	for _, id := range ids {
		args = append(args, id.String())
	}
	return append(args, "--")
}

// CommitsMatchingFilter returns the commits of root matching filters, newest
// first. A filter that cannot match anything yields an empty result. A
// maxCount of zero or less returns every match.
func (p *LogProvider) CommitsMatchingFilter(ctx context.Context, root string, filters FilterCollection, maxCount int) ([]vcs.TimedCommit, error) {
	s, err := p.session(ctx, root)
	if err != nil {
		return nil, err
	}
	branches, err := s.metadata.Branches(ctx)
	if err != nil {
		return nil, fmt.Errorf("read branches: %w", err)
	}
	scope := QueryScope{Root: s.root, UnbornHead: unbornHead(branches)}
	for _, r := range branches {
		if r.Type.IsBranch() && r.Type != vcs.RefTypeHead {
			scope.BranchNames = append(scope.BranchNames, r.Name)
		}
	}
	queries, ok := CompileFilter(filters, scope, maxCount)
	if !ok {
		slog.Debug("filter matches nothing", slog.String("root", s.root))
		return nil, nil
	}

	seen := map[vcs.Hash]struct{}{}
	var out []vcs.TimedCommit
	var errs []error
	for _, args := range queries {
		err := s.backend.ReadTimed(ctx, args, func(c vcs.TimedCommit) error {
			if _, ok := seen[c.ID]; ok {
				return nil
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(queries) > 1 {
		out = SortTimed(out)
		if maxCount > 0 && len(out) > maxCount {
			out = out[:maxCount]
		}
	}
	return out, nil
}
