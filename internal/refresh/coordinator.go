// Package refresh keeps the published log snapshot of each repository root
// current. Cycles of one root never overlap; roots refresh independently.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thiagokokada/gitk-sync/internal/git"
	"github.com/thiagokokada/gitk-sync/internal/observability"
	"github.com/thiagokokada/gitk-sync/internal/store"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

const tracerName = "gitk-sync"

type State uint8

const (
	Idle State = iota
	Fetching
	Merging
	Validating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Merging:
		return "merging"
	case Validating:
		return "validating"
	default:
		return "unknown"
	}
}

func stateOf(s git.Stage) State {
	switch s {
	case git.StageMerging:
		return Merging
	case git.StageValidating:
		return Validating
	default:
		return Fetching
	}
}

// Provider reads first blocks. *git.LogProvider implements it.
type Provider interface {
	ReadFirstBlockStaged(ctx context.Context, root string, req vcs.Requirements, stage func(git.Stage)) (git.FirstBlock, error)
}

// Event is published after every cycle. Err is set when the cycle failed or
// was canceled, in which case Data is the snapshot still published.
type Event struct {
	Root    string
	Seq     uint64
	Initial bool
	Data    vcs.LogData
	Diff    RefDiff
	Warning *vcs.ConsistencyWarning
	Err     error
	Took    time.Duration
}

type Options struct {
	CommitCount int
	Store       store.Store
	Metrics     *observability.Metrics
}

type rootState struct {
	root    string
	pending chan struct{}
	done    chan struct{}
	stop    context.CancelFunc

	// guarded by Coordinator.mu
	state       State
	current     vcs.LogData
	published   bool
	previous    []vcs.Ref
	hasPrevious bool
	seq         uint64
	cancelCycle context.CancelFunc
}

type Coordinator struct {
	provider Provider
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	roots   map[string]*rootState
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

func NewCoordinator(provider Provider, opts Options) *Coordinator {
	if opts.CommitCount <= 0 {
		opts.CommitCount = git.DefaultCommitCount
	}
	if opts.Store == nil {
		opts.Store = store.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		provider: provider,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		roots:    map[string]*rootState{},
		subs:     map[int]chan Event{},
	}
}

// Start begins synchronizing root and schedules its first cycle. Refs saved
// by an earlier run make that cycle a refresh. The worker stops when ctx is
// done or the coordinator is closed.
func (c *Coordinator) Start(ctx context.Context, root string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("coordinator closed")
	}
	if _, ok := c.roots[root]; ok {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	previous, err := c.opts.Store.Load(ctx, root)
	if err != nil {
		slog.Warn("loading saved refs",
			slog.String("root", root),
			slog.Int("kept", len(previous)),
			slog.Any("error", err),
		)
	}

	workerCtx, stop := context.WithCancel(c.ctx)
	rs := &rootState{
		root:        root,
		pending:     make(chan struct{}, 1),
		done:        make(chan struct{}),
		stop:        stop,
		previous:    previous,
		hasPrevious: len(previous) > 0,
	}

	c.mu.Lock()
	if _, ok := c.roots[root]; ok || c.closed {
		c.mu.Unlock()
		stop()
		return nil
	}
	c.roots[root] = rs
	c.mu.Unlock()

	unlink := context.AfterFunc(ctx, stop)
	rs.pending <- struct{}{}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(rs.done)
		defer unlink()
		c.work(workerCtx, rs)
	}()
	return nil
}

func (c *Coordinator) lookup(root string) *rootState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roots[root]
}

// Refresh asks for a new cycle of root. Requests arriving while one is
// already pending are merged into it. It returns false for unknown roots.
func (c *Coordinator) Refresh(root string) bool {
	rs := c.lookup(root)
	if rs == nil {
		return false
	}
	select {
	case rs.pending <- struct{}{}:
	default:
		c.opts.Metrics.ObserveCoalesced(root)
	}
	return true
}

// Cancel aborts the running cycle of root, if any. The published snapshot is
// left untouched.
func (c *Coordinator) Cancel(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rs := c.roots[root]; rs != nil && rs.cancelCycle != nil {
		rs.cancelCycle()
	}
}

func (c *Coordinator) Snapshot(root string) (vcs.LogData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs := c.roots[root]
	if rs == nil || !rs.published {
		return vcs.LogData{}, false
	}
	return rs.current, true
}

func (c *Coordinator) State(root string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rs := c.roots[root]; rs != nil {
		return rs.state
	}
	return Idle
}

// Subscribe returns a channel receiving every event from now on and a
// function that unsubscribes and closes it. Events are dropped for a
// subscriber whose buffer is full.
func (c *Coordinator) Subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// Close stops every worker, waits for them and closes subscriber channels.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// Wait blocks until the worker of root exits.
func (c *Coordinator) Wait(root string) {
	if rs := c.lookup(root); rs != nil {
		<-rs.done
	}
}

func (c *Coordinator) work(ctx context.Context, rs *rootState) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rs.pending:
		}
		c.cycle(ctx, rs)
	}
}

func (c *Coordinator) setState(rs *rootState, s State) {
	c.mu.Lock()
	rs.state = s
	c.mu.Unlock()
}

func (c *Coordinator) cycle(ctx context.Context, rs *rootState) {
	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	rs.cancelCycle = cancel
	rs.state = Fetching
	previous := rs.previous
	refresh := rs.hasPrevious
	c.mu.Unlock()

	cycleCtx, span := otel.Tracer(tracerName).Start(cycleCtx, "gitk-sync.refresh_cycle",
		trace.WithAttributes(
			attribute.String("vcs.root", rs.root),
			attribute.Bool("log.refresh", refresh),
		))
	defer span.End()

	start := time.Now()
	req := vcs.Requirements{
		CommitCount:  c.opts.CommitCount,
		Refresh:      refresh,
		RefreshRefs:  refresh,
		PreviousRefs: previous,
	}
	block, err := c.provider.ReadFirstBlockStaged(cycleCtx, rs.root, req, func(s git.Stage) {
		c.setState(rs, stateOf(s))
	})
	if err == nil && cycleCtx.Err() != nil {
		err = cycleCtx.Err()
	}
	took := time.Since(start)

	c.mu.Lock()
	rs.state = Idle
	rs.cancelCycle = nil
	rs.seq++
	ev := Event{Root: rs.root, Seq: rs.seq, Initial: !refresh, Took: took}
	if err != nil {
		ev.Data = rs.current
		ev.Err = err
	} else {
		rs.current = block.Data
		rs.published = true
		rs.previous = block.Data.Refs
		rs.hasPrevious = true
		ev.Data = block.Data
		ev.Diff = DiffRefs(previous, block.Data.Refs)
		ev.Warning = block.Warning
	}
	c.mu.Unlock()

	if err == nil {
		if err := c.opts.Store.Save(ctx, rs.root, block.Data.Refs); err != nil {
			slog.Warn("saving refs", slog.String("root", rs.root), slog.Any("error", fmt.Errorf("store: %w", err)))
		}
	}
	c.mu.Lock()
	c.publishLocked(ev)
	c.mu.Unlock()

	if err != nil {
		result := observability.ResultError
		if errors.Is(err, context.Canceled) {
			result = observability.ResultCanceled
			slog.Info("refresh canceled", slog.String("root", rs.root))
		} else {
			slog.Error("refresh failed", slog.String("root", rs.root), slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		c.opts.Metrics.ObserveCycle(rs.root, result, took)
		return
	}

	slog.Debug("refresh published",
		slog.String("root", rs.root),
		slog.Uint64("seq", ev.Seq),
		slog.Int("commits", len(block.Data.Commits)),
		slog.Int("refs", len(block.Data.Refs)),
		slog.Duration("took", took),
	)
	c.opts.Metrics.ObserveCycle(rs.root, observability.ResultOK, took)
	c.opts.Metrics.ObservePublish(rs.root, len(block.Data.Commits), len(block.Data.Refs), block.Warning != nil)
}

func (c *Coordinator) publishLocked(ev Event) {
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping refresh event for slow subscriber",
				slog.String("root", ev.Root),
				slog.Uint64("seq", ev.Seq),
			)
		}
	}
}
