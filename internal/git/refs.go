package git

import (
	"cmp"
	"slices"
	"strings"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

const (
	masterBranch       = "master"
	originMasterBranch = "origin/master"
)

// Priority tables of the two orders. Position is priority.
var (
	labelTypeOrder  = []vcs.RefType{vcs.RefTypeHead, vcs.RefTypeLocalBranch, vcs.RefTypeRemoteBranch, vcs.RefTypeTag, vcs.RefTypeOther}
	layoutTypeOrder = []vcs.RefType{vcs.RefTypeRemoteBranch, vcs.RefTypeLocalBranch, vcs.RefTypeTag, vcs.RefTypeOther, vcs.RefTypeHead}
)

type GroupKind uint8

const (
	// GroupSingle holds one ref, or a local branch without a remote counterpart.
	GroupSingle GroupKind = iota
	// GroupTracked holds a local branch followed by the remote branch it tracks.
	GroupTracked
	// GroupHead holds a detached HEAD.
	GroupHead
	// GroupRemotes collapses untracked remote branches in compact mode.
	GroupRemotes
	// GroupTags holds tags.
	GroupTags
)

func (k GroupKind) String() string {
	switch k {
	case GroupSingle:
		return "single"
	case GroupTracked:
		return "tracked"
	case GroupHead:
		return "head"
	case GroupRemotes:
		return "remotes"
	case GroupTags:
		return "tags"
	default:
		return "unknown"
	}
}

type RefGroup struct {
	Kind GroupKind
	Name string
	Refs []vcs.Ref
}

// RefManager orders and groups refs. Tracking relationships are looked up per
// root through the tracking function and are never owned by the manager.
type RefManager struct {
	tracking func(root string) vcs.Tracking
}

func NewRefManager(tracking func(root string) vcs.Tracking) *RefManager {
	if tracking == nil {
		tracking = func(string) vcs.Tracking { return vcs.Tracking{} }
	}
	return &RefManager{tracking: tracking}
}

// trackingCache memoizes lookups for the duration of one operation.
type trackingCache struct {
	lookup func(string) vcs.Tracking
	byRoot map[string]vcs.Tracking
}

func (m *RefManager) newCache() *trackingCache {
	return &trackingCache{lookup: m.tracking, byRoot: map[string]vcs.Tracking{}}
}

func (c *trackingCache) get(root string) vcs.Tracking {
	t, ok := c.byRoot[root]
	if !ok {
		t = c.lookup(root)
		c.byRoot[root] = t
	}
	return t
}

func (c *trackingCache) isTracked(r vcs.Ref) bool {
	t := c.get(r.Root)
	switch r.Type {
	case vcs.RefTypeLocalBranch:
		return t.Upstream[r.Name] != ""
	case vcs.RefTypeRemoteBranch:
		_, ok := t.TrackedBy(r.Name)
		return ok
	default:
		return false
	}
}

func isMaster(r vcs.Ref) bool {
	return (r.Type == vcs.RefTypeLocalBranch && r.Name == masterBranch) ||
		(r.Type == vcs.RefTypeRemoteBranch && r.Name == originMasterBranch)
}

func typeRank(table []vcs.RefType, t vcs.RefType) int {
	if i := slices.Index(table, t); i >= 0 {
		return i
	}
	return len(table)
}

// trueFirst orders true before false.
func trueFirst(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

func (m *RefManager) comparator(table []vcs.RefType) func(a, b vcs.Ref) int {
	cache := m.newCache()
	return func(a, b vcs.Ref) int {
		return cmp.Or(
			cmp.Compare(typeRank(table, a.Type), typeRank(table, b.Type)),
			trueFirst(isMaster(a), isMaster(b)),
			trueFirst(cache.isTracked(a), cache.isTracked(b)),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Root, b.Root),
			cmp.Compare(a.Commit, b.Commit),
		)
	}
}

// LabelOrder sorts refs the way labels next to a commit are shown: HEAD, then
// local branches with master first, then remote branches, tags and the rest.
func (m *RefManager) LabelOrder(refs []vcs.Ref) []vcs.Ref {
	out := slices.Clone(refs)
	slices.SortStableFunc(out, m.comparator(labelTypeOrder))
	return out
}

// LayoutOrder sorts refs for branch layout, where remote branches lead so
// that lanes of tracked branches stay stable.
func (m *RefManager) LayoutOrder(refs []vcs.Ref) []vcs.Ref {
	out := slices.Clone(refs)
	slices.SortStableFunc(out, m.comparator(layoutTypeOrder))
	return out
}

// GroupForTable groups refs for a table cell. Local branches are paired with
// their remote counterpart. In compact mode untracked remote branches and
// tags collapse into one group each. HEAD joins the group of the current
// branch, or the first group, unless the root is detached.
func (m *RefManager) GroupForTable(refs []vcs.Ref, compact, showTagNames bool) []RefGroup {
	cache := m.newCache()
	sorted := m.LabelOrder(refs)

	var heads, locals, remotes, tags, others []vcs.Ref
	for _, r := range sorted {
		switch r.Type {
		case vcs.RefTypeHead:
			heads = append(heads, r)
		case vcs.RefTypeLocalBranch:
			locals = append(locals, r)
		case vcs.RefTypeRemoteBranch:
			remotes = append(remotes, r)
		case vcs.RefTypeTag:
			tags = append(tags, r)
		default:
			others = append(others, r)
		}
	}

	paired := make([]bool, len(remotes))
	var groups []RefGroup
	for _, local := range locals {
		g := RefGroup{Kind: GroupSingle, Name: local.Name, Refs: []vcs.Ref{local}}
		if i := counterpart(local, remotes, paired, cache.get(local.Root)); i >= 0 {
			paired[i] = true
			g.Kind = GroupTracked
			g.Refs = append(g.Refs, remotes[i])
		}
		groups = append(groups, g)
	}

	var rest []vcs.Ref
	for i, r := range remotes {
		if !paired[i] {
			rest = append(rest, r)
		}
	}
	switch {
	case len(rest) == 0:
	case compact:
		groups = append(groups, RefGroup{Kind: GroupRemotes, Name: rest[0].Name, Refs: rest})
	default:
		for _, r := range rest {
			groups = append(groups, RefGroup{Kind: GroupSingle, Name: r.Name, Refs: []vcs.Ref{r}})
		}
	}

	switch {
	case len(tags) == 0:
	case !showTagNames:
		groups = append(groups, RefGroup{Kind: GroupTags, Name: "tags", Refs: tags})
	case compact:
		groups = append(groups, RefGroup{Kind: GroupTags, Name: tags[0].Name, Refs: tags})
	default:
		for _, t := range tags {
			groups = append(groups, RefGroup{Kind: GroupTags, Name: t.Name, Refs: []vcs.Ref{t}})
		}
	}

	for _, r := range others {
		groups = append(groups, RefGroup{Kind: GroupSingle, Name: r.Name, Refs: []vcs.Ref{r}})
	}

	// Walk heads backwards so that the first root ends up in front.
	for i := len(heads) - 1; i >= 0; i-- {
		groups = placeHead(groups, heads[i], cache.get(heads[i].Root))
	}
	return groups
}

// counterpart finds the remote branch tracked by local: explicit tracking
// configuration first, then the <remote>/<name> convention.
func counterpart(local vcs.Ref, remotes []vcs.Ref, paired []bool, t vcs.Tracking) int {
	find := func(name string) int {
		for i, r := range remotes {
			if !paired[i] && r.Root == local.Root && r.Name == name {
				return i
			}
		}
		return -1
	}
	if upstream := t.Upstream[local.Name]; upstream != "" {
		if i := find(upstream); i >= 0 {
			return i
		}
	}
	if len(t.Remotes) > 0 {
		for _, remote := range t.Remotes {
			if i := find(remote + "/" + local.Name); i >= 0 {
				return i
			}
		}
		return -1
	}
	for i, r := range remotes {
		if paired[i] || r.Root != local.Root {
			continue
		}
		if _, name, ok := strings.Cut(r.Name, "/"); ok && name == local.Name {
			return i
		}
	}
	return -1
}

func placeHead(groups []RefGroup, head vcs.Ref, t vcs.Tracking) []RefGroup {
	if t.Detached || len(groups) == 0 {
		g := RefGroup{Kind: GroupHead, Name: vcs.HeadName, Refs: []vcs.Ref{head}}
		return append([]RefGroup{g}, groups...)
	}
	target := 0
	if t.CurrentBranch != "" {
		for i, g := range groups {
			if g.Refs[0].Type == vcs.RefTypeLocalBranch && g.Refs[0].Root == head.Root && g.Refs[0].Name == t.CurrentBranch {
				target = i
				break
			}
		}
	}
	groups[target].Refs = append([]vcs.Ref{head}, groups[target].Refs...)
	return groups
}
