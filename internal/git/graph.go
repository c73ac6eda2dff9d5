package git

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// PermanentGraph is the immutable DAG built from a sorted commit list. Nodes
// are addressed by their position in that list; edges to commits outside the
// list are dropped.
type PermanentGraph struct {
	ids      []vcs.Hash
	index    map[vcs.Hash]int
	parents  [][]int
	children [][]int
}

func BuildPermanentGraph(commits []vcs.TimedCommit) *PermanentGraph {
	g := &PermanentGraph{
		ids:      make([]vcs.Hash, len(commits)),
		index:    make(map[vcs.Hash]int, len(commits)),
		parents:  make([][]int, len(commits)),
		children: make([][]int, len(commits)),
	}
	for i, c := range commits {
		g.ids[i] = c.ID
		if _, ok := g.index[c.ID]; !ok {
			g.index[c.ID] = i
		}
	}
	for i, c := range commits {
		for _, p := range c.Parents {
			j, ok := g.index[p]
			if !ok || j == i {
				continue
			}
			g.parents[i] = append(g.parents[i], j)
			g.children[j] = append(g.children[j], i)
		}
	}
	return g
}

func (g *PermanentGraph) Len() int { return len(g.ids) }

func (g *PermanentGraph) ID(node int) vcs.Hash { return g.ids[node] }

func (g *PermanentGraph) Parents(node int) []int { return g.parents[node] }

func (g *PermanentGraph) Children(node int) []int { return g.children[node] }

// Heads returns the nodes without children, in list order.
func (g *PermanentGraph) Heads() []int {
	var out []int
	for i := range g.ids {
		if len(g.children[i]) == 0 && g.index[g.ids[i]] == i {
			out = append(out, i)
		}
	}
	return out
}

// Diagnostics is the context attached to a consistency warning.
type Diagnostics struct {
	// Branches are the refs read from repository metadata, if any.
	Branches []vcs.Ref
	// TagCommits are the commits fetched for new tags, if any.
	TagCommits []vcs.CommitMetadata
	// PreviousRefs produce a diff against the current refs when set.
	PreviousRefs []vcs.Ref
}

// Validate builds the permanent graph of commits and checks that every head
// points at a commit named by some ref. It returns nil when the data is
// consistent.
func Validate(root string, refs []vcs.Ref, commits []vcs.CommitMetadata, diag Diagnostics) *vcs.ConsistencyWarning {
	timed := make([]vcs.TimedCommit, len(commits))
	for i, c := range commits {
		timed[i] = c.TimedCommit
	}
	g := BuildPermanentGraph(timed)

	covered := make(map[vcs.Hash]struct{}, len(refs))
	for _, r := range refs {
		if r.Root == root {
			covered[r.Commit] = struct{}{}
		}
	}
	var missing []vcs.Hash
	for _, node := range g.Heads() {
		if _, ok := covered[g.ID(node)]; !ok {
			missing = append(missing, g.ID(node))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &vcs.ConsistencyWarning{
		Root:  root,
		Heads: missing,
		Dump:  diagnosticDump(root, refs, commits, diag),
	}
}

func diagnosticDump(root string, refs []vcs.Ref, commits []vcs.CommitMetadata, diag Diagnostics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Root: %s\n", root)
	b.WriteString("All refs:\n")
	writeRefs(&b, refs)
	b.WriteString("All commits:\n")
	writeCommits(&b, commits)
	if diag.Branches != nil {
		b.WriteString("Branches read from metadata:\n")
		writeRefs(&b, diag.Branches)
	}
	if diag.TagCommits != nil {
		b.WriteString("Commits fetched for new tags:\n")
		writeCommits(&b, diag.TagCommits)
	}
	if diag.PreviousRefs != nil {
		if d := RefDumpDiff(diag.PreviousRefs, refs); d != "" {
			b.WriteString("Refs since previous snapshot:\n")
			b.WriteString(d)
		}
	}
	return b.String()
}

func writeRefs(b *strings.Builder, refs []vcs.Ref) {
	for _, line := range refLines(refs) {
		b.WriteString("  ")
		b.WriteString(line)
	}
}

func writeCommits(b *strings.Builder, commits []vcs.CommitMetadata) {
	for _, c := range commits {
		parents := make([]string, len(c.Parents))
		for i, p := range c.Parents {
			parents[i] = p.Short()
		}
		fmt.Fprintf(b, "  %s %d [%s]\n", c.ID.Short(), c.Timestamp, strings.Join(parents, " "))
	}
}

func refLines(refs []vcs.Ref) []string {
	sorted := slices.Clone(refs)
	vcs.SortRefs(sorted)
	lines := make([]string, len(sorted))
	for i, r := range sorted {
		lines[i] = fmt.Sprintf("%s %s %s\n", r.Commit.Short(), r.Type, r.FullName())
	}
	return lines
}

// RefDumpDiff renders a unified diff between two ref sets. It is empty when
// both sets hold the same refs.
func RefDumpDiff(previous, current []vcs.Ref) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        refLines(previous),
		B:        refLines(current),
		FromFile: "previous",
		ToFile:   "current",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return text
}
