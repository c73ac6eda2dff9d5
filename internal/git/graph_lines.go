package git

import (
	"slices"
	"strings"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// LaneBuilder renders one text line of lanes per commit, gitk style. Commits
// must be fed in date-topological order.
type LaneBuilder struct {
	lanes []vcs.Hash
}

func NewLaneBuilder() *LaneBuilder {
	return &LaneBuilder{}
}

// Line returns the lanes of c: "*" marks the commit, "M" a merge, "|" other
// branches still open.
func (b *LaneBuilder) Line(c vcs.TimedCommit) string {
	idx := slices.Index(b.lanes, c.ID)
	if idx == -1 {
		b.lanes = append([]vcs.Hash{c.ID}, b.lanes...)
		idx = 0
	}
	mark := "*"
	if len(c.Parents) > 1 {
		mark = "M"
	}
	var sb strings.Builder
	for i := range b.lanes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if i == idx {
			sb.WriteString(mark)
		} else {
			sb.WriteByte('|')
		}
	}
	b.advance(idx, c.Parents)
	return sb.String()
}

func (b *LaneBuilder) Width() int {
	return len(b.lanes)
}

func (b *LaneBuilder) advance(idx int, parents []vcs.Hash) {
	if len(parents) == 0 {
		b.lanes = slices.Delete(b.lanes, idx, idx+1)
		return
	}
	// A first parent already owned by another lane joins it.
	if other := slices.Index(b.lanes, parents[0]); other >= 0 && other != idx {
		b.lanes = slices.Delete(b.lanes, idx, idx+1)
		if other > idx {
			other--
		}
		idx = other
	} else {
		b.lanes[idx] = parents[0]
	}
	for i, parent := range parents[1:] {
		if slices.Contains(b.lanes, parent) {
			continue
		}
		pos := min(idx+i+1, len(b.lanes))
		b.lanes = slices.Insert(b.lanes, pos, parent)
	}
}
