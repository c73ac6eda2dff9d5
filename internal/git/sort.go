package git

import (
	"cmp"
	"slices"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// SortByDateTopo orders commits newest first while keeping every commit
// before its parents. Ties on timestamp are broken by id, so the result only
// depends on the set of commits, not on the input order. Duplicate ids keep
// their first occurrence.
func SortByDateTopo[T any](items []T, timed func(T) vcs.TimedCommit) []T {
	index := make(map[vcs.Hash]int, len(items))
	nodes := make([]vcs.TimedCommit, 0, len(items))
	unique := make([]T, 0, len(items))
	for _, item := range items {
		c := timed(item)
		if _, ok := index[c.ID]; ok {
			continue
		}
		index[c.ID] = len(nodes)
		nodes = append(nodes, c)
		unique = append(unique, item)
	}
	n := len(nodes)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return cmp.Or(
			cmp.Compare(nodes[b].Timestamp, nodes[a].Timestamp),
			cmp.Compare(nodes[a].ID, nodes[b].ID),
		)
	})
	rank := make([]int, n)
	for pos, i := range order {
		rank[i] = pos
	}

	children := make([][]int, n)
	for i, c := range nodes {
		for _, p := range c.Parents {
			if j, ok := index[p]; ok && j != i {
				children[j] = append(children[j], i)
			}
		}
	}
	for _, ch := range children {
		slices.SortFunc(ch, func(a, b int) int { return cmp.Compare(rank[a], rank[b]) })
	}

	out := make([]T, 0, n)
	emitted := make([]bool, n)
	onStack := make([]bool, n)
	cursor := make([]int, n)
	stack := make([]int, 0, 16)
	for _, start := range order {
		if emitted[start] {
			continue
		}
		stack = append(stack[:0], start)
		onStack[start] = true
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			pushed := false
			for cursor[top] < len(children[top]) {
				ch := children[top][cursor[top]]
				cursor[top]++
				// onStack only happens on cyclic (corrupt) input
				if emitted[ch] || onStack[ch] {
					continue
				}
				stack = append(stack, ch)
				onStack[ch] = true
				pushed = true
				break
			}
			if pushed {
				continue
			}
			stack = stack[:len(stack)-1]
			onStack[top] = false
			emitted[top] = true
			out = append(out, unique[top])
		}
	}
	return out
}

func SortMetadata(commits []vcs.CommitMetadata) []vcs.CommitMetadata {
	return SortByDateTopo(commits, func(c vcs.CommitMetadata) vcs.TimedCommit { return c.TimedCommit })
}

func SortTimed(commits []vcs.TimedCommit) []vcs.TimedCommit {
	return SortByDateTopo(commits, func(c vcs.TimedCommit) vcs.TimedCommit { return c })
}

// commitSet keeps commits unique by id in insertion order.
type commitSet struct {
	seen    map[vcs.Hash]struct{}
	commits []vcs.CommitMetadata
}

func newCommitSet(commits ...vcs.CommitMetadata) *commitSet {
	s := &commitSet{seen: make(map[vcs.Hash]struct{}, len(commits))}
	s.addNew(commits...)
	return s
}

func (s *commitSet) addNew(commits ...vcs.CommitMetadata) int {
	added := 0
	for _, c := range commits {
		if _, ok := s.seen[c.ID]; ok {
			continue
		}
		s.seen[c.ID] = struct{}{}
		s.commits = append(s.commits, c)
		added++
	}
	return added
}
