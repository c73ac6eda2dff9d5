package refresh

import "github.com/thiagokokada/gitk-sync/internal/vcs"

// RefDiff describes how refs changed between two snapshots. Moved holds the
// refs at their new commit.
type RefDiff struct {
	Added   []vcs.Ref
	Removed []vcs.Ref
	Moved   []vcs.Ref
}

func (d RefDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Moved) == 0
}

type refKey struct {
	root string
	name string
	typ  vcs.RefType
}

func DiffRefs(previous, current []vcs.Ref) RefDiff {
	before := make(map[refKey]vcs.Ref, len(previous))
	for _, r := range previous {
		before[refKey{r.Root, r.Name, r.Type}] = r
	}
	var d RefDiff
	seen := make(map[refKey]struct{}, len(current))
	for _, r := range current {
		k := refKey{r.Root, r.Name, r.Type}
		seen[k] = struct{}{}
		old, ok := before[k]
		switch {
		case !ok:
			d.Added = append(d.Added, r)
		case old.Commit != r.Commit:
			d.Moved = append(d.Moved, r)
		}
	}
	for _, r := range previous {
		if _, ok := seen[refKey{r.Root, r.Name, r.Type}]; !ok {
			d.Removed = append(d.Removed, r)
		}
	}
	vcs.SortRefs(d.Added)
	vcs.SortRefs(d.Removed)
	vcs.SortRefs(d.Moved)
	return d
}
