package vcs

import (
	"cmp"
	"slices"
	"strings"
)

const (
	HeadName = "HEAD"

	headsPrefix   = "refs/heads/"
	remotesPrefix = "refs/remotes/"
	tagsPrefix    = "refs/tags/"
)

// Ref is a named pointer into the commit graph.
type Ref struct {
	Commit Hash
	Name   string // short name: main, origin/main, v1
	Type   RefType
	Root   string
}

// SameName reports whether r and other denote the same named ref, whatever
// commit they currently point to.
func (r Ref) SameName(other Ref) bool {
	return r.Name == other.Name && r.Type == other.Type && r.Root == other.Root
}

// Classify maps a full ref name as printed by git to its type.
func Classify(raw string) RefType {
	switch {
	case raw == HeadName:
		return RefTypeHead
	case strings.HasPrefix(raw, headsPrefix):
		return RefTypeLocalBranch
	case strings.HasPrefix(raw, remotesPrefix):
		return RefTypeRemoteBranch
	case strings.HasPrefix(raw, tagsPrefix):
		return RefTypeTag
	default:
		return RefTypeOther
	}
}

// ShortName strips the namespace prefix implied by the ref type.
func ShortName(raw string) string {
	for _, prefix := range []string{headsPrefix, remotesPrefix, tagsPrefix} {
		if strings.HasPrefix(raw, prefix) {
			return strings.TrimPrefix(raw, prefix)
		}
	}
	return strings.TrimPrefix(raw, "refs/")
}

// NewRef classifies raw and builds the corresponding ref.
func NewRef(root string, commit Hash, raw string) Ref {
	return Ref{Commit: commit, Name: ShortName(raw), Type: Classify(raw), Root: root}
}

// FullName returns the fully qualified name git understands unambiguously.
func (r Ref) FullName() string {
	switch r.Type {
	case RefTypeHead:
		return HeadName
	case RefTypeLocalBranch:
		return headsPrefix + r.Name
	case RefTypeRemoteBranch:
		return remotesPrefix + r.Name
	case RefTypeTag:
		return tagsPrefix + r.Name
	default:
		return "refs/" + r.Name
	}
}

type refKey struct {
	root string
	name string
	typ  RefType
}

func keyOf(r Ref) refKey {
	return refKey{root: r.Root, name: r.Name, typ: r.Type}
}

// RefSet holds refs unique by name, type and root. The first ref added for a
// name wins.
type RefSet struct {
	byName map[refKey]Ref
	order  []refKey
}

func NewRefSet(refs ...Ref) *RefSet {
	s := &RefSet{byName: make(map[refKey]Ref, len(refs))}
	s.AddNew(refs...)
	return s
}

// AddNew adds refs whose name is not present yet and returns how many were added.
func (s *RefSet) AddNew(refs ...Ref) int {
	added := 0
	for _, r := range refs {
		k := keyOf(r)
		if _, ok := s.byName[k]; ok {
			continue
		}
		s.byName[k] = r
		s.order = append(s.order, k)
		added++
	}
	return added
}

func (s *RefSet) ContainsName(r Ref) bool {
	_, ok := s.byName[keyOf(r)]
	return ok
}

func (s *RefSet) Len() int {
	return len(s.order)
}

// Slice returns the refs sorted by root, type, name.
func (s *RefSet) Slice() []Ref {
	out := make([]Ref, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byName[k])
	}
	SortRefs(out)
	return out
}

// Hashes returns the set of commits pointed to by the refs.
func (s *RefSet) Hashes() map[Hash]struct{} {
	out := make(map[Hash]struct{}, len(s.byName))
	for _, r := range s.byName {
		out[r.Commit] = struct{}{}
	}
	return out
}

// SortRefs orders refs deterministically for dumps and persistence.
func SortRefs(refs []Ref) {
	slices.SortFunc(refs, func(a, b Ref) int {
		return cmp.Or(
			cmp.Compare(a.Root, b.Root),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Commit, b.Commit),
		)
	})
}

// TagNames returns the names of the tags among refs.
func TagNames(refs []Ref) map[string]struct{} {
	out := map[string]struct{}{}
	for _, r := range refs {
		if r.Type == RefTypeTag {
			out[r.Name] = struct{}{}
		}
	}
	return out
}
