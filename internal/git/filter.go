package git

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// NoParentBound disables the upper bound of a ParentFilter.
const NoParentBound = -1

const filterDateLayout = "2006-01-02 15:04:05 -0700"

// allRefsScope selects every commit reachable from any ref. An unborn HEAD
// cannot be named as a revision.
func allRefsScope(unbornHead bool) []string {
	scope := []string{"--branches", "--remotes", "--tags"}
	if unbornHead {
		return scope
	}
	return append([]string{vcs.HeadName}, scope...)
}

// FilterCollection is the set of optional predicates of a filtered query.
// A nil filter does not restrict anything.
type FilterCollection struct {
	Branch    *BranchFilter
	Revision  *RevisionFilter
	Range     *RangeFilter
	Date      *DateFilter
	Text      *TextFilter
	User      *UserFilter
	Parent    *ParentFilter
	Structure *StructureFilter

	FirstParentOnly bool
}

// BranchFilter selects branches by exact name or by pattern. Exclusions win
// over inclusions.
type BranchFilter struct {
	Names            []string
	Patterns         []*regexp.Regexp
	Excluded         []string
	ExcludedPatterns []*regexp.Regexp
}

// ParseBranchFilter builds a filter from command line expressions. A leading
// "!" excludes, a "re:" prefix makes the rest a regular expression.
func ParseBranchFilter(exprs []string) (*BranchFilter, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	f := &BranchFilter{}
	for _, expr := range exprs {
		exclude := strings.HasPrefix(expr, "!")
		expr = strings.TrimPrefix(expr, "!")
		if pattern, ok := strings.CutPrefix(expr, "re:"); ok {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("branch pattern %q: %w", pattern, err)
			}
			if exclude {
				f.ExcludedPatterns = append(f.ExcludedPatterns, re)
			} else {
				f.Patterns = append(f.Patterns, re)
			}
			continue
		}
		if expr == "" {
			return nil, fmt.Errorf("empty branch expression")
		}
		if exclude {
			f.Excluded = append(f.Excluded, expr)
		} else {
			f.Names = append(f.Names, expr)
		}
	}
	return f, nil
}

func (f *BranchFilter) Matches(name string) bool {
	if slices.Contains(f.Excluded, name) {
		return false
	}
	for _, re := range f.ExcludedPatterns {
		if re.MatchString(name) {
			return false
		}
	}
	if slices.Contains(f.Names, name) {
		return true
	}
	for _, re := range f.Patterns {
		if re.MatchString(name) {
			return true
		}
	}
	// exclusions alone keep everything else
	return len(f.Names) == 0 && len(f.Patterns) == 0
}

type CommitID struct {
	Root string
	Hash vcs.Hash
}

type RevisionFilter struct {
	Heads []CommitID
}

// RefRange selects commits reachable from Inclusive but not from Exclusive.
type RefRange struct {
	Exclusive string
	Inclusive string
}

type RangeFilter struct {
	Ranges []RefRange
}

// DateFilter bounds the commit time. Zero times are ignored.
type DateFilter struct {
	After  time.Time
	Before time.Time
}

type TextFilter struct {
	Pattern   string
	Regex     bool
	MatchCase bool
}

// UserFilter matches commits whose author is one of Users.
type UserFilter struct {
	Users []string
}

// ParentFilter bounds the number of parents. Max is NoParentBound for no
// upper bound.
type ParentFilter struct {
	Min int
	Max int
}

// StructureFilter restricts history to paths, absolute or relative to the root.
type StructureFilter struct {
	Paths []string
}

// QueryScope is what the compiler needs to know about a root.
type QueryScope struct {
	Root string
	// BranchNames are the short names of the local and remote branches.
	BranchNames []string
	// UnbornHead is set when HEAD points at a branch without commits.
	UnbornHead bool
}

// CompileFilter turns filters into git log argument vectors. When both a
// branch or revision filter and a range filter are present the result holds
// two queries whose results must be unioned. ok is false when the filters
// cannot match anything in this root.
func CompileFilter(filters FilterCollection, scope QueryScope, maxCount int) (queries [][]string, ok bool) {
	hasRefScope := filters.Branch != nil || filters.Revision != nil
	if !hasRefScope && filters.Range == nil {
		return [][]string{compileQuery(filters, scope, allRefsScope(scope.UnbornHead), maxCount)}, true
	}
	if hasRefScope {
		if revisions := refScope(filters, scope); len(revisions) > 0 {
			queries = append(queries, compileQuery(filters, scope, revisions, maxCount))
		}
	}
	if filters.Range != nil {
		if revisions := rangeScope(filters.Range); len(revisions) > 0 {
			queries = append(queries, compileQuery(filters, scope, revisions, maxCount))
		}
	}
	return queries, len(queries) > 0
}

func refScope(filters FilterCollection, scope QueryScope) []string {
	var out []string
	if filters.Branch != nil {
		names := slices.Clone(scope.BranchNames)
		if !scope.UnbornHead {
			names = append(names, vcs.HeadName)
		}
		for _, name := range names {
			if filters.Branch.Matches(name) && !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	if filters.Revision != nil {
		for _, id := range filters.Revision.Heads {
			if id.Root == scope.Root && !id.Hash.IsZero() {
				out = append(out, id.Hash.String())
			}
		}
	}
	return out
}

func rangeScope(f *RangeFilter) []string {
	out := make([]string, 0, len(f.Ranges))
	for _, r := range f.Ranges {
		if r.Inclusive == "" {
			continue
		}
		out = append(out, r.Exclusive+".."+r.Inclusive)
	}
	return out
}

func compileQuery(filters FilterCollection, scope QueryScope, revisions []string, maxCount int) []string {
	args := slices.Clone(revisions)

	if d := filters.Date; d != nil {
		if !d.After.IsZero() {
			args = append(args, "--after="+d.After.Format(filterDateLayout))
		}
		if !d.Before.IsZero() {
			args = append(args, "--before="+d.Before.Format(filterDateLayout))
		}
	}

	regex, matchCase := true, false
	if t := filters.Text; t != nil {
		regex, matchCase = t.Regex, t.MatchCase
		if t.Pattern != "" {
			args = append(args, "--grep="+t.Pattern)
		}
	}
	if regex {
		args = append(args, "--extended-regexp")
	} else {
		args = append(args, "--fixed-strings")
	}
	if !matchCase {
		args = append(args, "--regexp-ignore-case")
	}

	if u := filters.User; u != nil && len(u.Users) > 0 {
		args = append(args, authorArgs(u.Users, regex)...)
	}

	if maxCount > 0 {
		args = append(args, "--max-count="+strconv.Itoa(maxCount))
	}
	if filters.FirstParentOnly {
		args = append(args, "--first-parent")
	}
	if p := filters.Parent; p != nil {
		if p.Min > 0 {
			args = append(args, "--min-parents="+strconv.Itoa(p.Min))
		}
		if p.Max >= 0 {
			args = append(args, "--max-parents="+strconv.Itoa(p.Max))
		}
	}

	// revisions are never read as paths, even when a file shares their name
	var paths []string
	if s := filters.Structure; s != nil && len(s.Paths) > 0 {
		args = append(args, "--full-history", "--simplify-merges")
		for _, p := range s.Paths {
			paths = append(paths, relativePath(scope.Root, p))
		}
	}
	args = append(args, "--")
	return append(args, paths...)
}

func authorArgs(users []string, regex bool) []string {
	if regex {
		quoted := make([]string, 0, len(users))
		for _, u := range users {
			quoted = append(quoted, regexp.QuoteMeta(u))
		}
		return []string{"--author=" + strings.Join(quoted, "|")}
	}
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, "--author="+strings.ReplaceAll(u, `\`, `\\`))
	}
	return out
}

func relativePath(root, p string) string {
	if root == "" || !filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
