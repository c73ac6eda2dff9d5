package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-sync/internal/git"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

var filterDateLayouts = []string{time.RFC3339, time.DateTime, time.DateOnly}

type filterFlags struct {
	branches    []string
	revisions   []string
	ranges      []string
	after       string
	before      string
	grep        string
	regex       bool
	matchCase   bool
	authors     []string
	minParents  int
	maxParents  int
	firstParent bool
	maxCount    int
}

func newFilterCommand(a *app) *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "filter [path] [-- paths...]",
		Short: "List commits matching branch, range, text, user, date, parent and path filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, paths := ".", []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				paths = args[dash:]
				args = args[:dash]
			}
			if len(args) > 1 {
				return fmt.Errorf("expected at most one repository path, got %d", len(args))
			}
			if len(args) == 1 {
				path = args[0]
			}
			return a.runFilter(cmd.Context(), path, f, paths)
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVarP(&f.branches, "branch", "b", nil, `branch names; "!" excludes, "re:" matches a regular expression`)
	fl.StringSliceVar(&f.revisions, "rev", nil, "start from these commit hashes")
	fl.StringSliceVarP(&f.ranges, "range", "r", nil, "ref ranges as exclusive..inclusive")
	fl.StringVar(&f.after, "after", "", "only commits after this date")
	fl.StringVar(&f.before, "before", "", "only commits before this date")
	fl.StringVarP(&f.grep, "grep", "g", "", "commit message pattern")
	fl.BoolVar(&f.regex, "regex", false, "treat the message pattern as a regular expression")
	fl.BoolVar(&f.matchCase, "match-case", false, "match the message pattern case sensitively")
	fl.StringSliceVarP(&f.authors, "author", "a", nil, "authors to match")
	fl.IntVar(&f.minParents, "min-parents", 0, "minimum number of parents")
	fl.IntVar(&f.maxParents, "max-parents", git.NoParentBound, "maximum number of parents, -1 for no bound")
	fl.BoolVar(&f.firstParent, "first-parent", false, "follow only the first parent of merges")
	fl.IntVarP(&f.maxCount, "max-count", "n", 0, "maximum number of commits, 0 for no limit")
	return cmd
}

func parseFilterDate(s string) (time.Time, error) {
	for _, layout := range filterDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected one of %s", s, strings.Join(filterDateLayouts, ", "))
}

// collection turns command line filters into a FilterCollection for root.
func (f filterFlags) collection(root string, paths []string) (git.FilterCollection, error) {
	var fc git.FilterCollection

	branch, err := git.ParseBranchFilter(f.branches)
	if err != nil {
		return fc, err
	}
	fc.Branch = branch

	if len(f.revisions) > 0 {
		rf := &git.RevisionFilter{}
		for _, rev := range f.revisions {
			h, err := vcs.ParseHash(rev)
			if err != nil {
				return fc, fmt.Errorf("revision %q: %w", rev, err)
			}
			rf.Heads = append(rf.Heads, git.CommitID{Root: root, Hash: h})
		}
		fc.Revision = rf
	}

	if len(f.ranges) > 0 {
		rf := &git.RangeFilter{}
		for _, r := range f.ranges {
			excl, incl, ok := strings.Cut(r, "..")
			if !ok || excl == "" || incl == "" {
				return fc, fmt.Errorf("range %q: expected exclusive..inclusive", r)
			}
			rf.Ranges = append(rf.Ranges, git.RefRange{Exclusive: excl, Inclusive: incl})
		}
		fc.Range = rf
	}

	if f.after != "" || f.before != "" {
		df := &git.DateFilter{}
		if f.after != "" {
			if df.After, err = parseFilterDate(f.after); err != nil {
				return fc, err
			}
		}
		if f.before != "" {
			if df.Before, err = parseFilterDate(f.before); err != nil {
				return fc, err
			}
		}
		fc.Date = df
	}

	if f.grep != "" {
		fc.Text = &git.TextFilter{Pattern: f.grep, Regex: f.regex, MatchCase: f.matchCase}
	}
	if len(f.authors) > 0 {
		fc.User = &git.UserFilter{Users: f.authors}
	}
	if f.minParents > 0 || f.maxParents != git.NoParentBound {
		if f.maxParents != git.NoParentBound && f.maxParents < f.minParents {
			return fc, fmt.Errorf("max-parents %d is below min-parents %d", f.maxParents, f.minParents)
		}
		fc.Parent = &git.ParentFilter{Min: f.minParents, Max: f.maxParents}
	}
	if len(paths) > 0 {
		fc.Structure = &git.StructureFilter{Paths: paths}
	}
	fc.FirstParentOnly = f.firstParent
	return fc, nil
}

func (a *app) runFilter(ctx context.Context, path string, f filterFlags, paths []string) error {
	p := newProvider(a.cfg)
	root, err := resolveRoot(ctx, p, path)
	if err != nil {
		return err
	}
	fc, err := f.collection(root, paths)
	if err != nil {
		return err
	}
	commits, err := p.CommitsMatchingFilter(ctx, root, fc, f.maxCount)
	if err != nil {
		return err
	}
	renderCommits(a.out, commits, time.Now())
	return nil
}
