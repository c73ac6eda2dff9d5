package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-sync/internal/git"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

func newRefsCommand(a *app) *cobra.Command {
	var (
		compact bool
		tags    bool
		layout  bool
	)
	cmd := &cobra.Command{
		Use:   "refs [path]",
		Short: "Show the refs of a repository grouped as in the branch table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRefs(cmd.Context(), repoArg(args), compact, tags, layout)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "collapse untracked remotes and tags into single groups")
	cmd.Flags().BoolVar(&tags, "tags", true, "show tag names instead of a single tags group")
	cmd.Flags().BoolVar(&layout, "layout", false, "list refs in graph layout order instead of grouping them")
	return cmd
}

func (a *app) runRefs(ctx context.Context, path string, compact, tags, layout bool) error {
	p := newProvider(a.cfg)
	root, err := resolveRoot(ctx, p, path)
	if err != nil {
		return err
	}
	// a refresh against nothing also merges in branches and tags whose
	// commits are outside the window
	block, err := p.ReadFirstBlock(ctx, root, vcs.Requirements{
		CommitCount: a.cfg.Log.CommitCount,
		Refresh:     true,
		RefreshRefs: true,
	})
	if err != nil {
		return err
	}

	m := git.NewRefManager(trackingFunc(ctx, p))
	if layout {
		ordered := m.LayoutOrder(block.Refs)
		groups := make([]git.RefGroup, len(ordered))
		for i, r := range ordered {
			groups[i] = git.RefGroup{Kind: git.GroupSingle, Name: r.Name, Refs: []vcs.Ref{r}}
		}
		renderGroups(a.out, groups)
		return nil
	}
	renderGroups(a.out, m.GroupForTable(block.Refs, compact, tags))
	return nil
}
