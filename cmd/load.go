package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-sync/internal/git"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

func newLoadCommand(a *app) *cobra.Command {
	var (
		graph   bool
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "load [path]",
		Short: "Read the most recent commits and the refs pointing into them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLoad(cmd.Context(), repoArg(args), graph, refresh)
		},
	}
	cmd.Flags().BoolVarP(&graph, "graph", "g", false, "draw the commit graph")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refresh against the refs saved by the previous run")
	return cmd
}

func (a *app) runLoad(ctx context.Context, path string, graph, refresh bool) error {
	p := newProvider(a.cfg)
	root, err := resolveRoot(ctx, p, path)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	req := vcs.Requirements{CommitCount: a.cfg.Log.CommitCount}
	if refresh {
		previous, err := st.Load(ctx, root)
		if err != nil {
			a.log.Warn("loading saved refs", slog.String("root", root), slog.Any("error", err))
		}
		req.Refresh = len(previous) > 0
		req.RefreshRefs = req.Refresh
		req.PreviousRefs = previous
	}

	block, err := p.ReadFirstBlockStaged(ctx, root, req, func(s git.Stage) {
		a.log.Debug("first block", slog.String("root", root), slog.String("stage", s.String()))
	})
	if err != nil {
		return err
	}
	if err := st.Save(ctx, root, block.Data.Refs); err != nil {
		a.log.Warn("saving refs", slog.String("root", root), slog.Any("error", err))
	}

	refs := git.NewRefManager(trackingFunc(ctx, p))
	renderLog(a.out, block.Data, refs, graph, time.Now())
	renderWarning(a.out, block.Warning)
	return nil
}

// trackingFunc reads tracking metadata through p, logging failures.
func trackingFunc(ctx context.Context, p *git.LogProvider) func(root string) vcs.Tracking {
	return func(root string) vcs.Tracking {
		t, err := p.Tracking(ctx, root)
		if err != nil {
			slog.Warn("reading tracking metadata", slog.String("root", root), slog.Any("error", err))
		}
		return t
	}
}
