package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-sync/internal/git"
	"github.com/thiagokokada/gitk-sync/internal/observability"
	"github.com/thiagokokada/gitk-sync/internal/refresh"
)

const metricsShutdownTimeout = 5 * time.Second

func newWatchCommand(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Keep the history of repositories in sync as their refs change",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.Metrics.Addr = metricsAddr
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			return a.runWatch(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	return cmd
}

func (a *app) runWatch(ctx context.Context, paths []string) error {
	p := newProvider(a.cfg)
	roots := make([]string, 0, len(paths))
	for _, path := range paths {
		root, err := resolveRoot(ctx, p, path)
		if err != nil {
			return err
		}
		roots = append(roots, root)
	}

	st, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	if a.cfg.Metrics.Addr != "" {
		stop, err := serveMetrics(a.cfg.Metrics.Addr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	coord := refresh.NewCoordinator(p, refresh.Options{
		CommitCount: a.cfg.Log.CommitCount,
		Store:       st,
		Metrics:     metrics,
	})
	defer coord.Close()
	events, unsubscribe := coord.Subscribe(16)
	defer unsubscribe()

	for _, root := range roots {
		if err := coord.Start(ctx, root); err != nil {
			return err
		}
		if !a.cfg.Watch.Enabled {
			continue
		}
		w, err := refresh.Watch(root, a.cfg.Watch.Debounce, a.cfg.Watch.MaxWait, func() {
			coord.Refresh(root)
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}
	slog.Info("watching repositories", slog.Any("roots", roots), slog.Bool("fsnotify", a.cfg.Watch.Enabled))

	return a.printEvents(ctx, events)
}

func (a *app) printEvents(ctx context.Context, events <-chan refresh.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			renderEvent(a.out, ev)
		}
	}
}

// serveMetrics serves reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server", slog.Any("error", err))
		}
	}()
	slog.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("metrics server shutdown", slog.Any("error", err))
		}
	}, nil
}

var _ refresh.Provider = (*git.LogProvider)(nil)
