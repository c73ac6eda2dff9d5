// Package cmd implements the gitk-sync command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thiagokokada/gitk-sync/internal/config"
	"github.com/thiagokokada/gitk-sync/internal/observability"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	out io.Writer
	log *slog.Logger

	configPath string
	verbose    bool
	logFormat  string
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:   "gitk-sync",
		Short: "Incremental commit graph synchronization for git repositories",
		Long: `gitk-sync reads the recent history of git repositories, keeps it in sync
as refs move and checks the result for consistency.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWith(a.v, a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = observability.NewLogger(errOut, a.verbose, a.logFormat)
			slog.SetDefault(a.log)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default .gitk-sync.yaml in . or $HOME)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&a.logFormat, "log-format", observability.FormatText, "log format: text or json")
	flags.Int("commit-count", config.DefaultCommitCount, "number of recent commits to read")
	flags.Int("query-factor", config.DefaultQueryFactor, "over-read factor of first-block queries")
	flags.Bool("validate", true, "check every head of the graph is covered by a ref")
	flags.Bool("bek", true, "probe and fix the parent order of merge commits")
	flags.String("git", config.DefaultGitBinary, "git executable")
	flags.String("metadata", config.MetadataNative, "metadata reader: native or cli")
	flags.String("store", config.StoreFile, "ref snapshot store: none, file or redis")

	for key, flag := range map[string]string{
		"log.commit_count": "commit-count",
		"log.query_factor": "query-factor",
		"log.validate":     "validate",
		"bek.enabled":      "bek",
		"backend.git":      "git",
		"backend.metadata": "metadata",
		"store.kind":       "store",
	} {
		// the flag names are static, binding cannot fail
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newLoadCommand(a),
		newRefsCommand(a),
		newFilterCommand(a),
		newWatchCommand(a),
		newVersionCommand(a),
	)
	return root
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func repoArg(args []string) string {
	if len(args) > 0 {
		return args[len(args)-1]
	}
	return "."
}
