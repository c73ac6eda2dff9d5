package cmd

import (
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-sync/internal/buildinfo"
	"github.com/thiagokokada/gitk-sync/internal/git"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.printf("gitk-sync %s\n", buildinfo.VersionWithTags())
			gitVersion, err := git.GitVersion(a.cfg.Backend.Git)
			if err != nil {
				a.printf("git: unavailable (%v)\n", err)
				return nil
			}
			a.printf("git %s (minimum %s)\n", gitVersion, git.MinGitVersion())
			return nil
		},
	}
}
