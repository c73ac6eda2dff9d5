package cmd

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitk-sync/internal/config"
	"github.com/thiagokokada/gitk-sync/internal/git"
	"github.com/thiagokokada/gitk-sync/internal/refresh"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Alice",
		"GIT_AUTHOR_EMAIL=alice@example.com",
		"GIT_COMMITTER_NAME=Alice",
		"GIT_COMMITTER_EMAIL=alice@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
		"HOME="+dir,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func createRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	runGit(t, dir, "init", "--quiet", "--initial-branch=main")
	for i, subject := range []string{"first commit", "second commit", "third commit"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte(strings.Repeat("x", i+1)), 0o644))
		runGit(t, dir, "add", "file.txt")
		runGit(t, dir, "commit", "--quiet", "--no-gpg-sign", "-m", subject)
	}
	runGit(t, dir, "tag", "v1", "HEAD~1")
	return dir
}

// execute runs the command line in an isolated working directory and HOME.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Chdir(home)
	t.Setenv("HOME", home)

	var out, errOut bytes.Buffer
	root := newRootCommand(&out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadCommand(t *testing.T) {
	repo := createRepo(t)

	out, err := execute(t, "load", "--store", "none", "--graph", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "third commit")
	assert.Contains(t, out, "first commit")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "*")
	assert.Contains(t, out, "3 commits")
	assert.NotContains(t, out, "inconsistent")
}

func TestLoadCommand_CommitCountFlag(t *testing.T) {
	repo := createRepo(t)

	out, err := execute(t, "load", "--store", "none", "--commit-count", "1", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "third commit")
	assert.NotContains(t, out, "second commit")
	assert.Contains(t, out, "1 commits")
}

func TestRefsCommand(t *testing.T) {
	repo := createRepo(t)

	out, err := execute(t, "refs", "--store", "none", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "HEAD main")
	assert.Contains(t, out, "v1")
}

func TestFilterCommand(t *testing.T) {
	repo := createRepo(t)

	out, err := execute(t, "filter", "--store", "none", "--grep", "SECOND", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "1 commits")

	_, err = execute(t, "filter", "--store", "none", "--range", "nodots", repo)
	assert.ErrorContains(t, err, "exclusive..inclusive")
}

func TestFilterCommand_BranchNamedLikeDirectory(t *testing.T) {
	repo := createRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "docs", "index.md"), []byte("docs"), 0o644))
	runGit(t, repo, "add", "docs")
	runGit(t, repo, "commit", "--quiet", "--no-gpg-sign", "-m", "add docs")
	runGit(t, repo, "branch", "docs", "HEAD~1")
	docsCommit := vcs.Hash(runGit(t, repo, "rev-parse", "HEAD")).Short()

	out, err := execute(t, "filter", "--store", "none", "--branch", "docs", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "3 commits")
	assert.NotContains(t, out, docsCommit)

	out, err = execute(t, "filter", "--store", "none", repo, "--", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "1 commits")
	assert.Contains(t, out, docsCommit)
}

func TestCommands_UnbornHead(t *testing.T) {
	repo := createRepo(t)
	runGit(t, repo, "checkout", "--quiet", "--orphan", "fresh")

	out, err := execute(t, "filter", "--store", "none", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "3 commits")

	out, err = execute(t, "load", "--store", "none", repo)
	require.NoError(t, err)
	assert.Contains(t, out, "third commit")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gitk-sync "))
	assert.Contains(t, out, "\ngit")
}

func TestInvalidConfigFlag(t *testing.T) {
	_, err := execute(t, "version", "--commit-count", "0")
	assert.ErrorIs(t, err, config.ErrInvalidCommitCount)
}

func TestFilterFlags_Collection(t *testing.T) {
	t.Parallel()

	h := strings.Repeat("ab", 20)
	f := filterFlags{
		branches:   []string{"main", "!re:^wip/"},
		revisions:  []string{h},
		ranges:     []string{"v1..main"},
		after:      "2024-01-02",
		grep:       "fix",
		regex:      true,
		authors:    []string{"alice"},
		minParents: 2,
		maxParents: git.NoParentBound,
		maxCount:   5,
	}
	fc, err := f.collection("/r", []string{"src"})
	require.NoError(t, err)

	require.NotNil(t, fc.Branch)
	assert.True(t, fc.Branch.Matches("main"))
	assert.False(t, fc.Branch.Matches("wip/x"))
	assert.Equal(t, []git.CommitID{{Root: "/r", Hash: vcs.Hash(h)}}, fc.Revision.Heads)
	assert.Equal(t, []git.RefRange{{Exclusive: "v1", Inclusive: "main"}}, fc.Range.Ranges)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local), fc.Date.After)
	assert.True(t, fc.Date.Before.IsZero())
	assert.Equal(t, &git.TextFilter{Pattern: "fix", Regex: true}, fc.Text)
	assert.Equal(t, []string{"alice"}, fc.User.Users)
	assert.Equal(t, &git.ParentFilter{Min: 2, Max: git.NoParentBound}, fc.Parent)
	assert.Equal(t, []string{"src"}, fc.Structure.Paths)
	assert.False(t, fc.FirstParentOnly)
}

func TestFilterFlags_Empty(t *testing.T) {
	t.Parallel()

	fc, err := filterFlags{maxParents: git.NoParentBound}.collection("/r", nil)
	require.NoError(t, err)
	assert.Equal(t, git.FilterCollection{}, fc)
}

func TestFilterFlags_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]filterFlags{
		"bad hash":     {revisions: []string{"xyz"}, maxParents: git.NoParentBound},
		"bad range":    {ranges: []string{"main.."}, maxParents: git.NoParentBound},
		"bad date":     {before: "yesterday", maxParents: git.NoParentBound},
		"bad parents":  {minParents: 3, maxParents: 1},
		"empty branch": {branches: []string{"!"}, maxParents: git.NoParentBound},
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := f.collection("/r", nil)
			assert.Error(t, err)
		})
	}
}

func TestRenderEvent(t *testing.T) {
	t.Parallel()

	main := vcs.Ref{Commit: vcs.Hash(strings.Repeat("a", 40)), Name: "main", Type: vcs.RefTypeLocalBranch, Root: "/r"}
	gone := vcs.Ref{Commit: vcs.Hash(strings.Repeat("b", 40)), Name: "old", Type: vcs.RefTypeTag, Root: "/r"}

	var buf bytes.Buffer
	renderEvent(&buf, refresh.Event{
		Root: "/r",
		Seq:  2,
		Data: vcs.LogData{Refs: []vcs.Ref{main}},
		Diff: refresh.RefDiff{Moved: []vcs.Ref{main}, Removed: []vcs.Ref{gone}},
		Warning: &vcs.ConsistencyWarning{
			Root:  "/r",
			Heads: []vcs.Hash{vcs.Hash(strings.Repeat("c", 40))},
			Dump:  "Root: /r",
		},
	})
	out := buf.String()
	assert.Contains(t, out, "/r #2 refresh: 0 commits, 1 refs")
	assert.Contains(t, out, "~ main aaaaaaa")
	assert.Contains(t, out, "- old bbbbbbb")
	assert.Contains(t, out, "heads without refs: ccccccc")
	assert.Contains(t, out, "Root: /r")

	buf.Reset()
	renderEvent(&buf, refresh.Event{Root: "/r", Seq: 3, Err: context.Canceled})
	assert.Contains(t, buf.String(), "/r #3 failed")
	assert.Contains(t, buf.String(), "context canceled")
}
