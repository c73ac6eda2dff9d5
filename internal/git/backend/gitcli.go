package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

const (
	DefaultGitBinary = "git"
	tracerName       = "gitk-sync"

	recordSep     = 0x1e
	maxRecordSize = 64 << 20
)

type CLIOptions struct {
	Binary  string
	Timeout time.Duration // per invocation, zero disables
}

// CLI implements Backend and Metadata on top of the git executable.
type CLI struct {
	root    string
	binary  string
	timeout time.Duration
}

var _ Backend = (*CLI)(nil)
var _ Metadata = (*CLI)(nil)

func OpenCLI(ctx context.Context, repoPath string, opts CLIOptions) (*CLI, error) {
	if opts.Binary == "" {
		opts.Binary = DefaultGitBinary
	}
	if err := ensureMinGitVersion(opts.Binary); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	tmp := &CLI{root: abs, binary: opts.Binary, timeout: opts.Timeout}
	root, err := tmp.runGitCommand(ctx, "git rev-parse", []string{"rev-parse", "--show-toplevel"}, false)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("open repository: git rev-parse returned empty root")
	}
	return &CLI{root: root, binary: opts.Binary, timeout: opts.Timeout}, nil
}

func (g *CLI) Root() string {
	if g == nil {
		return ""
	}
	return g.root
}

func (g *CLI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

func (g *CLI) fail(op string, args []string, stderr string, err error) error {
	return &vcs.BackendError{
		Root:   g.root,
		Op:     op,
		Args:   args,
		Stderr: strings.TrimSpace(stderr),
		Err:    err,
	}
}

func (g *CLI) runGitCommand(ctx context.Context, op string, args []string, allowExit1 bool) (string, error) {
	if g == nil || g.root == "" {
		return "", fmt.Errorf("repository root not set")
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	cmdArgs := append([]string{"-C", g.root}, args...)
	cmd := exec.CommandContext(ctx, g.binary, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			// quiet lookups (rev-parse -q, symbolic-ref -q) signal "absent" with exit code 1
		} else {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return "", g.fail(op, args, stderr.String(), err)
		}
	}
	return stdout.String(), nil
}

// streamLog runs "git log" and hands every RS-delimited record to fn. The
// process is killed as soon as fn fails or ctx is done.
func (g *CLI) streamLog(ctx context.Context, args []string, fn func(rec []byte) error) (err error) {
	if g == nil || g.root == "" {
		return fmt.Errorf("repository root not set")
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gitk-sync.git_log",
		trace.WithAttributes(
			attribute.String("vcs.root", g.root),
			attribute.StringSlice("git.args", args),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "git log failed")
		}
		span.End()
	}()

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	cmdArgs := append([]string{"--no-pager", "-C", g.root, "log", "--no-color"}, args...)
	cmd := exec.CommandContext(ctx, g.binary, cmdArgs...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return g.fail("git log", args, "", fmt.Errorf("stdout: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return g.fail("git log", args, stderr.String(), err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	scanner.Split(splitRecords)
	var sinkErr error
	for scanner.Scan() {
		rec := scanner.Bytes()
		if len(bytes.TrimSpace(rec)) == 0 {
			continue
		}
		if err := fn(rec); err != nil {
			sinkErr = err
			break
		}
	}
	scanErr := scanner.Err()
	if sinkErr != nil || scanErr != nil {
		cancel()
		_ = cmd.Wait()
		if sinkErr != nil {
			return sinkErr
		}
		return g.fail("git log", args, stderr.String(), scanErr)
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return g.fail("git log", args, stderr.String(), err)
	}
	return nil
}

func splitRecords(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, recordSep); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
