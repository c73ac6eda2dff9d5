package backend

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// Every record starts with RS and its header ends with NUL; anything after
// the NUL (e.g. --name-status output) is the record trailer. Commit messages
// cannot contain NUL.
const (
	timedFormat    = "%x1e%H%n%P%n%ct%x00"
	metadataFormat = "%x1e%H%n%P%n%ct%n%an%n%ae%n%aI%n%cn%n%ce%n%cI%n%D%n%B%x00"

	metadataFields = 10
)

func (g *CLI) ReadTimed(ctx context.Context, args []string, sink func(vcs.TimedCommit) error) error {
	full := append([]string{"--pretty=tformat:" + timedFormat}, args...)
	return g.streamLog(ctx, full, func(rec []byte) error {
		commit, err := parseTimedRecord(rec)
		if err != nil {
			return g.fail("parse git log", full, "", err)
		}
		return sink(commit)
	})
}

func (g *CLI) ReadMetadata(ctx context.Context, args []string, sink func(Record) error) error {
	full := append([]string{"--decorate=full", "--pretty=tformat:" + metadataFormat}, args...)
	return g.streamLog(ctx, full, func(rec []byte) error {
		r, _, err := parseMetadataRecord(g.root, rec)
		if err != nil {
			return g.fail("parse git log", full, "", err)
		}
		return sink(r)
	})
}

func (g *CLI) ReadDetails(ctx context.Context, args []string, sink func(vcs.CommitDetails) error) error {
	full := append([]string{"--decorate=full", "--name-status", "--pretty=tformat:" + metadataFormat}, args...)
	return g.streamLog(ctx, full, func(rec []byte) error {
		r, trailer, err := parseMetadataRecord(g.root, rec)
		if err != nil {
			return g.fail("parse git log", full, "", err)
		}
		changes, err := parseNameStatus(trailer)
		if err != nil {
			return g.fail("parse git log", full, "", err)
		}
		return sink(vcs.CommitDetails{CommitMetadata: r.Commit, Changes: changes})
	})
}

func splitHeader(rec []byte) (string, string) {
	if i := bytes.IndexByte(rec, 0); i >= 0 {
		return string(rec[:i]), string(rec[i+1:])
	}
	return string(rec), ""
}

func parseTimedRecord(rec []byte) (vcs.TimedCommit, error) {
	header, _ := splitHeader(rec)
	parts := strings.Split(strings.TrimLeft(header, "\r\n"), "\n")
	if len(parts) < 3 {
		return vcs.TimedCommit{}, fmt.Errorf("unexpected git log record: got %d lines", len(parts))
	}
	return parseTimedFields(parts[0], parts[1], parts[2])
}

func parseTimedFields(hashLine, parentLine, timeLine string) (vcs.TimedCommit, error) {
	id, err := vcs.ParseHash(hashLine)
	if err != nil {
		return vcs.TimedCommit{}, fmt.Errorf("commit hash: %w", err)
	}
	var parents []vcs.Hash
	for _, field := range strings.Fields(parentLine) {
		p, err := vcs.ParseHash(field)
		if err != nil {
			return vcs.TimedCommit{}, fmt.Errorf("parent of %s: %w", id.Short(), err)
		}
		parents = append(parents, p)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(timeLine), 10, 64)
	if err != nil {
		return vcs.TimedCommit{}, fmt.Errorf("timestamp of %s: %w", id.Short(), err)
	}
	return vcs.TimedCommit{ID: id, Parents: parents, Timestamp: ts}, nil
}

func parseMetadataRecord(root string, rec []byte) (Record, string, error) {
	header, trailer := splitHeader(rec)
	parts := strings.SplitN(strings.TrimLeft(header, "\r\n"), "\n", metadataFields+1)
	if len(parts) < metadataFields {
		return Record{}, "", fmt.Errorf("unexpected git log record: got %d lines", len(parts))
	}
	timed, err := parseTimedFields(parts[0], parts[1], parts[2])
	if err != nil {
		return Record{}, "", err
	}
	authorWhen, _ := time.Parse(time.RFC3339, parts[5])
	committerWhen, _ := time.Parse(time.RFC3339, parts[8])
	message := ""
	if len(parts) > metadataFields {
		message = parts[metadataFields]
	}
	commit := vcs.CommitMetadata{
		TimedCommit: timed,
		Root:        root,
		Author:      vcs.Signature{Name: parts[3], Email: parts[4], When: authorWhen},
		Committer:   vcs.Signature{Name: parts[6], Email: parts[7], When: committerWhen},
		Message:     message,
	}
	return Record{Commit: commit, Refs: parseDecorations(root, timed.ID, parts[9])}, trailer, nil
}

// parseDecorations reads the %D placeholder printed with --decorate=full.
func parseDecorations(root string, id vcs.Hash, line string) []vcs.Ref {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var refs []vcs.Ref
	for item := range strings.SplitSeq(line, ", ") {
		item = strings.TrimSpace(item)
		if target, ok := strings.CutPrefix(item, "HEAD -> "); ok {
			refs = append(refs, vcs.NewRef(root, id, vcs.HeadName))
			item = target
		}
		item = strings.TrimPrefix(item, "tag: ")
		if item != vcs.HeadName && !strings.HasPrefix(item, "refs/") {
			// "grafted" and similar markers
			continue
		}
		if isRemoteHead(item) {
			continue
		}
		refs = append(refs, vcs.NewRef(root, id, item))
	}
	return refs
}

func isRemoteHead(fullName string) bool {
	return strings.HasPrefix(fullName, "refs/remotes/") && strings.HasSuffix(fullName, "/HEAD")
}

func parseNameStatus(trailer string) ([]vcs.Change, error) {
	var changes []vcs.Change
	for rawLine := range strings.SplitSeq(trailer, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("unexpected name-status line: %q", rawLine)
		}
		change := vcs.Change{Status: fields[0], Path: unquotePath(fields[len(fields)-1])}
		if len(fields) == 3 {
			change.OldPath = unquotePath(fields[1])
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func unquotePath(p string) string {
	if len(p) >= 2 && p[0] == '"' {
		if unq, err := strconv.Unquote(p); err == nil {
			return unq
		}
	}
	return p
}
