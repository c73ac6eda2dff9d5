package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/thiagokokada/gitk-sync/internal/git"
	"github.com/thiagokokada/gitk-sync/internal/refresh"
	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

var (
	headColor   = color.New(color.FgCyan, color.Bold)
	localColor  = color.New(color.FgGreen)
	remoteColor = color.New(color.FgRed)
	tagColor    = color.New(color.FgYellow)
	warnColor   = color.New(color.FgYellow, color.Bold)
	errColor    = color.New(color.FgRed, color.Bold)
)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false
	tbl.Style().Format.Footer = text.FormatDefault
	return tbl
}

func refLabel(r vcs.Ref) string {
	switch r.Type {
	case vcs.RefTypeHead:
		return headColor.Sprint(r.Name)
	case vcs.RefTypeLocalBranch:
		return localColor.Sprint(r.Name)
	case vcs.RefTypeRemoteBranch:
		return remoteColor.Sprint(r.Name)
	case vcs.RefTypeTag:
		return tagColor.Sprint(r.Name)
	default:
		return r.Name
	}
}

func refLabels(refs []vcs.Ref) string {
	labels := make([]string, len(refs))
	for i, r := range refs {
		labels[i] = refLabel(r)
	}
	return strings.Join(labels, " ")
}

func commitTime(c vcs.CommitMetadata) time.Time {
	if !c.Committer.When.IsZero() {
		return c.Committer.When
	}
	return time.Unix(c.Timestamp, 0)
}

// renderLog writes commits newest first with the refs pointing at them in
// label order. With graph set, a lane column is drawn.
func renderLog(w io.Writer, data vcs.LogData, refs *git.RefManager, graph bool, now time.Time) {
	byCommit := map[vcs.Hash][]vcs.Ref{}
	for _, r := range data.Refs {
		byCommit[r.Commit] = append(byCommit[r.Commit], r)
	}

	tbl := newTable()
	header := table.Row{"Commit", "Refs", "Subject", "Author", "Date"}
	if graph {
		header = append(table.Row{"Graph"}, header...)
	}
	tbl.AppendHeader(header)

	lanes := git.NewLaneBuilder()
	for _, c := range data.Commits {
		row := table.Row{
			c.ID.Short(),
			refLabels(refs.LabelOrder(byCommit[c.ID])),
			c.Subject(),
			c.Author.Name,
			humanize.RelTime(commitTime(c), now, "ago", "from now"),
		}
		if graph {
			row = append(table.Row{lanes.Line(c.TimedCommit)}, row...)
		}
		tbl.AppendRow(row)
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%s commits, %s refs",
		humanize.Comma(int64(len(data.Commits))), humanize.Comma(int64(len(data.Refs))))})
	fmt.Fprintln(w, tbl.Render())
}

func renderGroups(w io.Writer, groups []git.RefGroup) {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Group", "Name", "Refs", "Commit"})
	for _, g := range groups {
		commits := make([]string, 0, len(g.Refs))
		seen := map[vcs.Hash]bool{}
		for _, r := range g.Refs {
			if !seen[r.Commit] {
				seen[r.Commit] = true
				commits = append(commits, r.Commit.Short())
			}
		}
		tbl.AppendRow(table.Row{g.Kind.String(), g.Name, refLabels(g.Refs), strings.Join(commits, ",")})
	}
	fmt.Fprintln(w, tbl.Render())
}

func renderCommits(w io.Writer, commits []vcs.TimedCommit, now time.Time) {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Commit", "Parents", "Date"})
	for _, c := range commits {
		parents := make([]string, len(c.Parents))
		for i, p := range c.Parents {
			parents[i] = p.Short()
		}
		tbl.AppendRow(table.Row{
			c.ID.Short(),
			strings.Join(parents, " "),
			humanize.RelTime(time.Unix(c.Timestamp, 0), now, "ago", "from now"),
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%s commits", humanize.Comma(int64(len(commits))))})
	fmt.Fprintln(w, tbl.Render())
}

func renderWarning(w io.Writer, warning *vcs.ConsistencyWarning) {
	if warning == nil {
		return
	}
	heads := make([]string, len(warning.Heads))
	for i, h := range warning.Heads {
		heads[i] = h.Short()
	}
	warnColor.Fprintf(w, "inconsistent graph in %s: heads without refs: %s\n", warning.Root, strings.Join(heads, " "))
	fmt.Fprintln(w, warning.Dump)
}

func renderDiff(w io.Writer, d refresh.RefDiff) {
	for _, r := range d.Added {
		fmt.Fprintf(w, "  %s %s %s\n", localColor.Sprint("+"), refLabel(r), r.Commit.Short())
	}
	for _, r := range d.Moved {
		fmt.Fprintf(w, "  %s %s %s\n", tagColor.Sprint("~"), refLabel(r), r.Commit.Short())
	}
	for _, r := range d.Removed {
		fmt.Fprintf(w, "  %s %s %s\n", remoteColor.Sprint("-"), refLabel(r), r.Commit.Short())
	}
}

func renderEvent(w io.Writer, ev refresh.Event) {
	stamp := time.Now().Format(time.TimeOnly)
	if ev.Err != nil {
		errColor.Fprintf(w, "%s %s #%d failed after %s: %v\n", stamp, ev.Root, ev.Seq, ev.Took.Round(time.Millisecond), ev.Err)
		return
	}
	kind := "refresh"
	if ev.Initial {
		kind = "initial load"
	}
	fmt.Fprintf(w, "%s %s #%d %s: %s commits, %s refs in %s\n",
		stamp, ev.Root, ev.Seq, kind,
		humanize.Comma(int64(len(ev.Data.Commits))),
		humanize.Comma(int64(len(ev.Data.Refs))),
		ev.Took.Round(time.Millisecond))
	renderDiff(w, ev.Diff)
	renderWarning(w, ev.Warning)
}
