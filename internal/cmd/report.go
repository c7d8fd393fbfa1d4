package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/skybrowse/pkg/listing"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// reportBatch writes the outcome of a batch and turns any failed job into
// an exit error. A nil result means nothing was selected.
func (c *commandContext) reportBatch(ctx context.Context, op string, res *transfer.BatchResult) error {
	c.waitBars()
	if res == nil {
		_, _ = fmt.Fprintln(c.out, "Nothing selected")
		return nil
	}

	if outputFormat() == "jsonl" {
		if err := c.writer.WriteSummary(ctx, res.Summary(op)); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write summary", err)
		}
	} else {
		writeBatchTable(c.out, res)
	}

	if res.Failed() > 0 {
		return exitError(foundry.ExitExternalServiceUnavailable, fmt.Sprintf("%s: %s", op, res.SummaryText()), res.Err())
	}
	return nil
}

func writeBatchTable(out io.Writer, res *transfer.BatchResult) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STATE\tSOURCE\tTARGET\tBYTES\tMESSAGE")
	for _, r := range res.Results {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.State, r.Job.Source(), r.Job.Target(), humanize.Bytes(uint64(max(r.Bytes, 0))), r.Message)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintln(out, res.SummaryText())
}

func writeContainersTable(out io.Writer, infos []provider.ContainerInfo) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tLAST MODIFIED")
	for _, c := range infos {
		modified := "-"
		if !c.LastModified.IsZero() {
			modified = humanize.Time(c.LastModified)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", c.Name, modified)
	}
	_ = tw.Flush()
}

func writeEntriesTable(out io.Writer, snap listing.Snapshot, isSelected func(id string, dir bool) bool) {
	mark := func(id string, dir bool) string {
		if isSelected != nil && isSelected(id, dir) {
			return "*"
		}
		return " "
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, " \tNAME\tSIZE\tTYPE\tMODIFIED")
	for _, d := range snap.Directories {
		_, _ = fmt.Fprintf(tw, "%s\t%s/\t-\tdirectory\t-\n", mark(d.ID(), true), d.Name())
	}
	for _, o := range snap.Objects {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			mark(o.ID, false), o.BaseName(), humanize.Bytes(uint64(max(o.Size, 0))), contentType(o.ContentType), humanize.Time(o.LastModified))
	}
	_ = tw.Flush()
}

func contentType(ct string) string {
	if ct == "" {
		return "-"
	}
	return ct
}
