package indexer

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Report is the per-source summary of one batch run. Every extracted record is
// accounted for: Loaded + Rejected + Unrecognized + Conflicts covers the whole
// batch, and RejectedRecords keeps the excluded inputs for manual review.
type Report struct {
	Source    string
	StartedAt time.Time
	Duration  time.Duration

	Extracted    int
	Loaded       int
	Inserted     int
	Superseded   int
	Rejected     int
	Unrecognized int
	Conflicts    int

	RejectedRecords []RejectedRecord
}

// RejectedRecord pairs an excluded raw record with the reason it was excluded.
type RejectedRecord struct {
	Reason string
	Record RawRecord
}

func (r *Report) reject(raw RawRecord, reason string) {
	r.RejectedRecords = append(r.RejectedRecords, RejectedRecord{Reason: reason, Record: raw})
}

// RenderReports writes the run summary for all sources as a text table.
func RenderReports(w io.Writer, reports []*Report) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader([]string{
		"Source", "Extracted", "Inserted", "Superseded", "Rejected", "Unrecognized", "Conflicts", "Duration",
	})

	for _, r := range reports {
		table.Append([]string{
			r.Source,
			fmt.Sprintf("%d", r.Extracted),
			fmt.Sprintf("%d", r.Inserted),
			fmt.Sprintf("%d", r.Superseded),
			fmt.Sprintf("%d", r.Rejected),
			fmt.Sprintf("%d", r.Unrecognized),
			fmt.Sprintf("%d", r.Conflicts),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}
