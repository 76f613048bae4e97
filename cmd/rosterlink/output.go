package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/internal/platform/hipaa"
	"github.com/ehr/rosterlink/pkg/pagination"
)

// summaryColumns are shown by list-style commands unless --wide is given.
var summaryColumns = []string{
	roster.ColMotherID,
	roster.ColMotherFirstName,
	roster.ColMotherLastName,
	roster.ColChildFirstName,
	roster.ColChildLastName,
	roster.ColChildDOB,
	roster.ColCity,
	roster.ColAssignedNurse,
}

// pickColumns returns the summary columns present in available, or all of
// available when wide is set or none of them are present.
func pickColumns(available []string, wide bool) []string {
	if wide {
		return available
	}
	have := make(map[string]bool, len(available))
	for _, c := range available {
		have[c] = true
	}
	var cols []string
	for _, c := range summaryColumns {
		if have[c] {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return available
	}
	return cols
}

func (a *app) cell(col, v string) string {
	if a.showPHI || !hipaa.IsPHIColumn(col) {
		return v
	}
	return hipaa.MaskValue(v)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	return tw
}

// printRecords renders rows restricted to cols, masking PHI columns.
func (a *app) printRecords(cols []string, rows []*roster.Record) {
	tw := newTable(a.out, cols...)
	for _, r := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = a.cell(c, r.Value(c))
		}
		tw.Append(line)
	}
	tw.Render()
}

// printRecord renders one record vertically, one column per line.
func (a *app) printRecord(r *roster.Record) {
	tw := newTable(a.out, "Column", "Value")
	for _, c := range r.Columns() {
		tw.Append([]string{c, a.cell(c, r.Value(c))})
	}
	tw.Render()
}

func (a *app) printPage(resp *pagination.Response, shown int) {
	if resp.Total == 0 {
		fmt.Fprintln(a.out, "No records.")
		return
	}
	if shown == 0 {
		fmt.Fprintf(a.out, "No records at offset %d of %d.\n", resp.Offset, resp.Total)
		return
	}
	fmt.Fprintf(a.out, "Showing %d-%d of %d", resp.Offset+1, resp.Offset+shown, resp.Total)
	if resp.HasMore {
		fmt.Fprintf(a.out, " (next: --offset %d)", resp.Offset+resp.Limit)
	}
	fmt.Fprintln(a.out)
}
