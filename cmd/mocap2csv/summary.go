package main

import (
	"io"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/phri-lab/mocapcsv"
)

func printSummary(w io.Writer, report *mocapcsv.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Input", "Output", "Frames", "Rows", "Dropped", "Duration", "Status"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, f := range report.Files {
		table.Append([]string{
			filepath.Base(f.Input),
			filepath.Base(f.Output),
			strconv.Itoa(f.Frames),
			strconv.Itoa(f.Rows),
			strconv.Itoa(f.Dropped),
			f.Duration.String(),
			f.Status().String(),
		})
	}
	table.Render()
}
