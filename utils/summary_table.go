package utils

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/spottoai/spotto-tools/model"
)

// DrawAssignmentSummary renders the created/skipped/failed tallies for the
// bulk assignment steps of a run.
func DrawAssignmentSummary(w io.Writer, result model.ProvisionResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Role assignment summary")
	tw.AppendHeader(table.Row{"Step", "Created", "Skipped", "Failed"})
	tw.AppendRow(summaryRow("Reader on subscriptions", result.Readers))
	tw.AppendRow(summaryRow("Tenant-level readers", result.TenantRoles))
	tw.AppendRow(summaryRow("Custom role assignments", result.CustomRole))
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	tw.Render()

	if result.GraphGranted {
		fmt.Fprintf(w, " %s\n", text.FgGreen.Sprint("Graph application-read permission is in place."))
	} else {
		fmt.Fprintf(w, " %s\n", text.FgYellow.Sprint("Graph application-read permission was NOT granted; grant it manually."))
	}
}

func summaryRow(step string, s model.StepSummary) table.Row {
	failed := fmt.Sprintf("%d", s.Failed)
	if s.Failed > 0 {
		failed = text.FgHiRed.Sprint(failed)
	}
	return table.Row{step, s.Created, s.Skipped, failed}
}
