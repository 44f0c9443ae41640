package main

import (
	"fmt"
	"io"
	"time"

	"hs-go/internal/database/sqlc"
	"hs-go/internal/hs"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// stateLabel combines the derived state with a warning when the backup
// artifact itself has gone missing.
func stateLabel(st *hs.FileStatus) string {
	label := st.State.String()
	if !st.BackupPresent {
		label += " (backup missing)"
	}
	return label
}

func printStatuses(w io.Writer, statuses []*hs.FileStatus) error {
	var table = tablewriter.NewWriter(w)
	table.Header("ID", "Path", "Status", "Protected")

	for _, st := range statuses {
		err := table.Append([]string{
			fmt.Sprintf("%d", st.Record.ID),
			st.Record.OriginalPath,
			stateLabel(st),
			humanize.Time(st.Record.ProtectedAt),
		})
		if err != nil {
			return fmt.Errorf("adding row: %w", err)
		}
	}
	return table.Render()
}

func printFolders(w io.Writer, folders []string) error {
	var table = tablewriter.NewWriter(w)
	table.Header("Folder")

	for _, f := range folders {
		if err := table.Append([]string{f}); err != nil {
			return fmt.Errorf("adding row: %w", err)
		}
	}
	return table.Render()
}

func printOperations(w io.Writer, ops []*sqlc.Operation) error {
	var table = tablewriter.NewWriter(w)
	table.Header("ID", "Operation", "Parameters", "Started", "Status", "Duration")

	for _, op := range ops {
		duration := ""
		if op.FinishedAt.Valid {
			d := op.FinishedAt.Time.Sub(op.StartedAt)
			duration = d.Truncate(time.Millisecond).String()
		}
		err := table.Append([]string{
			fmt.Sprintf("#%d", op.ID),
			op.Operation,
			op.Parameters,
			op.StartedAt.Local().Format("2006-01-02 15:04:05"),
			op.Status,
			duration,
		})
		if err != nil {
			return fmt.Errorf("adding row: %w", err)
		}
	}
	return table.Render()
}
