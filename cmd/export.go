package cmd

import (
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance records to an XLSX file",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addFilterFlags(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "Output file (default attendance-<date>-<id>.xlsx)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := filterFromFlags(cmd)
	rows, total, err := attendance.CollectRows(cmd.Context(), svc, filter, constants.ExportMaxRows)
	if err != nil {
		return fmt.Errorf("%s: %w", workflow.UserMessage(err), err)
	}

	output := mustGetString(cmd, "output")
	if output == "" {
		output = attendance.ExportFilename(filter)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := attendance.WriteXLSX(f, attendance.ExportTitle(filter), rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf("Exported %d records to %s\n", len(rows), output)
	if total > len(rows) {
		fmt.Printf("Warning: %d records matched, only the first %d fit in one sheet\n", total, len(rows))
	}
	return nil
}
