package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "List attendance records",
	Long:  `Lists attendance records newest first, optionally filtered by date, employee and status.`,
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	addFilterFlags(attendanceCmd)

	attendanceCmd.Flags().Int("limit", constants.DefaultAttendanceLimit, "Number of records to retrieve")
	attendanceCmd.Flags().Int("offset", 0, "Offset for pagination")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "Only records of this date (YYYY-MM-DD)")
	cmd.Flags().Int64("employee", 0, "Only records of this employee ID")
	cmd.Flags().String("status", "", "Only records with this status (present, late, absent, half_day, on_leave)")
}

func filterFromFlags(cmd *cobra.Command) database.AttendanceFilter {
	return database.AttendanceFilter{
		Date:       mustGetString(cmd, "date"),
		EmployeeID: mustGetInt64(cmd, "employee"),
		Status:     database.AttendanceStatus(mustGetString(cmd, "status")),
	}
}

func runAttendance(cmd *cobra.Command, args []string) error {
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

	page := database.Page{Limit: mustGetInt(cmd, "limit"), Offset: mustGetInt(cmd, "offset")}
	result, err := svc.List(cmd.Context(), filterFromFlags(cmd), page)
	if err != nil {
		return fmt.Errorf("%s: %w", workflow.UserMessage(err), err)
	}

	if jsonOutput {
		return printJSON(result)
	}

	if len(result.Rows) == 0 {
		fmt.Println("No attendance records found.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "DATE\tCODE\tNAME\tDEPARTMENT\tCHECK IN\tCHECK OUT\tSTATUS\tCONFIDENCE")
	fmt.Fprintln(w, "----\t----\t----\t----------\t--------\t---------\t------\t----------")
	for _, r := range result.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Date, r.EmployeeCode, r.FullName, orDash(r.Department),
			clockOrDash(r.CheckInTime), clockOrDash(r.CheckOutTime), r.Status, percentOrDash(r.CheckInConfidence))
	}
	w.Flush()

	fmt.Printf("\nShowing %d-%d of %d records\n", result.Offset+1, result.Offset+len(result.Rows), result.Total)
	return nil
}
