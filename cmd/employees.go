package cmd

import (
	"fmt"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
)

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "List enrolled employees",
	Long:  `Lists all employees with their number of enrollment photos, newest first.`,
	RunE:  runEmployees,
}

var employeesShowCmd = &cobra.Command{
	Use:   "show <employee-id>",
	Short: "Show an employee with photos and recent attendance",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmployeesShow,
}

func init() {
	rootCmd.AddCommand(employeesCmd)
	employeesCmd.AddCommand(employeesShowCmd)

	employeesCmd.Flags().String("query", "", "Filter by name, code or department")
}

func runEmployees(cmd *cobra.Command, args []string) error {
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

	employees, err := svc.ListEmployees(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s: %w", workflow.UserMessage(err), err)
	}
	employees = attendance.FilterEmployees(employees, mustGetString(cmd, "query"))

	if jsonOutput {
		return printJSON(employees)
	}

	if len(employees) == 0 {
		fmt.Println("No employees found.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tCODE\tNAME\tDEPARTMENT\tPOSITION\tSTATUS\tPHOTOS")
	fmt.Fprintln(w, "--\t----\t----\t----------\t--------\t------\t------")
	for _, e := range employees {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			e.ID, e.Code, e.FullName, orDash(e.Department), orDash(e.Position), e.Status, e.PhotoCount)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d employees\n", len(employees))
	return nil
}

func runEmployeesShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid employee id %q", args[0])
	}

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

	detail, err := svc.GetEmployeeDetail(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("%s: %w", workflow.UserMessage(err), err)
	}
	if detail == nil {
		return fmt.Errorf("employee %d not found", id)
	}

	if jsonOutput {
		return printJSON(detail)
	}

	e := detail.Employee
	fmt.Printf("%s (%s)\n", e.FullName, e.Code)
	fmt.Printf("  Email:      %s\n", orDash(e.Email))
	fmt.Printf("  Phone:      %s\n", orDash(e.Phone))
	fmt.Printf("  Department: %s\n", orDash(e.Department))
	fmt.Printf("  Position:   %s\n", orDash(e.Position))
	fmt.Printf("  Status:     %s\n", e.Status)
	fmt.Printf("  Enrolled:   %s\n", e.CreatedAt.Format("2006-01-02 15:04"))
	if primary := database.PrimaryPhoto(detail.Photos); primary != nil {
		fmt.Printf("  Photo:      %s\n", primary.ImagePath)
	}

	fmt.Printf("\nPhotos (%d):\n", len(detail.Photos))
	for _, p := range detail.Photos {
		primary := ""
		if p.IsPrimary {
			primary = " [primary]"
		}
		fmt.Printf("  #%d %s quality %.2f%s\n", p.ID, p.ImagePath, p.QualityScore, primary)
	}

	if len(detail.Attendance) == 0 {
		fmt.Println("\nNo attendance records.")
		return nil
	}
	fmt.Println()
	w := newTable()
	fmt.Fprintln(w, "DATE\tCHECK IN\tCHECK OUT\tSTATUS")
	for _, a := range detail.Attendance {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Date, clockOrDash(a.CheckInTime), clockOrDash(a.CheckOutTime), a.Status)
	}
	return w.Flush()
}
