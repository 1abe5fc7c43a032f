package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's attendance summary",
	Long:  `Shows active employees, today's totals, recent check-ins and the attendance trend.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Int("days", constants.DefaultTrendDays, "Trailing days of the trend")
}

func runStats(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	stats, err := svc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", workflow.UserMessage(err), err)
	}
	if days := mustGetInt(cmd, "days"); days != constants.DefaultTrendDays {
		if stats.WeeklyTrend, err = svc.WeeklyTrend(ctx, days); err != nil {
			return fmt.Errorf("%s: %w", workflow.UserMessage(err), err)
		}
	}

	if jsonOutput {
		return printJSON(stats)
	}

	fmt.Printf("Date: %s\n", svc.Today())
	fmt.Printf("  Active employees: %d\n", stats.TotalEmployees)
	fmt.Printf("  Recorded:         %d\n", stats.Today.Total)
	fmt.Printf("  Present:          %d\n", stats.Today.Present)
	fmt.Printf("  Late:             %d\n", stats.Today.Late)
	fmt.Printf("  Absent:           %d\n", stats.Today.Absent)

	if len(stats.RecentCheckIns) > 0 {
		fmt.Println("\nRecent check-ins:")
		w := newTable()
		for _, c := range stats.RecentCheckIns {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
				c.CheckInTime.Format("15:04:05"), c.EmployeeCode, c.FullName, c.Status, percentOrDash(c.CheckInConfidence))
		}
		w.Flush()
	}

	if len(stats.WeeklyTrend) > 0 {
		fmt.Println("\nTrend:")
		w := newTable()
		fmt.Fprintln(w, "  DATE\tTOTAL\tPRESENT\tLATE")
		for _, p := range stats.WeeklyTrend {
			fmt.Fprintf(w, "  %s\t%d\t%d\t%d\n", p.Date, p.Total, p.Present, p.Late)
		}
		w.Flush()
	}
	return nil
}
