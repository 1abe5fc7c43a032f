package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Attendance kiosk backed by a face-recognition service",
	Long: `Face Attendance captures photos from a camera, checks employees in and out
through an external face-recognition service and reports the attendance
records stored in MySQL/MariaDB or PostgreSQL.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of .env")
}

// initConfig loads variables that are not already set in the environment.
// The default .env is optional, an explicit --env-file is not.
func initConfig() {
	if envFile == "" {
		_ = godotenv.Load()
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFile, err)
		os.Exit(1)
	}
}
