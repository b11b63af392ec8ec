package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Attendance verification service for StaffTrack HR",
	Long: `Attendance is the verification subsystem of the StaffTrack HR platform.
It runs the punch authorization API (geofence and face verification),
manages biometric face enrollments, and provides admin tooling for
geofence configuration.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
