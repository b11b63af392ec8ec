package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/database/mock"
	"github.com/stafftrack/attendance/internal/database/postgres"
	"github.com/stafftrack/attendance/internal/descriptor"
	"github.com/stafftrack/attendance/internal/directory"
	"github.com/stafftrack/attendance/internal/match"
	"github.com/stafftrack/attendance/internal/punch"
)

var punchCmd = &cobra.Command{
	Use:   "punch [employee-id]",
	Short: "Evaluate a punch attempt from the command line",
	Long: `Evaluate one check-in/check-out attempt against the live stores and
print the authorization decision. Intended for debugging verification
behavior without a kiosk: pass coordinates for the location signal and
optionally a photo for the face signal.`,
	Args: cobra.ExactArgs(1),
	RunE: runPunch,
}

func init() {
	rootCmd.AddCommand(punchCmd)

	punchCmd.Flags().String("type", "check_in", "Punch type: check_in or check_out")
	punchCmd.Flags().Float64("lat", 0, "Device latitude")
	punchCmd.Flags().Float64("lng", 0, "Device longitude")
	punchCmd.Flags().Bool("no-location", false, "Simulate a device without geolocation")
	punchCmd.Flags().String("photo", "", "Photo file for the face signal (optional)")
	punchCmd.Flags().String("device", "cli", "Device identifier recorded on the punch")
	punchCmd.Flags().Bool("dry-run", false, "Evaluate without persisting the punch")
}

func formatDecision(dec punch.Decision) {
	verdict := "REJECTED"
	if dec.Authorized {
		verdict = "AUTHORIZED"
	}
	fmt.Printf("\n%s (method: %s)\n", verdict, dec.Method)
	if dec.Reason != "" {
		fmt.Printf("  Reason: %s\n", dec.Reason)
	}
	if dec.Location != nil {
		fmt.Printf("  Location: verified=%t distance=%.1fm\n", dec.Location.Verified, dec.Location.DistanceM)
	}
	if dec.Face != nil {
		fmt.Printf("  Face: verified=%t confidence=%.1f\n", dec.Face.Verified, dec.Face.Confidence)
	}
	if dec.NotEnrolled {
		fmt.Println("  Note: face verification required but employee is not enrolled")
	}
	if dec.ConfigMissing {
		fmt.Println("  Note: no geofence config resolves, location check skipped")
	}
	if dec.Record != nil {
		fmt.Printf("  Punch ID: %s\n", dec.Record.ID)
	}
}

func runPunch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Directory.DSN == "" {
		return errors.New("DIRECTORY_DATABASE_URL environment variable is required")
	}

	employeeID := args[0]
	punchType := database.PunchType(mustGetString(cmd, "type"))
	if !database.ValidPunchType(punchType) {
		return fmt.Errorf("invalid punch type %q", punchType)
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	dir, err := directory.NewPool(cfg.Directory.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to HR directory: %w", err)
	}
	defer dir.Close()

	ctx := context.Background()

	emp, err := dir.Employee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("directory lookup failed: %w", err)
	}
	if emp == nil {
		return fmt.Errorf("employee %s not found in HR directory", employeeID)
	}
	if !emp.Active {
		return fmt.Errorf("employee %s is not active", employeeID)
	}
	company, err := dir.Company(ctx, emp.CompanyID)
	if err != nil {
		return fmt.Errorf("directory lookup failed: %w", err)
	}
	if company == nil {
		return fmt.Errorf("company %s not found in HR directory", emp.CompanyID)
	}

	req := punch.Request{
		EmployeeID:          employeeID,
		CompanyID:           emp.CompanyID,
		Type:                punchType,
		Device:              mustGetString(cmd, "device"),
		CompanyRequiresFace: company.RequireFace,
	}

	if mustGetBool(cmd, "no-location") {
		req.LocationFailure = punch.ReasonGeolocationUnavailable
	} else {
		req.Location = &punch.Location{
			Lat:        mustGetFloat64(cmd, "lat"),
			Lng:        mustGetFloat64(cmd, "lng"),
			CapturedAt: time.Now(),
		}
	}

	if photo := mustGetString(cmd, "photo"); photo != "" {
		if cfg.Extractor.URL == "" {
			return errors.New("EXTRACTOR_URL environment variable is required with --photo")
		}
		data, err := os.ReadFile(photo)
		if err != nil {
			return fmt.Errorf("failed to read photo: %w", err)
		}
		client := descriptor.NewClient(cfg.Extractor.URL, cfg.Extractor.Model)
		d, err := client.Extract(ctx, data)
		if err != nil {
			return fmt.Errorf("no usable face in %s: %w", photo, err)
		}
		req.Descriptor = d.Vector
	}

	var log database.AttendanceLog = postgres.NewAttendanceRepository(pool)
	if mustGetBool(cmd, "dry-run") {
		fmt.Println("Dry run: decision will not be persisted")
		log = mock.NewMockAttendanceLog()
	}

	th := cfg.Thresholds
	orchestrator := punch.NewOrchestrator(
		postgres.NewGeofenceRepository(pool),
		postgres.NewEnrollmentRepository(pool),
		log,
		match.NewMatcher(th.Face.MatchThreshold, th.Face.MinConfidence),
		th.LocationMaxAge(),
	)

	dec, err := orchestrator.AttemptPunch(ctx, req)
	if err != nil {
		return fmt.Errorf("punch evaluation failed: %w", err)
	}
	formatDecision(dec)
	return nil
}
