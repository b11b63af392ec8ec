package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/database/postgres"
	"github.com/stafftrack/attendance/internal/geofence"
)

var geofenceCmd = &cobra.Command{
	Use:   "geofence",
	Short: "Manage geofence configurations",
	Long: `Inspect and update geofence configurations from the command line.
Punch location checks resolve the employee override first, then the
company default.`,
}

var geofenceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a geofence configuration",
	RunE:  runGeofenceShow,
}

var geofenceSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a geofence configuration",
	RunE:  runGeofenceSet,
}

func init() {
	rootCmd.AddCommand(geofenceCmd)
	geofenceCmd.AddCommand(geofenceShowCmd)
	geofenceCmd.AddCommand(geofenceSetCmd)

	for _, c := range []*cobra.Command{geofenceShowCmd, geofenceSetCmd} {
		c.Flags().String("company", "", "Company ID (company default scope)")
		c.Flags().String("employee", "", "Employee ID (override scope)")
	}

	geofenceSetCmd.Flags().Float64("lat", 0, "Geofence center latitude")
	geofenceSetCmd.Flags().Float64("lng", 0, "Geofence center longitude")
	geofenceSetCmd.Flags().Float64("radius", 100, "Geofence radius in meters")
	geofenceSetCmd.Flags().Bool("active", true, "Whether the geofence is active")
	geofenceSetCmd.Flags().Bool("use-company-default", false, "Employee scope only: defer to the company default")
}

// resolveScope reads the --company/--employee flags into a scope and subject
// ID. Exactly one of the two must be set.
func resolveScope(cmd *cobra.Command) (database.GeofenceScope, string, error) {
	companyID := mustGetString(cmd, "company")
	employeeID := mustGetString(cmd, "employee")

	switch {
	case companyID != "" && employeeID != "":
		return "", "", errors.New("--company and --employee are mutually exclusive")
	case companyID != "":
		return database.ScopeCompany, companyID, nil
	case employeeID != "":
		return database.ScopeEmployee, employeeID, nil
	default:
		return "", "", errors.New("either --company or --employee is required")
	}
}

func geofenceRepo() (*postgres.GeofenceRepository, *postgres.Pool, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return postgres.NewGeofenceRepository(pool), pool, nil
}

func printGeofence(g *database.StoredGeofence) {
	fmt.Printf("Scope:   %s\n", g.Scope)
	if g.Scope == database.ScopeCompany {
		fmt.Printf("Company: %s\n", g.CompanyID)
	} else {
		fmt.Printf("Employee: %s\n", g.EmployeeID)
		fmt.Printf("Use company default: %t\n", g.UseCompanyDefault)
	}
	if g.Lat != nil && g.Lng != nil {
		fmt.Printf("Center:  %.6f, %.6f\n", *g.Lat, *g.Lng)
	} else {
		fmt.Println("Center:  (not set)")
	}
	fmt.Printf("Radius:  %.1fm\n", g.RadiusM)
	fmt.Printf("Active:  %t\n", g.Active)
	fmt.Printf("Updated: %s\n", g.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func runGeofenceShow(cmd *cobra.Command, args []string) error {
	scope, id, err := resolveScope(cmd)
	if err != nil {
		return err
	}

	repo, pool, err := geofenceRepo()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	var g *database.StoredGeofence
	if scope == database.ScopeCompany {
		g, err = repo.CompanyDefault(ctx, id)
	} else {
		g, err = repo.EmployeeOverride(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read geofence: %w", err)
	}
	if g == nil {
		fmt.Printf("No geofence configured for %s %s\n", scope, id)
		return nil
	}
	printGeofence(g)
	return nil
}

func runGeofenceSet(cmd *cobra.Command, args []string) error {
	scope, id, err := resolveScope(cmd)
	if err != nil {
		return err
	}

	radius := mustGetFloat64(cmd, "radius")
	if err := geofence.ValidateRadius(radius); err != nil {
		return err
	}

	useDefault := mustGetBool(cmd, "use-company-default")
	if useDefault && scope != database.ScopeEmployee {
		return errors.New("--use-company-default only applies to --employee")
	}

	g := database.StoredGeofence{
		Scope:             scope,
		RadiusM:           radius,
		Active:            mustGetBool(cmd, "active"),
		UseCompanyDefault: useDefault,
	}
	if scope == database.ScopeCompany {
		g.CompanyID = id
	} else {
		g.EmployeeID = id
	}

	// Coordinates are optional for an override that defers to the company
	// default; every other config needs a center.
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
		lat := mustGetFloat64(cmd, "lat")
		lng := mustGetFloat64(cmd, "lng")
		g.Lat = &lat
		g.Lng = &lng
	} else if !useDefault {
		return errors.New("--lat and --lng are required unless --use-company-default is set")
	}

	repo, pool, err := geofenceRepo()
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repo.Upsert(context.Background(), g); err != nil {
		return fmt.Errorf("failed to save geofence: %w", err)
	}
	fmt.Printf("Geofence saved for %s %s\n", scope, id)
	return nil
}
