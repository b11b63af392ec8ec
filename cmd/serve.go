package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/database/postgres"
	"github.com/stafftrack/attendance/internal/descriptor"
	"github.com/stafftrack/attendance/internal/directory"
	"github.com/stafftrack/attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the attendance verification API server.
The server exposes capture sessions, enrollment management, punch
authorization, kiosk identification, and geofence configuration
endpoints for the HR frontends and kiosk devices.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// initIdentifyIndex prepares the HNSW index used by kiosk identification.
// A persisted index is loaded when indexPath points at one and reconciled
// against the store; otherwise the index is built from the primary
// descriptors in PostgreSQL.
func initIdentifyIndex(ctx context.Context, repo *postgres.EnrollmentRepository, indexPath string) (*database.IdentifyIndex, error) {
	index := database.NewIdentifyIndex()

	primaries, err := repo.AllPrimary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary descriptors: %w", err)
	}

	loaded := false
	if indexPath != "" {
		fmt.Printf("Loading identify index from %s...\n", indexPath)
		loaded, err = index.Load(indexPath)
		if err != nil {
			fmt.Printf("Warning: failed to load identify index: %v\n", err)
			loaded = false
		}
	}

	if loaded {
		// The employee mapping is not persisted with the graph; Rebuild also
		// inserts descriptors enrolled since the last save.
		index.Rebuild(primaries)
	} else {
		fmt.Printf("Building identify index from enrolled descriptors...\n")
		if err := index.Build(primaries); err != nil {
			return nil, fmt.Errorf("failed to build identify index: %w", err)
		}
	}

	fmt.Printf("Identify index ready with %d employees\n", index.Count())
	return index, nil
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("API_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("API_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Directory.DSN == "" {
		return errors.New("DIRECTORY_DATABASE_URL environment variable is required")
	}
	if cfg.Extractor.URL == "" {
		return errors.New("EXTRACTOR_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	enrollRepo := postgres.NewEnrollmentRepository(pool)
	geofenceRepo := postgres.NewGeofenceRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)

	fmt.Printf("Connecting to HR directory...\n")
	dir, err := directory.NewPool(cfg.Directory.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to HR directory: %w", err)
	}
	defer dir.Close()

	extractor := descriptor.NewClient(cfg.Extractor.URL, cfg.Extractor.Model)
	if extractor.Model() != "" {
		fmt.Printf("Descriptor extractor: %s (model %s)\n", cfg.Extractor.URL, extractor.Model())
	} else {
		fmt.Printf("Descriptor extractor: %s\n", cfg.Extractor.URL)
	}

	ctx := context.Background()
	index, err := initIdentifyIndex(ctx, enrollRepo, cfg.Database.IdentifyIndexPath)
	if err != nil {
		return err
	}

	port, host := resolveServeHostPort(cmd)

	server := web.NewServer(cfg, port, host, web.Deps{
		Enrollments: enrollRepo,
		Geofences:   geofenceRepo,
		Attendance:  attendanceRepo,
		Directory:   dir,
		Extractor:   extractor,
		Identify:    index,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		if path := cfg.Database.IdentifyIndexPath; path != "" {
			if err := index.Save(path); err != nil {
				fmt.Printf("Warning: failed to save identify index: %v\n", err)
			} else {
				fmt.Println("Identify index saved to disk")
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
