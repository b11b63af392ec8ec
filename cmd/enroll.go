package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/database"
	"github.com/stafftrack/attendance/internal/database/postgres"
	"github.com/stafftrack/attendance/internal/descriptor"
	"github.com/stafftrack/attendance/internal/directory"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [photos-dir]",
	Short: "Bulk-import face enrollments from photo files",
	Long: `Bulk-import face enrollments from a directory of photos.
Each subdirectory of photos-dir is an employee ID and contains image
files named by capture angle (front.jpg, left.jpg, right.jpg, up.jpg,
down.jpg). The front descriptor becomes the primary. Employees missing
from the HR directory are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("concurrency", 4, "Number of employees processed in parallel")
	enrollCmd.Flags().Bool("replace", false, "Delete existing enrollments before importing")
}

// employeeImport is one employee's set of angle-named photo files.
type employeeImport struct {
	employeeID string
	photos     map[database.Angle]string
}

// collectImports walks the photos directory and pairs each employee
// subdirectory with its angle-named image files.
func collectImports(root string) ([]employeeImport, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read photos directory: %w", err)
	}

	var imports []employeeImport
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		empDir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(empDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", empDir, err)
		}

		photos := make(map[database.Angle]string)
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			name := f.Name()
			angle := database.Angle(strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))))
			if !database.ValidAngle(angle) {
				continue
			}
			photos[angle] = filepath.Join(empDir, name)
		}
		if len(photos) == 0 {
			continue
		}
		if _, ok := photos[database.AngleFront]; !ok {
			fmt.Printf("Skipping %s: no front photo\n", entry.Name())
			continue
		}
		imports = append(imports, employeeImport{employeeID: entry.Name(), photos: photos})
	}
	return imports, nil
}

// enrollEmployee extracts a descriptor from every photo and saves the set.
// The whole employee fails when any photo fails, so partial enrollments
// never reach the store.
func enrollEmployee(ctx context.Context, client *descriptor.Client, repo *postgres.EnrollmentRepository, imp employeeImport, replace bool) error {
	descriptors := make(map[database.Angle]*descriptor.Descriptor, len(imp.photos))
	for angle, path := range imp.photos {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		d, err := client.Extract(ctx, data)
		if err != nil {
			return fmt.Errorf("no usable face in %s: %w", path, err)
		}
		descriptors[angle] = d
	}

	if replace {
		if err := repo.DeleteAll(ctx, imp.employeeID); err != nil {
			return fmt.Errorf("failed to clear existing enrollment: %w", err)
		}
	}

	for angle, d := range descriptors {
		err := repo.Save(ctx, database.StoredDescriptor{
			EmployeeID: imp.employeeID,
			Angle:      angle,
			Vector:     d.Vector,
			Primary:    angle == database.AngleFront,
			Model:      d.Model,
			Dim:        d.Dim,
		})
		if err != nil {
			return fmt.Errorf("failed to save %s descriptor: %w", angle, err)
		}
	}
	return nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
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

	concurrency := mustGetInt(cmd, "concurrency")
	replace := mustGetBool(cmd, "replace")

	imports, err := collectImports(args[0])
	if err != nil {
		return err
	}
	if len(imports) == 0 {
		fmt.Println("No employee photo directories found")
		return nil
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()
	repo := postgres.NewEnrollmentRepository(pool)

	dir, err := directory.NewPool(cfg.Directory.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to HR directory: %w", err)
	}
	defer dir.Close()

	client := descriptor.NewClient(cfg.Extractor.URL, cfg.Extractor.Model)
	ctx := context.Background()
	if err := client.Ready(ctx); err != nil {
		return fmt.Errorf("descriptor extractor is not ready: %w", err)
	}

	fmt.Printf("Employees to enroll: %d\n\n", len(imports))

	bar := progressbar.NewOptions(len(imports),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("employees"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var successCount, skipCount, errorCount int
	var mu sync.Mutex
	var failures []string

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, imp := range imports {
		wg.Add(1)
		go func(imp employeeImport) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			emp, err := dir.Employee(ctx, imp.employeeID)
			if err != nil {
				mu.Lock()
				errorCount++
				failures = append(failures, fmt.Sprintf("%s: directory lookup failed: %v", imp.employeeID, err))
				mu.Unlock()
				return
			}
			if emp == nil || !emp.Active {
				mu.Lock()
				skipCount++
				mu.Unlock()
				return
			}

			if err := enrollEmployee(ctx, client, repo, imp, replace); err != nil {
				mu.Lock()
				errorCount++
				failures = append(failures, fmt.Sprintf("%s: %v", imp.employeeID, err))
				mu.Unlock()
				return
			}

			mu.Lock()
			successCount++
			mu.Unlock()
		}(imp)
	}
	wg.Wait()

	fmt.Printf("\n\nEnrolled: %d, skipped (not active in directory): %d, failed: %d\n",
		successCount, skipCount, errorCount)
	for _, f := range failures {
		fmt.Printf("  %s\n", f)
	}
	if errorCount > 0 {
		return fmt.Errorf("%d employees failed to enroll", errorCount)
	}
	return nil
}
