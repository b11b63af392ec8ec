package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/stafftrack/attendance/internal/database"
)

// EnrollmentRepository provides PostgreSQL-backed descriptor storage.
// Descriptors are stored as pgvector columns, one row per employee/angle.
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// GetAll retrieves every descriptor stored for the employee, all angles.
func (r *EnrollmentRepository) GetAll(ctx context.Context, employeeID string) ([]database.StoredDescriptor, error) {
	query := `
		SELECT id, employee_id, angle, descriptor, is_primary, model, dim, created_at
		FROM enrollments
		WHERE employee_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var out []database.StoredDescriptor
	for rows.Next() {
		var d database.StoredDescriptor
		var vec pgvector.Vector
		err := rows.Scan(&d.ID, &d.EmployeeID, &d.Angle, &vec, &d.Primary, &d.Model, &d.Dim, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		d.Vector = vec.Slice()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return out, nil
}

// Save stores a descriptor, replacing any existing one for the same employee
// and angle. When d.Primary is set, the primary flag is cleared on the
// employee's other descriptors in the same transaction so at most one remains.
func (r *EnrollmentRepository) Save(ctx context.Context, d database.StoredDescriptor) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if d.Primary {
		_, err = tx.ExecContext(ctx,
			"UPDATE enrollments SET is_primary = FALSE WHERE employee_id = $1 AND angle <> $2",
			d.EmployeeID, d.Angle,
		)
		if err != nil {
			return fmt.Errorf("clear primary flags: %w", err)
		}
	}

	query := `
		INSERT INTO enrollments (employee_id, angle, descriptor, is_primary, model, dim, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (employee_id, angle) DO UPDATE SET
			descriptor = EXCLUDED.descriptor,
			is_primary = EXCLUDED.is_primary,
			model = EXCLUDED.model,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`
	_, err = tx.ExecContext(ctx, query,
		d.EmployeeID, d.Angle, pgvector.NewVector(d.Vector), d.Primary, d.Model, len(d.Vector),
	)
	if err != nil {
		return fmt.Errorf("save enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// DeleteAll removes an employee's enrollment entirely.
func (r *EnrollmentRepository) DeleteAll(ctx context.Context, employeeID string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM enrollments WHERE employee_id = $1", employeeID)
	if err != nil {
		return fmt.Errorf("delete enrollments: %w", err)
	}
	return nil
}

// AllPrimary streams every employee's primary descriptor, used to build the
// kiosk identify index at startup.
func (r *EnrollmentRepository) AllPrimary(ctx context.Context) ([]database.StoredDescriptor, error) {
	query := `
		SELECT id, employee_id, angle, descriptor, is_primary, model, dim, created_at
		FROM enrollments
		WHERE is_primary = TRUE
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query primary enrollments: %w", err)
	}
	defer rows.Close()

	var out []database.StoredDescriptor
	for rows.Next() {
		var d database.StoredDescriptor
		var vec pgvector.Vector
		err := rows.Scan(&d.ID, &d.EmployeeID, &d.Angle, &vec, &d.Primary, &d.Model, &d.Dim, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan primary enrollment: %w", err)
		}
		d.Vector = vec.Slice()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate primary enrollments: %w", err)
	}
	return out, nil
}
