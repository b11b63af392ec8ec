package postgres

import (
	"context"
	"fmt"

	"github.com/stafftrack/attendance/internal/database"
)

// AttendanceRepository provides the PostgreSQL-backed append-only punch log.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Append persists an authorized punch. Records are immutable once written.
func (r *AttendanceRepository) Append(ctx context.Context, rec database.PunchRecord) error {
	query := `
		INSERT INTO attendance_log
			(id, employee_id, punch_type, punched_at, lat, lng, distance_m,
			 location_verified, face_confidence, face_verified, method, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.EmployeeID, rec.Type, rec.Timestamp,
		rec.Lat, rec.Lng, rec.DistanceM, rec.LocationVerified,
		rec.FaceConfidence, rec.FaceVerified, rec.Method, rec.Device,
	)
	if err != nil {
		return fmt.Errorf("append punch: %w", err)
	}
	return nil
}

// Recent returns the employee's latest punches, newest first.
func (r *AttendanceRepository) Recent(ctx context.Context, employeeID string, limit int) ([]database.PunchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, employee_id, punch_type, punched_at, lat, lng, distance_m,
		       location_verified, face_confidence, face_verified, method, device
		FROM attendance_log
		WHERE employee_id = $1
		ORDER BY punched_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query punches: %w", err)
	}
	defer rows.Close()

	var out []database.PunchRecord
	for rows.Next() {
		var rec database.PunchRecord
		err := rows.Scan(
			&rec.ID, &rec.EmployeeID, &rec.Type, &rec.Timestamp,
			&rec.Lat, &rec.Lng, &rec.DistanceM, &rec.LocationVerified,
			&rec.FaceConfidence, &rec.FaceVerified, &rec.Method, &rec.Device,
		)
		if err != nil {
			return nil, fmt.Errorf("scan punch: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate punches: %w", err)
	}
	return out, nil
}
