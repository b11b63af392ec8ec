package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stafftrack/attendance/internal/database"
)

// GeofenceRepository provides PostgreSQL-backed geofence config storage.
type GeofenceRepository struct {
	pool *Pool
}

// NewGeofenceRepository creates a new PostgreSQL geofence repository.
func NewGeofenceRepository(pool *Pool) *GeofenceRepository {
	return &GeofenceRepository{pool: pool}
}

const geofenceColumns = "id, scope, company_id, employee_id, lat, lng, radius_m, active, use_company_default, updated_at"

// CompanyDefault returns the company-wide geofence, or nil if unset.
func (r *GeofenceRepository) CompanyDefault(ctx context.Context, companyID string) (*database.StoredGeofence, error) {
	query := "SELECT " + geofenceColumns + " FROM geofence_configs WHERE scope = $1 AND company_id = $2"
	return r.get(ctx, query, database.ScopeCompany, companyID)
}

// EmployeeOverride returns the employee's geofence override, or nil if unset.
func (r *GeofenceRepository) EmployeeOverride(ctx context.Context, employeeID string) (*database.StoredGeofence, error) {
	query := "SELECT " + geofenceColumns + " FROM geofence_configs WHERE scope = $1 AND employee_id = $2"
	return r.get(ctx, query, database.ScopeEmployee, employeeID)
}

func (r *GeofenceRepository) get(ctx context.Context, query string, args ...any) (*database.StoredGeofence, error) {
	var g database.StoredGeofence
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&g.ID, &g.Scope, &g.CompanyID, &g.EmployeeID,
		&g.Lat, &g.Lng, &g.RadiusM, &g.Active, &g.UseCompanyDefault, &g.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query geofence config: %w", err)
	}
	return &g, nil
}

// Upsert stores a geofence config, last write wins at the record level.
func (r *GeofenceRepository) Upsert(ctx context.Context, g database.StoredGeofence) error {
	query := `
		INSERT INTO geofence_configs (scope, company_id, employee_id, lat, lng, radius_m, active, use_company_default, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (scope, company_id, employee_id) DO UPDATE SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			radius_m = EXCLUDED.radius_m,
			active = EXCLUDED.active,
			use_company_default = EXCLUDED.use_company_default,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		g.Scope, g.CompanyID, g.EmployeeID, g.Lat, g.Lng, g.RadiusM, g.Active, g.UseCompanyDefault,
	)
	if err != nil {
		return fmt.Errorf("upsert geofence config: %w", err)
	}
	return nil
}
