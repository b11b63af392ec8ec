// Package directory reads employee and company records from the HR
// application's MariaDB database. The attendance service only consumes this
// data; the HR application owns the schema.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Employee is the subset of the HR employee record the subsystem needs.
type Employee struct {
	ID        string
	CompanyID string
	FullName  string
	Active    bool
}

// Company carries the company-level attendance policy.
type Company struct {
	ID          string
	Name        string
	RequireFace bool
}

// Reader is the directory lookup contract consumed by the web layer.
type Reader interface {
	// Employee returns the employee record, or nil if unknown.
	Employee(ctx context.Context, id string) (*Employee, error)
	// Company returns the company record, or nil if unknown.
	Company(ctx context.Context, id string) (*Company, error)
	// SearchEmployees finds active employees by approximate name match.
	SearchEmployees(ctx context.Context, name string) ([]Employee, error)
}

// Pool manages a MariaDB connection pool over the HR database.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Employee returns the employee record, or nil if unknown.
func (p *Pool) Employee(ctx context.Context, id string) (*Employee, error) {
	query := `SELECT id, company_id, full_name, active FROM employees WHERE id = ?`

	var e Employee
	err := p.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.CompanyID, &e.FullName, &e.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return &e, nil
}

// Company returns the company record, or nil if unknown.
func (p *Pool) Company(ctx context.Context, id string) (*Company, error) {
	query := `SELECT id, name, require_face_verification FROM companies WHERE id = ?`

	var c Company
	err := p.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.RequireFace)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query company: %w", err)
	}
	return &c, nil
}

// SearchEmployees finds active employees whose name matches approximately:
// case-insensitive, diacritics folded, dashes treated as spaces. The database
// pre-filters on the first normalized token, the rest is filtered here.
func (p *Pool) SearchEmployees(ctx context.Context, name string) ([]Employee, error) {
	normalized := FoldName(name)
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return nil, nil
	}

	query := `SELECT id, company_id, full_name, active FROM employees WHERE active = 1 AND full_name LIKE ?`

	rows, err := p.db.QueryContext(ctx, query, "%"+tokens[0]+"%")
	if err != nil {
		return nil, fmt.Errorf("search employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.FullName, &e.Active); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		if strings.Contains(FoldName(e.FullName), normalized) {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}
