// Package employee persists employees and resolves import owners.
package employee

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresStore stores employees and users in Postgres.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore wraps a pool or transaction.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables and indexes if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Create inserts rec for ownerID and returns the new employee id.
func (s *PostgresStore) Create(ctx context.Context, ownerID int64, rec core.NormalizedRecord) (int64, error) {
	const query = `
		INSERT INTO employees (owner_user_id, name, email, cpf, city, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := s.db.QueryRow(ctx, query, ownerID, rec.Name, rec.Email, rec.TaxID, rec.City, rec.State).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

// EmailExists reports whether any employee uses email, ignoring case.
func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE lower(email) = lower($1))`, email)
}

// TaxIDExists reports whether any employee uses the CPF.
func (s *PostgresStore) TaxIDExists(ctx context.Context, taxID string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE cpf = $1)`, taxID)
}

func (s *PostgresStore) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := s.db.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	return found, nil
}

// FindUser loads a user by id.
func (s *PostgresStore) FindUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := s.db.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, fmt.Errorf("%w: id %d", core.ErrUserNotFound, id)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, nil
}

// CreateUser inserts a user and returns its id.
func (s *PostgresStore) CreateUser(ctx context.Context, name, email string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`, name, email).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

// CountByOwner returns the number of employees owned by ownerID.
func (s *PostgresStore) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM employees WHERE owner_user_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return n, nil
}

// mapWriteError turns a unique violation into a *core.ConstraintViolationError.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.TrimSpace(pgErr.Code) == uniqueViolation {
		return &core.ConstraintViolationError{Field: constraintField(pgErr.ConstraintName), Err: err}
	}
	return err
}

// constraintField maps a unique index name to the column it guards.
func constraintField(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return core.ColumnEmail
	case strings.Contains(constraint, "cpf"):
		return core.ColumnTaxID
	default:
		return ""
	}
}
