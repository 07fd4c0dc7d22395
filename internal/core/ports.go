package core

import (
	"context"
	"time"
)

// BlobStore reads uploaded import files.
type BlobStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	// List returns the paths directly inside dir. Used for diagnostics only.
	List(ctx context.Context, dir string) ([]string, error)
}

// EmployeeCreator persists a validated record for an owner and returns the
// new employee id. A persistent duplicate email or CPF fails with a
// *ConstraintViolationError.
type EmployeeCreator interface {
	Create(ctx context.Context, ownerID int64, rec NormalizedRecord) (int64, error)
}

// UsageChecker answers whether an identifier is already stored.
type UsageChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	TaxIDExists(ctx context.Context, taxID string) (bool, error)
}

// Notifier delivers plain-text notifications.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// UserFinder resolves the owner of an import. Returns ErrUserNotFound when
// the user does not exist.
type UserFinder interface {
	FindUser(ctx context.Context, id int64) (User, error)
}

// Recorder receives import measurements.
type Recorder interface {
	ObserveRow(status OutcomeStatus)
	ObserveRun(result string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRow(OutcomeStatus) {}
func (nopRecorder) ObserveRun(string, time.Duration) {}
