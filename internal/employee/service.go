package employee

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
)

// Invalidator drops cached employee listings for an owner.
type Invalidator interface {
	InvalidateOwner(ctx context.Context, ownerID int64) error
}

// Service creates employees through a store and invalidates the owner's
// cached listing after each creation.
type Service struct {
	store       core.EmployeeCreator
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService wraps store. invalidator may be nil.
func NewService(store core.EmployeeCreator, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, invalidator: invalidator, logger: logger}
}

// Create stores rec. A failed invalidation is logged and does not fail the
// creation.
func (s *Service) Create(ctx context.Context, ownerID int64, rec core.NormalizedRecord) (int64, error) {
	id, err := s.store.Create(ctx, ownerID, rec)
	if err != nil {
		return 0, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateOwner(ctx, ownerID); err != nil {
			s.logger.Warn("failed to invalidate employee list cache",
				"owner_user_id", ownerID,
				"employee_id", id,
				"error", err,
			)
		}
	}
	return id, nil
}
