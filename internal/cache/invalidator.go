package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deleter is the subset of a Redis client used for invalidation.
type Deleter interface {
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// EmployeeListKey is the cache key of an owner's employee listing.
func EmployeeListKey(ownerID int64) string {
	return fmt.Sprintf("user:%d:employees", ownerID)
}

// ListInvalidator drops cached employee listings.
type ListInvalidator struct {
	rdb Deleter
}

// NewListInvalidator creates an invalidator. rdb is normally a *Client.
func NewListInvalidator(rdb Deleter) *ListInvalidator {
	return &ListInvalidator{rdb: rdb}
}

// InvalidateOwner deletes the owner's listing. A missing key is not an error.
func (l *ListInvalidator) InvalidateOwner(ctx context.Context, ownerID int64) error {
	key := EmployeeListKey(ownerID)
	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
