//go:build integration

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestListInvalidator_Redis(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	url, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := New(ctx, Options{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Health(ctx))

	require.NoError(t, client.Set(ctx, EmployeeListKey(1), "[]", 0).Err())
	require.NoError(t, client.Set(ctx, EmployeeListKey(2), "[]", 0).Err())

	inv := NewListInvalidator(client)
	require.NoError(t, inv.InvalidateOwner(ctx, 1))
	require.NoError(t, inv.InvalidateOwner(ctx, 3), "missing key")

	n, err := client.Exists(ctx, EmployeeListKey(1), EmployeeListKey(2)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
