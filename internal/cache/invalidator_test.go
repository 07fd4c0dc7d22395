package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	keys []string
	err  error
}

func (f *fakeDeleter) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.keys = append(f.keys, keys...)
	cmd := redis.NewIntCmd(ctx, "del")
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(int64(len(keys)))
	}
	return cmd
}

func TestEmployeeListKey(t *testing.T) {
	assert.Equal(t, "user:42:employees", EmployeeListKey(42))
}

func TestInvalidateOwner(t *testing.T) {
	d := &fakeDeleter{}
	require.NoError(t, NewListInvalidator(d).InvalidateOwner(context.Background(), 7))
	assert.Equal(t, []string{"user:7:employees"}, d.keys)
}

func TestInvalidateOwner_Error(t *testing.T) {
	d := &fakeDeleter{err: errors.New("connection refused")}
	err := NewListInvalidator(d).InvalidateOwner(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user:7:employees")
}

func TestNew_EmptyURL(t *testing.T) {
	c, err := New(context.Background(), Options{})
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), Options{URL: "http://not-redis"})
	assert.Error(t, err)
}
