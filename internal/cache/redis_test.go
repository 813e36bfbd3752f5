package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis_Success(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(s.Addr(), "", 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, 2, c.Options().DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, c.Set(ctx, "k", "v", 0).Err())
	v, err := c.Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestOpenRedis_Password(t *testing.T) {
	s := miniredis.RunT(t)
	s.RequireAuth("secret")

	_, err := OpenRedis(s.Addr(), "wrong", 0)
	assert.Error(t, err)

	c, err := OpenRedis(s.Addr(), "secret", 0)
	require.NoError(t, err)
	_ = c.Close()
}

func TestOpenRedis_Failure(t *testing.T) {
	_, err := OpenRedis("not-a-real-host:6379", "", 0)
	assert.Error(t, err)
}
