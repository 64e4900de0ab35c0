package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCacheHelper_SetGet(t *testing.T) {
	mr, client := newTestClient(t)
	helper := NewCacheHelper(client, "aiquiz:")
	ctx := context.Background()

	require.NoError(t, helper.Set(ctx, "quiz:1", payload{Name: "go", Count: 3}, time.Minute))
	assert.True(t, mr.Exists("aiquiz:quiz:1"))

	var got payload
	require.NoError(t, helper.Get(ctx, "quiz:1", &got))
	assert.Equal(t, payload{Name: "go", Count: 3}, got)

	mr.FastForward(2 * time.Minute)
	err := helper.Get(ctx, "quiz:1", &got)
	assert.True(t, errors.Is(err, ErrCacheNotFound))
}

func TestCacheHelper_NilClientDegrades(t *testing.T) {
	helper := NewCacheHelper(nil, "aiquiz:")
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{name: "get", run: func() error { var p payload; return helper.Get(ctx, "k", &p) }, want: ErrCacheNotAvailable},
		{name: "set", run: func() error { return helper.Set(ctx, "k", payload{}, time.Minute) }, want: nil},
		{name: "delete", run: func() error { return helper.Delete(ctx, "k") }, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, "course:")
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return &payload{Name: "Databases", Count: calls}, nil
	}

	var first, second payload
	require.NoError(t, helper.CacheOrExecute(ctx, "id:7", &first, time.Minute, fetch))
	require.NoError(t, helper.CacheOrExecute(ctx, "id:7", &second, time.Minute, fetch))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestCacheHelper_CacheOrExecuteFetchError(t *testing.T) {
	mr, client := newTestClient(t)
	helper := NewCacheHelper(client, "course:")
	boom := errors.New("boom")

	var dest payload
	err := helper.CacheOrExecute(context.Background(), "id:1", &dest, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	assert.False(t, mr.Exists("course:id:1"), "failures are not cached")
}

func TestCacheHelper_DeleteAndCorruptEntries(t *testing.T) {
	mr, client := newTestClient(t)
	cm := NewCacheManager(client)
	ctx := context.Background()

	require.NoError(t, cm.AIQuiz.Set(ctx, "quiz:1:beginner", []int{1}, time.Hour))
	require.NoError(t, cm.AIQuiz.Set(ctx, "quiz:2:beginner", []int{1}, time.Hour))
	require.NoError(t, mr.Set("aiquiz:quiz:3:beginner", "{not json"))

	var got []int
	assert.ErrorIs(t, cm.AIQuiz.Get(ctx, "quiz:3:beginner", &got), ErrCacheCorrupt)

	require.NoError(t, cm.AIQuiz.Delete(ctx, "quiz:1:beginner", "quiz:3:beginner"))
	assert.False(t, mr.Exists("aiquiz:quiz:1:beginner"))
	assert.False(t, mr.Exists("aiquiz:quiz:3:beginner"))
	assert.True(t, mr.Exists("aiquiz:quiz:2:beginner"))

	SafeDelete(ctx, cm.AIQuiz)
	assert.True(t, mr.Exists("aiquiz:quiz:2:beginner"), "no keys is a no-op")
	assert.NoError(t, cm.HealthCheck(ctx))
	assert.ErrorIs(t, NewCacheManager(nil).HealthCheck(ctx), ErrCacheNotAvailable)
}
