package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/campus-admin-backend/internal/config"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stretchr/testify/require"
)

const testTTL = 5 * time.Minute

func newTestCache(t *testing.T) (*DocumentCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewDocumentCache(rdb, testTTL), mr
}

func storedDoc(body string, updatedAt time.Time) *model.StoredDocument {
	return &model.StoredDocument{
		Kind:      model.KindTimetable,
		Body:      []byte(body),
		CreatedAt: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt: updatedAt,
	}
}

func TestDocumentKey(t *testing.T) {
	require.Equal(t, "document:timetable", config.CacheKey.DocumentKey(string(model.KindTimetable)))
}

func TestDocumentCache_MissIsNil(t *testing.T) {
	c, _ := newTestCache(t)

	doc, err := c.Get(context.Background(), model.KindStudents)
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestDocumentCache_SetGetRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	want := storedDoc(`{"firstYear":{"monday":[]}}`, time.Date(2026, 3, 4, 10, 30, 0, 123456000, time.UTC))

	require.NoError(t, c.Set(ctx, want))

	got, err := c.Get(ctx, model.KindTimetable)
	require.NoError(t, err)
	require.Equal(t, want.Kind, got.Kind)
	require.JSONEq(t, string(want.Body), string(got.Body))
	require.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt))

	key := config.CacheKey.DocumentKey(string(model.KindTimetable))
	require.Equal(t, testTTL, mr.TTL(key))

	mr.FastForward(testTTL + time.Second)
	got, err = c.Get(ctx, model.KindTimetable)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDocumentCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, storedDoc(`{}`, time.Now())))
	require.True(t, mr.Exists(config.CacheKey.DocumentKey(string(model.KindTimetable))))

	require.NoError(t, c.Invalidate(ctx, model.KindTimetable))
	require.False(t, mr.Exists(config.CacheKey.DocumentKey(string(model.KindTimetable))))

	// Invalidating a missing key is not an error.
	require.NoError(t, c.Invalidate(ctx, model.KindTimetable))
}

func TestDocumentCache_SetKeepsNewerEntry(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	older := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Millisecond)

	require.NoError(t, c.Set(ctx, storedDoc(`{"v":2}`, newer)))
	require.NoError(t, c.Set(ctx, storedDoc(`{"v":1}`, older)))

	got, err := c.Get(ctx, model.KindTimetable)
	require.NoError(t, err)
	require.JSONEq(t, `{"v":2}`, string(got.Body))

	newest := newer.Add(time.Millisecond)
	require.NoError(t, c.Set(ctx, storedDoc(`{"v":3}`, newest)))
	got, err = c.Get(ctx, model.KindTimetable)
	require.NoError(t, err)
	require.JSONEq(t, `{"v":3}`, string(got.Body))
}

func TestDocumentCache_UnreachableRedisReturnsError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := NewDocumentCache(rdb, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	doc, err := c.Get(ctx, model.KindStudents)
	require.Error(t, err)
	require.Nil(t, doc)

	require.Error(t, c.Set(ctx, &model.StoredDocument{Kind: model.KindStudents, Body: []byte(`{}`)}))
	require.Error(t, c.Invalidate(ctx, model.KindStudents))
}
