package catalog

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"dsamentor/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	records []model.QuestionRecord
	err     error
	calls   int
}

func (f *fakeSource) FetchAll(ctx context.Context) ([]model.QuestionRecord, error) {
	f.calls++
	return f.records, f.err
}

func discard() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testRecords() []model.QuestionRecord {
	return []model.QuestionRecord{
		{Title: "Two Sum", Difficulty: "Easy", Topics: "Array", Companies: "Google"},
		{Title: "LRU Cache", Difficulty: "Medium", Topics: "Linked List, Hash", Companies: "Amazon"},
	}
}

func TestCacheServesSnapshotWithinTTL(t *testing.T) {
	src := &fakeSource{records: testRecords()}
	c := NewCache(src, time.Hour, discard())

	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	first := c.GetAll(ctx)
	require.Len(t, first, 2)
	assert.Equal(t, 1, src.calls)

	now = now.Add(30 * time.Minute)
	second := c.GetAll(ctx)
	assert.Equal(t, 1, src.calls, "within TTL no refetch")
	assert.Equal(t, first, second)

	now = now.Add(31 * time.Minute)
	c.GetAll(ctx)
	assert.Equal(t, 2, src.calls, "expired snapshot refetched")
}

func TestCacheFailureYieldsEmptyAndRetries(t *testing.T) {
	src := &fakeSource{err: errors.New("transport down")}
	c := NewCache(src, time.Hour, discard())
	ctx := context.Background()

	assert.Empty(t, c.GetAll(ctx))
	assert.Equal(t, 1, src.calls)

	// An empty snapshot is not held for the TTL; the next read tries again.
	src.err = nil
	src.records = testRecords()
	assert.Len(t, c.GetAll(ctx), 2)
	assert.Equal(t, 2, src.calls)
}

func TestCacheRedisWarmStart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	src := &fakeSource{records: testRecords()}
	c := NewCache(src, time.Hour, discard())
	c.UseRedis(client)
	require.Len(t, c.GetAll(ctx), 2)
	require.Equal(t, 1, src.calls)

	// A fresh cache (restarted process) reads the snapshot from Redis
	// without touching the source.
	src2 := &fakeSource{err: errors.New("should not be called")}
	c2 := NewCache(src2, time.Hour, discard())
	c2.UseRedis(client)
	assert.Len(t, c2.GetAll(ctx), 2)
	assert.Zero(t, src2.calls)

	// Once the Redis entry expires, the source is consulted again.
	mr.FastForward(2 * time.Hour)
	src3 := &fakeSource{records: testRecords()}
	c3 := NewCache(src3, time.Hour, discard())
	c3.UseRedis(client)
	assert.Len(t, c3.GetAll(ctx), 2)
	assert.Equal(t, 1, src3.calls)
}

func TestHeaderIndex(t *testing.T) {
	cols := headerIndex([]interface{}{"Topics", "Question (375)", "Companies", "Difficulty"})
	assert.Equal(t, 1, cols["question"])
	assert.Equal(t, 3, cols["difficulty"])
	assert.Equal(t, 0, cols["topics"])
	assert.Equal(t, 2, cols["companies"])
}
