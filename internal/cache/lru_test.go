package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"workday/internal/log"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	var evicted []string
	c.OnEvict = func(key string, _ int) { evicted = append(evicted, key) }

	c.Set("2024-1", 1)
	c.Set("2024-2", 2)
	assert.True(t, c.Touch("2024-1"))
	c.Set("2024-3", 3)

	assert.Equal(t, []string{"2024-2"}, evicted)
	assert.Equal(t, []string{"2024-3", "2024-1"}, c.Keys())

	c.Delete("2024-1")
	assert.Len(t, evicted, 1, "Delete must not call OnEvict")
	assert.Equal(t, 1, c.Size())
}

func TestLRUUnbounded(t *testing.T) {
	c := NewLRUCache[int](0, 0)
	for i := 0; i < 100; i++ {
		c.Set(string(rune('a'+i%26))+string(rune('0'+i/26)), i)
	}
	assert.Equal(t, 100, c.Size())
	assert.Zero(t, c.CleanExpired())
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Hour)
	c.now = func() time.Time { return now }

	var evicted []string
	c.OnEvict = func(key, _ string) { evicted = append(evicted, key) }

	c.Set("a", "x")
	c.Set("b", "y")
	now = now.Add(30 * time.Minute)
	c.Set("b", "z")

	now = now.Add(45 * time.Minute)
	_, ok := c.Get("a")
	assert.False(t, ok)
	got, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "z", got)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, []string{"a", "b"}, evicted)
}

func TestJanitorStopsWithContext(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)

	j := NewJanitor(log.Discard())
	j.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
