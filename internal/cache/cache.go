package cache

import (
	"context"
	"time"

	"workday/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically drops expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
	logger *log.Logger
}

func NewJanitor(logger *log.Logger) *Janitor {
	return &Janitor{logger: logger.WithComponent(log.ComponentCache)}
}

// Register adds a cache to the janitor
func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Run cleans every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range j.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				j.logger.Debug("Expired cache entries removed", log.FieldCount, total)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
