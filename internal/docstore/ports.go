// Package docstore defines the per-user document store the work data layer
// reads, writes and watches. Documents live at users/{uid} and
// users/{uid}/work_sessions/{YYYY-MM-DD} in every backend.
package docstore

import (
	"context"
	"errors"

	"workday/internal/core"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrClosed   = errors.New("document store closed")
)

type (
	// ProfileSnapshot is one emission of a profile watch. Exists is false
	// when the document is absent.
	ProfileSnapshot struct {
		Profile core.StoredProfile
		Exists  bool
	}

	// ProfileHandler receives every profile snapshot, or the error that
	// interrupted the watch.
	ProfileHandler func(ProfileSnapshot, error)

	// SessionsHandler receives the full result set of a range watch on every
	// change inside the range.
	SessionsHandler func(core.WorkSessionsMap, error)

	// Unsubscribe stops a watch. It is safe to call more than once.
	Unsubscribe func()

	// Batch is a set of writes committed atomically: an optional profile
	// merge plus a full overwrite per day.
	Batch struct {
		Profile core.ProfilePatch
		Days    core.WorkSessionsMap
	}

	ProfileStore interface {
		GetProfile(ctx context.Context, uid string) (core.StoredProfile, error)
		SetProfile(ctx context.Context, p core.UserProfile) error
		MergeProfile(ctx context.Context, uid string, patch core.ProfilePatch) error
		WatchProfile(ctx context.Context, uid string, fn ProfileHandler) (Unsubscribe, error)
		ListProfiles(ctx context.Context) ([]core.StoredProfile, error)
	}

	// SessionStore addresses work days by ISO date key. Range bounds are
	// inclusive; an empty bound is open.
	SessionStore interface {
		GetWorkDays(ctx context.Context, uid, from, to string) (core.WorkSessionsMap, error)
		SetWorkDay(ctx context.Context, uid, key string, day core.WorkDay) error
		MergeWorkDay(ctx context.Context, uid, key string, patch core.WorkDayPatch) error
		WatchWorkDays(ctx context.Context, uid, from, to string, fn SessionsHandler) (Unsubscribe, error)
	}

	Store interface {
		ProfileStore
		SessionStore
		Commit(ctx context.Context, uid string, b Batch) error
		Close() error
	}
)

// IsEmpty reports whether committing b would write nothing.
func (b Batch) IsEmpty() bool {
	return b.Profile.IsEmpty() && len(b.Days) == 0
}

// InRange reports whether key lies within the inclusive [from, to] range.
// ISO date keys order lexically.
func InRange(key, from, to string) bool {
	if from != "" && key < from {
		return false
	}
	if to != "" && key > to {
		return false
	}
	return true
}
