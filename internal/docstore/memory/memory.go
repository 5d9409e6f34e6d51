package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"workday/internal/core"
	"workday/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

// Store keeps every document in process memory. Writes are visible to
// watchers through a docstore.Hub.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]core.StoredProfile
	days     map[string]core.WorkSessionsMap
	hub      *docstore.Hub
}

func New() *Store {
	return &Store{
		profiles: make(map[string]core.StoredProfile),
		days:     make(map[string]core.WorkSessionsMap),
		hub:      docstore.NewHub(),
	}
}

// NewFromFile seeds the store with a backup file. The file must carry the
// uid it belongs to. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var data core.ExportedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if data.UID == "" {
		return nil, fmt.Errorf("seed file %s has no uid", path)
	}
	err = s.Commit(context.Background(), data.UID, docstore.Batch{
		Profile: data.ProfilePatch(),
		Days:    data.WorkSessions,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) GetProfile(_ context.Context, uid string) (core.StoredProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.profiles[uid]
	if !ok {
		return core.StoredProfile{}, docstore.ErrNotFound
	}
	return sp, nil
}

func (s *Store) SetProfile(_ context.Context, p core.UserProfile) error {
	s.mu.Lock()
	s.profiles[p.UID] = core.Complete(p)
	s.mu.Unlock()
	s.hub.NotifyProfile(p.UID)
	return nil
}

func (s *Store) MergeProfile(_ context.Context, uid string, patch core.ProfilePatch) error {
	s.mu.Lock()
	s.mergeProfileLocked(uid, patch)
	s.mu.Unlock()
	s.hub.NotifyProfile(uid)
	return nil
}

func (s *Store) mergeProfileLocked(uid string, patch core.ProfilePatch) {
	sp := s.profiles[uid]
	sp.Merge(patch)
	s.profiles[uid] = sp
}

func (s *Store) WatchProfile(ctx context.Context, uid string, fn docstore.ProfileHandler) (docstore.Unsubscribe, error) {
	return s.hub.WatchProfile(ctx, uid, func(ctx context.Context) (core.StoredProfile, error) {
		return s.GetProfile(ctx, uid)
	}, fn)
}

func (s *Store) ListProfiles(_ context.Context) ([]core.StoredProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.StoredProfile, 0, len(s.profiles))
	for _, sp := range s.profiles {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *Store) GetWorkDays(_ context.Context, uid, from, to string) (core.WorkSessionsMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(core.WorkSessionsMap)
	for key, day := range s.days[uid] {
		if docstore.InRange(key, from, to) {
			out[key] = day.Clone()
		}
	}
	return out, nil
}

func (s *Store) SetWorkDay(_ context.Context, uid, key string, day core.WorkDay) error {
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	s.setDayLocked(uid, key, day)
	s.mu.Unlock()
	s.hub.NotifyDays(uid, key)
	return nil
}

func (s *Store) setDayLocked(uid, key string, day core.WorkDay) {
	if s.days[uid] == nil {
		s.days[uid] = make(core.WorkSessionsMap)
	}
	s.days[uid][key] = day.Clone()
}

func (s *Store) MergeWorkDay(_ context.Context, uid, key string, patch core.WorkDayPatch) error {
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	day := s.days[uid][key]
	patch.Apply(&day)
	s.setDayLocked(uid, key, day)
	s.mu.Unlock()
	s.hub.NotifyDays(uid, key)
	return nil
}

func (s *Store) WatchWorkDays(ctx context.Context, uid, from, to string, fn docstore.SessionsHandler) (docstore.Unsubscribe, error) {
	return s.hub.WatchRange(ctx, uid, from, to, func(ctx context.Context) (core.WorkSessionsMap, error) {
		return s.GetWorkDays(ctx, uid, from, to)
	}, fn)
}

// Commit validates the whole batch, then applies it under one lock so no
// reader observes a partial batch.
func (s *Store) Commit(_ context.Context, uid string, b docstore.Batch) error {
	if err := docstore.ValidateBatch(b); err != nil {
		return err
	}

	s.mu.Lock()
	if !b.Profile.IsEmpty() {
		s.mergeProfileLocked(uid, b.Profile)
	}
	keys := make([]string, 0, len(b.Days))
	for key, day := range b.Days {
		s.setDayLocked(uid, key, day)
		keys = append(keys, key)
	}
	s.mu.Unlock()

	if !b.Profile.IsEmpty() {
		s.hub.NotifyProfile(uid)
	}
	if len(keys) > 0 {
		s.hub.NotifyDays(uid, keys...)
	}
	return nil
}

// Watchers returns the number of live watches for uid.
func (s *Store) Watchers(uid string) int {
	return s.hub.Watchers(uid)
}

func (s *Store) Close() error {
	s.hub.Close()
	return nil
}
