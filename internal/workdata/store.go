// Package workdata keeps a live in-memory copy of one user's profile and
// work days. The profile is watched for the whole session; work days are
// watched month by month as months come into focus.
package workdata

import (
	"context"
	"sync"
	"time"

	"workday/internal/cache"
	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/docstore"
	"workday/internal/earnings"
	"workday/internal/log"
)

// Options tune a Store.
type Options struct {
	// MaxMonths bounds how many months stay subscribed. Zero keeps every
	// visited month for the whole session.
	MaxMonths int
	// Now is the clock used for export timestamps.
	Now func() time.Time
}

type month struct {
	key         string
	first, last string
	state       MonthState
	started     bool
	err         error
	loaded      chan struct{}
	unsub       docstore.Unsubscribe
}

// Store is the work data of the signed-in user. All methods are safe for
// concurrent use; reads return copies.
type Store struct {
	docs   docstore.Store
	logger *log.Logger
	opts   Options

	mu       sync.RWMutex
	gen      uint64
	user     *core.User
	state    State
	profile  *core.UserProfile
	sessions core.WorkSessionsMap
	months   map[string]*month
	lru      *cache.LRUCache[*month]
	err      error
	changed  chan struct{}
	cancel   context.CancelFunc
	unsub    docstore.Unsubscribe
	dropped  []docstore.Unsubscribe
}

func New(docs docstore.Store, logger *log.Logger, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Store{
		docs:     docs,
		logger:   logger.WithComponent(log.ComponentWorkData),
		opts:     opts,
		sessions: make(core.WorkSessionsMap),
		months:   make(map[string]*month),
		changed:  make(chan struct{}),
	}
	s.lru = cache.NewLRUCache[*month](opts.MaxMonths, 0)
	s.lru.OnEvict = func(_ string, m *month) { s.evictLocked(m) }
	return s
}

// SignIn starts the session for user. Signing in the current user again is
// a no-op; signing in someone else ends the previous session first.
func (s *Store) SignIn(ctx context.Context, user core.User) {
	s.mu.Lock()
	if s.user != nil && s.user.ID == user.ID {
		s.mu.Unlock()
		return
	}
	drop := s.resetLocked()
	s.gen++
	gen := s.gen
	u := user
	s.user = &u
	s.state = ProfileLoading
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.notifyLocked()
	s.mu.Unlock()
	runAll(drop)

	s.logger.InfoContext(ctx, "Session started", log.FieldUID, user.ID, log.FieldOperation, log.OpSignIn)

	unsub, err := s.docs.WatchProfile(subCtx, user.ID, s.onProfile(gen))

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		return
	}
	if err != nil {
		s.failLocked(log.OpSignIn, MsgLoadProfile, err)
		s.mu.Unlock()
		return
	}
	s.unsub = unsub
	s.mu.Unlock()
}

// SignOut cancels every subscription and forgets all user data.
func (s *Store) SignOut() {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	uid := s.user.ID
	drop := s.resetLocked()
	s.gen++
	s.notifyLocked()
	s.mu.Unlock()
	runAll(drop)

	s.logger.Info("Session ended", log.FieldUID, uid, log.FieldOperation, log.OpSignOut)
}

// Close ends the session.
func (s *Store) Close() {
	s.SignOut()
}

func (s *Store) resetLocked() []docstore.Unsubscribe {
	var drop []docstore.Unsubscribe
	if s.unsub != nil {
		drop = append(drop, s.unsub)
	}
	for _, m := range s.months {
		if m.unsub != nil {
			drop = append(drop, m.unsub)
		}
	}
	drop = append(drop, s.dropped...)
	if s.cancel != nil {
		s.cancel()
	}
	s.user = nil
	s.state = NoUser
	s.profile = nil
	s.sessions = make(core.WorkSessionsMap)
	s.months = make(map[string]*month)
	s.lru.Purge()
	s.err = nil
	s.cancel = nil
	s.unsub = nil
	s.dropped = nil
	return drop
}

func (s *Store) onProfile(gen uint64) docstore.ProfileHandler {
	return func(snap docstore.ProfileSnapshot, err error) {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.failLocked(log.OpSignIn, MsgLoadProfile, err)
			s.mu.Unlock()
			return
		}

		if snap.Exists {
			p := core.ApplyProfileDefaults(snap.Profile)
			if p.UID == "" {
				p.UID = s.user.ID
			}
			s.profile = &p
		} else {
			s.profile = nil
		}

		prev := s.state
		s.state = Ready
		if core.NeedsSetup(s.profile) {
			s.state = ProfileMissing
		}
		var start []*month
		if s.state == Ready {
			start = s.pendingLocked()
		}
		next, uid := s.state, s.user.ID
		s.notifyLocked()
		s.mu.Unlock()

		if prev != next {
			s.logger.Info("Profile state changed", log.FieldUID, uid, "from", prev.String(), "to", next.String())
		}
		for _, m := range start {
			s.startMonth(gen, m)
		}
	}
}

func (s *Store) stateSnapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) pendingLocked() []*month {
	var out []*month
	for _, m := range s.months {
		if !m.started {
			m.started = true
			out = append(out, m)
		}
	}
	return out
}

// Focus requests the month containing date. It never blocks. The returned
// channel is closed once the month's first snapshot has been merged. It is
// nil when nobody is signed in.
func (s *Store) Focus(date time.Time) <-chan struct{} {
	ch, _, _, _ := s.focus(date, true)
	return ch
}

func (s *Store) focus(date time.Time, retry bool) (<-chan struct{}, <-chan struct{}, State, error) {
	key := calendar.MonthKey(date.Year(), date.Month())

	s.mu.Lock()
	if s.user == nil {
		changed := s.changed
		s.mu.Unlock()
		return nil, changed, NoUser, nil
	}

	m, ok := s.months[key]
	if ok && m.err != nil && retry {
		s.dropLocked(m)
		ok = false
	}
	if ok {
		s.lru.Touch(key)
	} else {
		first, last := calendar.MonthBounds(date.Year(), date.Month())
		m = &month{key: key, first: first, last: last, state: Loading, loaded: make(chan struct{})}
		s.months[key] = m
		s.lru.Set(key, m)
	}

	var start bool
	if s.state == Ready && !m.started {
		m.started = true
		start = true
	}
	gen, state, changed, merr := s.gen, s.state, s.changed, m.err
	drop := s.dropped
	s.dropped = nil
	s.mu.Unlock()
	runAll(drop)

	if start {
		s.startMonth(gen, m)
	}
	return m.loaded, changed, state, merr
}

// EnsureMonth focuses the month containing date and waits until its work
// days are in memory.
func (s *Store) EnsureMonth(ctx context.Context, date time.Time) error {
	retry := true
	for {
		loaded, changed, state, err := s.focus(date, retry)
		retry = false
		switch {
		case state == NoUser:
			return ErrNoUser
		case state == ProfileMissing:
			return ErrNoProfile
		case err != nil:
			return err
		}
		select {
		case <-loaded:
			return nil
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SessionsBetween loads every month from first to last inclusive and
// returns their work days. Each month is copied as soon as it is loaded, so
// a MaxMonths bound smaller than the range cannot drop days from the
// result.
func (s *Store) SessionsBetween(ctx context.Context, first, last time.Time) (core.WorkSessionsMap, error) {
	out := make(core.WorkSessionsMap)
	for d := calendar.StartOfMonth(first); !d.After(last); d = d.AddDate(0, 1, 0) {
		if err := s.collectMonth(ctx, d, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) collectMonth(ctx context.Context, date time.Time, out core.WorkSessionsMap) error {
	key := calendar.MonthKey(date.Year(), date.Month())
	for {
		if err := s.EnsureMonth(ctx, date); err != nil {
			return err
		}
		s.mu.RLock()
		m, ok := s.months[key]
		ok = ok && m.state == Loaded
		if ok {
			for k, day := range s.sessions {
				if docstore.InRange(k, m.first, m.last) {
					out[k] = day.Clone()
				}
			}
		}
		s.mu.RUnlock()
		if ok {
			return nil
		}
		// Evicted by a concurrent focus between load and copy.
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (s *Store) startMonth(gen uint64, m *month) {
	s.mu.RLock()
	if s.gen != gen || s.user == nil {
		s.mu.RUnlock()
		return
	}
	uid := s.user.ID
	s.mu.RUnlock()

	s.logger.Debug("Loading month", log.FieldUID, uid, log.FieldMonthKey, m.key, log.FieldOperation, log.OpEnsureMonth)
	ctx := context.Background()
	unsub, err := s.docs.WatchWorkDays(ctx, uid, m.first, m.last, s.onDays(gen, m))

	s.mu.Lock()
	if s.gen != gen || s.months[m.key] != m {
		s.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		return
	}
	if err != nil {
		m.err = &Error{Op: log.OpEnsureMonth, Message: MsgLoadSessions, Err: err}
		s.failLocked(log.OpEnsureMonth, MsgLoadSessions, err)
		s.notifyLocked()
		s.mu.Unlock()
		return
	}
	m.unsub = unsub
	s.mu.Unlock()
}

func (s *Store) onDays(gen uint64, m *month) docstore.SessionsHandler {
	return func(days core.WorkSessionsMap, err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen || s.months[m.key] != m {
			return
		}
		if err != nil {
			s.failLocked(log.OpEnsureMonth, MsgLoadSessions, err)
			return
		}
		s.sessions.Merge(days.Clone())
		if m.state != Loaded {
			m.state = Loaded
			close(m.loaded)
		}
		s.notifyLocked()
	}
}

// evictLocked runs when the month cache drops m.
func (s *Store) evictLocked(m *month) {
	if s.months[m.key] != m {
		return
	}
	s.dropLocked(m)
	for key := range s.sessions {
		if docstore.InRange(key, m.first, m.last) {
			delete(s.sessions, key)
		}
	}
	s.logger.Debug("Month evicted", log.FieldMonthKey, m.key)
}

func (s *Store) dropLocked(m *month) {
	delete(s.months, m.key)
	s.lru.Delete(m.key)
	if m.unsub != nil {
		s.dropped = append(s.dropped, m.unsub)
	}
}

func (s *Store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Store) failLocked(op, msg string, err error) {
	s.err = &Error{Op: op, Message: msg, Err: err}
	fields := log.NewFields().WithOperation(op).WithError(err)
	if s.user != nil {
		fields.WithUser(s.user.ID)
	}
	s.logger.Error(msg, fields.ToSlice()...)
}

func (s *Store) fail(op, msg string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLocked(op, msg, err)
	return s.err
}

func runAll(fns []docstore.Unsubscribe) {
	for _, fn := range fns {
		fn()
	}
}

// User returns the signed-in user, or nil.
func (s *Store) User() *core.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) State() State {
	return s.stateSnapshot()
}

// WaitProfile blocks while the profile is loading and returns the state it
// settles in.
func (s *Store) WaitProfile(ctx context.Context) (State, error) {
	for {
		s.mu.RLock()
		state, changed := s.state, s.changed
		s.mu.RUnlock()
		if state != ProfileLoading {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// MonthState reports the load state of the month containing date.
func (s *Store) MonthState(date time.Time) MonthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.months[calendar.MonthKey(date.Year(), date.Month())]
	if !ok {
		return NotLoaded
	}
	return m.state
}

// Profile returns the current profile with defaults applied, or nil. While
// the state is ProfileMissing a legacy profile may still be returned so the
// setup flow can prefill from it.
func (s *Store) Profile() *core.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Sessions returns a copy of every work day loaded so far.
func (s *Store) Sessions() core.WorkSessionsMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions.Clone()
}

// Earnings returns a resolver bound to the current profile.
func (s *Store) Earnings() earnings.Resolver {
	return earnings.NewResolver(s.Profile())
}

// Err returns the last recorded failure.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// LoadedMonths returns the keys of every month currently held.
func (s *Store) LoadedMonths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for key, m := range s.months {
		if m.state == Loaded {
			out = append(out, key)
		}
	}
	return out
}

func (s *Store) uid() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return "", ErrNoUser
	}
	return s.user.ID, nil
}

var errNotSignedIn = &Error{Message: MsgNotSignedIn, Err: ErrNoUser}
