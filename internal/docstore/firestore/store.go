// Package firestore keeps profiles at users/{uid} and work days at
// users/{uid}/work_sessions/{YYYY-MM-DD} in Cloud Firestore. Watches use
// Firestore's own snapshot listeners.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"workday/internal/core"
	"workday/internal/docstore"
	"workday/internal/log"
)

var _ docstore.Store = (*Store)(nil)

// MaxBatchWrites is the write limit of a single Firestore transaction.
const MaxBatchWrites = 500

const (
	minResubscribeDelay = time.Second
	maxResubscribeDelay = 30 * time.Second
)

var ErrBatchTooLarge = fmt.Errorf("batch exceeds %d writes", MaxBatchWrites)

type Store struct {
	client *firestore.Client
	logger *log.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type Options struct {
	ProjectID       string
	CredentialsFile string
}

// New opens a Firestore client. Without a credentials file the client uses
// application default credentials, or the emulator when
// FIRESTORE_EMULATOR_HOST is set.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Store, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{
		client: client,
		logger: logger.WithComponent("docstore.firestore"),
		done:   make(chan struct{}),
	}, nil
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	return s.client.Close()
}

func (s *Store) users() *firestore.CollectionRef {
	return s.client.Collection(core.CollectionUsers)
}

func (s *Store) sessions(uid string) *firestore.CollectionRef {
	return s.users().Doc(uid).Collection(core.CollectionWorkSessions)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func decodeProfile(snap *firestore.DocumentSnapshot) (core.StoredProfile, error) {
	doc := docstore.NewProfileDocument()
	if err := snap.DataTo(doc); err != nil {
		return core.StoredProfile{}, fmt.Errorf("decode profile %s: %w", snap.Ref.ID, err)
	}
	sp, err := docstore.StoredFromDocument(doc)
	if err != nil {
		return core.StoredProfile{}, err
	}
	if sp.UID == "" {
		sp.UID = snap.Ref.ID
	}
	return sp, nil
}

func decodeDays(docs []*firestore.DocumentSnapshot) (core.WorkSessionsMap, error) {
	out := make(core.WorkSessionsMap, len(docs))
	for _, doc := range docs {
		var day core.WorkDay
		if err := doc.DataTo(&day); err != nil {
			return nil, fmt.Errorf("decode work day %s: %w", doc.Ref.ID, err)
		}
		out[doc.Ref.ID] = day
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, uid string) (core.StoredProfile, error) {
	snap, err := s.users().Doc(uid).Get(ctx)
	if isNotFound(err) {
		return core.StoredProfile{}, docstore.ErrNotFound
	}
	if err != nil {
		return core.StoredProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return decodeProfile(snap)
}

func (s *Store) SetProfile(ctx context.Context, p core.UserProfile) error {
	if _, err := s.users().Doc(p.UID).Set(ctx, docstore.ProfileDocument(core.Complete(p))); err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

func profileMerge(uid string, patch core.ProfilePatch) map[string]any {
	fields := patch.Fields()
	fields["uid"] = uid
	return fields
}

func (s *Store) MergeProfile(ctx context.Context, uid string, patch core.ProfilePatch) error {
	if patch.IsEmpty() {
		return nil
	}
	if _, err := s.users().Doc(uid).Set(ctx, profileMerge(uid, patch), firestore.MergeAll); err != nil {
		return fmt.Errorf("merge profile: %w", err)
	}
	return nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]core.StoredProfile, error) {
	iter := s.users().Documents(ctx)
	defer iter.Stop()

	var out []core.StoredProfile
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		sp, err := decodeProfile(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, nil
}

func (s *Store) rangeQuery(uid, from, to string) firestore.Query {
	coll := s.sessions(uid)
	q := coll.Query
	if from != "" {
		q = q.Where(firestore.DocumentID, ">=", coll.Doc(from))
	}
	if to != "" {
		q = q.Where(firestore.DocumentID, "<=", coll.Doc(to))
	}
	return q
}

func (s *Store) GetWorkDays(ctx context.Context, uid, from, to string) (core.WorkSessionsMap, error) {
	docs, err := s.rangeQuery(uid, from, to).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query work days: %w", err)
	}
	return decodeDays(docs)
}

func (s *Store) SetWorkDay(ctx context.Context, uid, key string, day core.WorkDay) error {
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.sessions(uid).Doc(key).Set(ctx, day); err != nil {
		return fmt.Errorf("set work day %s: %w", key, err)
	}
	return nil
}

func (s *Store) MergeWorkDay(ctx context.Context, uid, key string, patch core.WorkDayPatch) error {
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.sessions(uid).Doc(key).Set(ctx, patch.Fields(), firestore.MergeAll); err != nil {
		return fmt.Errorf("merge work day %s: %w", key, err)
	}
	return nil
}

// Commit writes the batch in one transaction. Firestore caps a transaction
// at MaxBatchWrites writes.
func (s *Store) Commit(ctx context.Context, uid string, b docstore.Batch) error {
	if err := docstore.ValidateBatch(b); err != nil {
		return err
	}
	writes := len(b.Days)
	if !b.Profile.IsEmpty() {
		writes++
	}
	if writes == 0 {
		return nil
	}
	if writes > MaxBatchWrites {
		return ErrBatchTooLarge
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if !b.Profile.IsEmpty() {
			if err := tx.Set(s.users().Doc(uid), profileMerge(uid, b.Profile), firestore.MergeAll); err != nil {
				return err
			}
		}
		for key, day := range b.Days {
			if err := tx.Set(s.sessions(uid).Doc(key), day); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *Store) WatchProfile(ctx context.Context, uid string, fn docstore.ProfileHandler) (docstore.Unsubscribe, error) {
	ref := s.users().Doc(uid)
	return s.listen(ctx, "profile", uid, func(ctx context.Context) error {
		it := ref.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				return err
			}
			if !snap.Exists() {
				fn(docstore.ProfileSnapshot{}, nil)
				continue
			}
			sp, err := decodeProfile(snap)
			if err != nil {
				fn(docstore.ProfileSnapshot{}, err)
				continue
			}
			fn(docstore.ProfileSnapshot{Profile: sp, Exists: true}, nil)
		}
	}, func(err error) { fn(docstore.ProfileSnapshot{}, err) })
}

func (s *Store) WatchWorkDays(ctx context.Context, uid, from, to string, fn docstore.SessionsHandler) (docstore.Unsubscribe, error) {
	q := s.rangeQuery(uid, from, to)
	return s.listen(ctx, "work_sessions", uid, func(ctx context.Context) error {
		it := q.Snapshots(ctx)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				return err
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				fn(nil, err)
				continue
			}
			days, err := decodeDays(docs)
			fn(days, err)
		}
	}, func(err error) { fn(nil, err) })
}

// listen runs a snapshot listener until the watch is cancelled. When the
// listener fails the error is reported and the listener restarts after a
// growing delay.
func (s *Store) listen(ctx context.Context, kind, uid string, run func(context.Context) error, report func(error)) (docstore.Unsubscribe, error) {
	select {
	case <-s.done:
		return nil, docstore.ErrClosed
	default:
	}

	ctx, cancel := context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		delay := minResubscribeDelay
		for {
			err := run(ctx)
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("Snapshot listener failed", "kind", kind, "uid", uid, "error", err, "retry_in", delay)
			report(err)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			delay = min(delay*2, maxResubscribeDelay)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}
