// Package redis stores documents as JSON strings in Redis. Each user's day
// keys are indexed in a sorted set so date ranges resolve with ZRANGEBYLEX,
// and every write publishes a change message that all processes sharing the
// database feed into their local watchers.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"workday/internal/core"
	"workday/internal/docstore"
	"workday/internal/log"
)

var _ docstore.Store = (*Store)(nil)

const (
	keyPrefix    = "workday:"
	usersKey     = keyPrefix + "users"
	changePrefix = keyPrefix + "changes:"

	changeProfile = "profile"
	changeDays    = "days:"

	maxTxRetries = 10
)

type Store struct {
	client *redis.Client
	pubsub *redis.PubSub
	hub    *docstore.Hub
	logger *log.Logger
	wg     sync.WaitGroup
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and starts listening for change messages.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s, err := NewWithClient(ctx, client, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// NewWithClient wraps an existing client. The store owns the client from
// then on and closes it in Close.
func NewWithClient(ctx context.Context, client *redis.Client, logger *log.Logger) (*Store, error) {
	ps := client.PSubscribe(ctx, changePrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to changes: %w", err)
	}

	s := &Store{
		client: client,
		pubsub: ps,
		hub:    docstore.NewHub(),
		logger: logger.WithComponent("docstore.redis"),
	}
	s.wg.Add(1)
	go s.listen()
	return s, nil
}

func (s *Store) listen() {
	defer s.wg.Done()
	for msg := range s.pubsub.Channel() {
		uid := strings.TrimPrefix(msg.Channel, changePrefix)
		switch {
		case msg.Payload == changeProfile:
			s.hub.NotifyProfile(uid)
		case strings.HasPrefix(msg.Payload, changeDays):
			s.hub.NotifyDays(uid, strings.Split(strings.TrimPrefix(msg.Payload, changeDays), ",")...)
		default:
			s.logger.Warn("Ignoring unknown change message", "channel", msg.Channel, "payload", msg.Payload)
		}
	}
}

func (s *Store) Close() error {
	s.hub.Close()
	err := s.pubsub.Close()
	s.wg.Wait()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func profileKey(uid string) string {
	return usersKey + ":" + uid
}

func indexKey(uid string) string {
	return profileKey(uid) + ":" + core.CollectionWorkSessions
}

func dayKey(uid, date string) string {
	return indexKey(uid) + ":" + date
}

func changeChannel(uid string) string {
	return changePrefix + uid
}

func daysPayload(keys []string) string {
	return changeDays + strings.Join(keys, ",")
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadProfile(ctx context.Context, g getter, uid string) (core.StoredProfile, error) {
	data, err := g.Get(ctx, profileKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.StoredProfile{}, docstore.ErrNotFound
	}
	if err != nil {
		return core.StoredProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return docstore.DecodeProfile(data)
}

func (s *Store) GetProfile(ctx context.Context, uid string) (core.StoredProfile, error) {
	return loadProfile(ctx, s.client, uid)
}

func (s *Store) SetProfile(ctx context.Context, p core.UserProfile) error {
	data, err := docstore.EncodeProfile(core.Complete(p))
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, profileKey(p.UID), data, 0)
		pipe.SAdd(ctx, usersKey, p.UID)
		pipe.Publish(ctx, changeChannel(p.UID), changeProfile)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

func (s *Store) MergeProfile(ctx context.Context, uid string, patch core.ProfilePatch) error {
	return s.Commit(ctx, uid, docstore.Batch{Profile: patch})
}

func (s *Store) WatchProfile(ctx context.Context, uid string, fn docstore.ProfileHandler) (docstore.Unsubscribe, error) {
	return s.hub.WatchProfile(ctx, uid, func(ctx context.Context) (core.StoredProfile, error) {
		return s.GetProfile(ctx, uid)
	}, fn)
}

func (s *Store) ListProfiles(ctx context.Context) ([]core.StoredProfile, error) {
	uids, err := s.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var out []core.StoredProfile
	for _, uid := range uids {
		sp, err := s.GetProfile(ctx, uid)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, nil
}

func (s *Store) GetWorkDays(ctx context.Context, uid, from, to string) (core.WorkSessionsMap, error) {
	rng := &redis.ZRangeBy{Min: "-", Max: "+"}
	if from != "" {
		rng.Min = "[" + from
	}
	if to != "" {
		rng.Max = "[" + to
	}
	dates, err := s.client.ZRangeByLex(ctx, indexKey(uid), rng).Result()
	if err != nil {
		return nil, fmt.Errorf("range work days: %w", err)
	}

	out := make(core.WorkSessionsMap, len(dates))
	if len(dates) == 0 {
		return out, nil
	}

	keys := make([]string, len(dates))
	for i, date := range dates {
		keys[i] = dayKey(uid, date)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get work days: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		day, err := docstore.DecodeWorkDay([]byte(raw))
		if err != nil {
			return nil, err
		}
		out[dates[i]] = day
	}
	return out, nil
}

func (s *Store) SetWorkDay(ctx context.Context, uid, key string, day core.WorkDay) error {
	return s.Commit(ctx, uid, docstore.Batch{Days: core.WorkSessionsMap{key: day}})
}

func (s *Store) MergeWorkDay(ctx context.Context, uid, key string, patch core.WorkDayPatch) error {
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	k := dayKey(uid, key)
	return s.retry(ctx, func(tx *redis.Tx) error {
		var day core.WorkDay
		data, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("get work day: %w", err)
		default:
			if day, err = docstore.DecodeWorkDay(data); err != nil {
				return err
			}
		}
		patch.Apply(&day)
		encoded, err := docstore.EncodeWorkDay(day)
		if err != nil {
			return fmt.Errorf("encode work day: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, encoded, 0)
			pipe.ZAdd(ctx, indexKey(uid), redis.Z{Member: key})
			pipe.Publish(ctx, changeChannel(uid), daysPayload([]string{key}))
			return nil
		})
		return err
	}, k)
}

func (s *Store) WatchWorkDays(ctx context.Context, uid, from, to string, fn docstore.SessionsHandler) (docstore.Unsubscribe, error) {
	return s.hub.WatchRange(ctx, uid, from, to, func(ctx context.Context) (core.WorkSessionsMap, error) {
		return s.GetWorkDays(ctx, uid, from, to)
	}, fn)
}

// Commit applies the batch inside MULTI/EXEC, optimistically locked on the
// profile document.
func (s *Store) Commit(ctx context.Context, uid string, b docstore.Batch) error {
	if err := docstore.ValidateBatch(b); err != nil {
		return err
	}
	if b.IsEmpty() {
		return nil
	}

	days := make(map[string][]byte, len(b.Days))
	keys := make([]string, 0, len(b.Days))
	for key, day := range b.Days {
		data, err := docstore.EncodeWorkDay(day)
		if err != nil {
			return fmt.Errorf("encode work day %s: %w", key, err)
		}
		days[key] = data
		keys = append(keys, key)
	}

	return s.retry(ctx, func(tx *redis.Tx) error {
		var profile []byte
		if !b.Profile.IsEmpty() {
			sp, err := loadProfile(ctx, tx, uid)
			if err != nil && !errors.Is(err, docstore.ErrNotFound) {
				return err
			}
			sp.UID = uid
			sp.Merge(b.Profile)
			if profile, err = docstore.EncodeProfile(sp); err != nil {
				return fmt.Errorf("encode profile: %w", err)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if profile != nil {
				pipe.Set(ctx, profileKey(uid), profile, 0)
				pipe.SAdd(ctx, usersKey, uid)
				pipe.Publish(ctx, changeChannel(uid), changeProfile)
			}
			for key, data := range days {
				pipe.Set(ctx, dayKey(uid, key), data, 0)
				pipe.ZAdd(ctx, indexKey(uid), redis.Z{Member: key})
			}
			if len(keys) > 0 {
				pipe.Publish(ctx, changeChannel(uid), daysPayload(keys))
			}
			return nil
		})
		return err
	}, profileKey(uid))
}

// retry runs fn under WATCH on keys until it commits without a conflicting
// write.
func (s *Store) retry(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.logger.Debug("Retrying contended transaction", "keys", keys, "attempt", i+1)
	}
	return fmt.Errorf("transaction on %v: too much contention", keys)
}
