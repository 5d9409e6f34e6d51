// Package sqlite stores the profile and work day documents as JSON rows in
// a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"workday/internal/core"
	"workday/internal/docstore"

	_ "modernc.org/sqlite"
)

var _ docstore.Store = (*Store)(nil)

type Store struct {
	db  *sql.DB
	hub *docstore.Hub
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, hub: docstore.NewHub()}, nil
}

func (s *Store) Close() error {
	s.hub.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getProfile(ctx context.Context, q querier, uid string) (core.StoredProfile, error) {
	var data []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM profiles WHERE uid = ?`, uid).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.StoredProfile{}, docstore.ErrNotFound
	}
	if err != nil {
		return core.StoredProfile{}, fmt.Errorf("select profile: %w", err)
	}
	return docstore.DecodeProfile(data)
}

func putProfile(ctx context.Context, q querier, sp core.StoredProfile) error {
	data, err := docstore.EncodeProfile(sp)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO profiles (uid, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(uid) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sp.UID, string(data))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func mergeProfile(ctx context.Context, q querier, uid string, patch core.ProfilePatch) error {
	sp, err := getProfile(ctx, q, uid)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	sp.UID = uid
	sp.Merge(patch)
	return putProfile(ctx, q, sp)
}

func getDay(ctx context.Context, q querier, uid, key string) (core.WorkDay, error) {
	var data []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM work_sessions WHERE uid = ? AND date_key = ?`, uid, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WorkDay{}, docstore.ErrNotFound
	}
	if err != nil {
		return core.WorkDay{}, fmt.Errorf("select work day: %w", err)
	}
	return docstore.DecodeWorkDay(data)
}

func putDay(ctx context.Context, q querier, uid, key string, day core.WorkDay) error {
	data, err := docstore.EncodeWorkDay(day)
	if err != nil {
		return fmt.Errorf("encode work day: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO work_sessions (uid, date_key, data, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(uid, date_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		uid, key, string(data))
	if err != nil {
		return fmt.Errorf("upsert work day %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, uid string) (core.StoredProfile, error) {
	return getProfile(ctx, s.db, uid)
}

func (s *Store) SetProfile(ctx context.Context, p core.UserProfile) error {
	if err := putProfile(ctx, s.db, core.Complete(p)); err != nil {
		return err
	}
	s.hub.NotifyProfile(p.UID)
	return nil
}

func (s *Store) MergeProfile(ctx context.Context, uid string, patch core.ProfilePatch) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return mergeProfile(ctx, tx, uid, patch)
	})
	if err != nil {
		return err
	}
	s.hub.NotifyProfile(uid)
	return nil
}

func (s *Store) WatchProfile(ctx context.Context, uid string, fn docstore.ProfileHandler) (docstore.Unsubscribe, error) {
	return s.hub.WatchProfile(ctx, uid, func(ctx context.Context) (core.StoredProfile, error) {
		return s.GetProfile(ctx, uid)
	}, fn)
}

func (s *Store) ListProfiles(ctx context.Context) ([]core.StoredProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM profiles ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []core.StoredProfile
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		sp, err := docstore.DecodeProfile(data)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) GetWorkDays(ctx context.Context, uid, from, to string) (core.WorkSessionsMap, error) {
	query := `SELECT date_key, data FROM work_sessions WHERE uid = ?`
	args := []any{uid}
	if from != "" {
		query += ` AND date_key >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date_key <= ?`
		args = append(args, to)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query work days: %w", err)
	}
	defer rows.Close()

	out := make(core.WorkSessionsMap)
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan work day: %w", err)
		}
		day, err := docstore.DecodeWorkDay(data)
		if err != nil {
			return nil, err
		}
		out[key] = day
	}
	return out, rows.Err()
}

func (s *Store) SetWorkDay(ctx context.Context, uid, key string, day core.WorkDay) error {
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	if err := putDay(ctx, s.db, uid, key, day); err != nil {
		return err
	}
	s.hub.NotifyDays(uid, key)
	return nil
}

func (s *Store) MergeWorkDay(ctx context.Context, uid, key string, patch core.WorkDayPatch) error {
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		day, err := getDay(ctx, tx, uid, key)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		patch.Apply(&day)
		return putDay(ctx, tx, uid, key, day)
	})
	if err != nil {
		return err
	}
	s.hub.NotifyDays(uid, key)
	return nil
}

func (s *Store) WatchWorkDays(ctx context.Context, uid, from, to string, fn docstore.SessionsHandler) (docstore.Unsubscribe, error) {
	return s.hub.WatchRange(ctx, uid, from, to, func(ctx context.Context) (core.WorkSessionsMap, error) {
		return s.GetWorkDays(ctx, uid, from, to)
	}, fn)
}

// Commit writes the batch in a single transaction.
func (s *Store) Commit(ctx context.Context, uid string, b docstore.Batch) error {
	if err := docstore.ValidateBatch(b); err != nil {
		return err
	}
	keys := make([]string, 0, len(b.Days))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if !b.Profile.IsEmpty() {
			if err := mergeProfile(ctx, tx, uid, b.Profile); err != nil {
				return err
			}
		}
		for key, day := range b.Days {
			if err := putDay(ctx, tx, uid, key, day); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !b.Profile.IsEmpty() {
		s.hub.NotifyProfile(uid)
	}
	if len(keys) > 0 {
		s.hub.NotifyDays(uid, keys...)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
