package workdata

import (
	"context"
	"fmt"
	"time"

	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/docstore"
	"workday/internal/earnings"
	"workday/internal/log"
)

// exportTimestampLayout matches JavaScript's Date.toISOString.
const exportTimestampLayout = "2006-01-02T15:04:05.000Z"

// SaveResult describes a day saved through SaveDay.
type SaveResult struct {
	Key       string       `json:"dateKey"`
	Day       core.WorkDay `json:"day"`
	Earnings  float64      `json:"earnings"`
	Shortfall float64      `json:"shortfall,omitempty"`
	BelowGoal bool         `json:"belowGoal"`
}

// UpdateProfile merges patch into the profile document. The in-memory
// profile changes when the subscription echoes the write back.
func (s *Store) UpdateProfile(ctx context.Context, patch core.ProfilePatch) error {
	uid, err := s.uid()
	if err != nil {
		return err
	}
	if err := core.ValidateStruct(patch); err != nil {
		return err
	}
	if err := s.docs.MergeProfile(ctx, uid, patch); err != nil {
		return s.fail(log.OpUpdateProfile, MsgUpdateProfile, err)
	}
	return nil
}

// CreateProfile writes a fresh profile from the initial setup answers.
func (s *Store) CreateProfile(ctx context.Context, setup core.InitialSetup) (core.UserProfile, error) {
	user := s.User()
	if user == nil {
		return core.UserProfile{}, ErrNoUser
	}
	if err := setup.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	profile := core.NewProfile(*user, setup)
	if err := s.docs.SetProfile(ctx, profile); err != nil {
		return core.UserProfile{}, s.fail(log.OpCreateProfile, MsgCreateProfile, err)
	}
	s.logger.InfoContext(ctx, "Profile created", log.FieldUID, user.ID, log.FieldOperation, log.OpCreateProfile)
	return profile, nil
}

// SaveWorkSession overwrites the day stored under key. Callers embed the
// earnings snapshot themselves; SaveDay does that for them.
func (s *Store) SaveWorkSession(ctx context.Context, key string, day core.WorkDay) error {
	uid, err := s.uid()
	if err != nil {
		return err
	}
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	if err := s.docs.SetWorkDay(ctx, uid, key, day); err != nil {
		return s.fail(log.OpSaveSession, MsgSaveSession, err)
	}
	s.logger.DebugContext(ctx, "Work session saved", log.FieldUID, uid, log.FieldDateKey, key)
	return nil
}

// MarkSessionAsPaid clears the pending payment flag of one day and touches
// nothing else.
func (s *Store) MarkSessionAsPaid(ctx context.Context, key string) error {
	uid, err := s.uid()
	if err != nil {
		return err
	}
	if err := docstore.ValidateKey(key); err != nil {
		return err
	}
	if err := s.docs.MergeWorkDay(ctx, uid, key, core.MarkPaid()); err != nil {
		return s.fail(log.OpMarkPaid, MsgMarkPaid, err)
	}
	s.logger.InfoContext(ctx, "Payment received", log.FieldUID, uid, log.FieldDateKey, key, log.FieldOperation, log.OpMarkPaid)
	return nil
}

// SaveDay stamps day with the current profile's earnings snapshot and saves
// it under date. The result reports how far the day fell below the daily
// goal.
func (s *Store) SaveDay(ctx context.Context, date time.Time, day core.WorkDay) (SaveResult, error) {
	if _, err := s.uid(); err != nil {
		return SaveResult{}, err
	}
	p := s.Profile()
	if p == nil {
		return SaveResult{}, ErrNoProfile
	}

	key := calendar.FormatDateISO(date)
	stamped := earnings.Snapshot(day, *p)
	if err := s.SaveWorkSession(ctx, key, stamped); err != nil {
		return SaveResult{}, err
	}

	res := SaveResult{Key: key, Day: stamped, Earnings: *stamped.RecordedEarnings}
	res.Shortfall, res.BelowGoal = earnings.GoalShortfall(res.Earnings, p.IdealDailyEarnings)
	return res, nil
}

// DataForExport returns the backup of everything loaded so far. Without a
// profile the backup is empty.
func (s *Store) DataForExport() core.ExportedData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil || s.profile == nil {
		return core.ExportedData{HourlyRate: core.Float(0), WorkSessions: core.WorkSessionsMap{}}
	}
	p := *s.profile
	p.UID = s.user.ID
	return core.ExportFromProfile(p, s.sessions.Clone(), s.opts.Now().UTC().Format(exportTimestampLayout))
}

// LoadDataFromExport writes a backup back in one atomic batch: the profile
// fields present in data merged into the profile, and every day
// overwritten. A backup that names another user is refused before anything
// is written.
func (s *Store) LoadDataFromExport(ctx context.Context, data core.ExportedData) error {
	uid, err := s.uid()
	if err != nil {
		s.mu.Lock()
		s.err = errNotSignedIn
		s.mu.Unlock()
		return err
	}
	if data.UID != "" && data.UID != uid {
		s.mu.Lock()
		s.err = &Error{Op: log.OpImport, Message: MsgCrossAccount, Err: ErrCrossAccountImport}
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Refusing import for another user", log.FieldUID, uid, "file_uid", data.UID)
		return ErrCrossAccountImport
	}

	batch := docstore.Batch{Profile: data.ProfilePatch(), Days: data.WorkSessions}
	if err := s.docs.Commit(ctx, uid, batch); err != nil {
		s.fail(log.OpImport, MsgImport, err)
		return fmt.Errorf("%w: %w", ErrImportFailed, err)
	}
	s.logger.InfoContext(ctx, "Backup imported", log.FieldUID, uid, log.FieldCount, len(data.WorkSessions), log.FieldOperation, log.OpImport)
	return nil
}
