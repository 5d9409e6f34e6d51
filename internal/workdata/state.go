package workdata

import (
	"errors"
	"fmt"
)

var (
	ErrNoUser             = errors.New("no user signed in")
	ErrNoProfile          = errors.New("profile not set up")
	ErrCrossAccountImport = errors.New("this data file belongs to a different user")
	ErrImportFailed       = errors.New("failed to import data")
)

// State is the lifecycle of a signed-in session.
type State int

const (
	NoUser State = iota
	ProfileLoading
	ProfileMissing
	Ready
)

func (s State) String() string {
	switch s {
	case NoUser:
		return "no_user"
	case ProfileLoading:
		return "profile_loading"
	case ProfileMissing:
		return "profile_missing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MonthState tracks the work days of one calendar month.
type MonthState int

const (
	NotLoaded MonthState = iota
	Loading
	Loaded
)

func (s MonthState) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("MonthState(%d)", int(s))
	}
}

// Failure messages recorded by the store.
const (
	MsgLoadProfile   = "Failed to load user profile."
	MsgLoadSessions  = "Failed to load work sessions."
	MsgUpdateProfile = "Failed to update profile."
	MsgSaveSession   = "Failed to save work session."
	MsgMarkPaid      = "Failed to update session payment status."
	MsgCreateProfile = "Failed to save profile."
	MsgNotSignedIn   = "User not authenticated or database not available."
	MsgCrossAccount  = "This data file belongs to a different user."
	MsgImport        = "Failed to import data."
)

// Error is a failure captured in the store's error field. Message is meant
// for the user; Err is the underlying cause.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s (%v)", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
