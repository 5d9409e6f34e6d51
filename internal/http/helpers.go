package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"workday/internal/auth"
	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/docstore"
	"workday/internal/log"
	"workday/internal/workdata"
)

// storeFor returns the work data store of the authenticated user.
func (s *Server) storeFor(r *http.Request) (*workdata.Store, core.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, core.User{}, false
	}
	return s.registry.For(r.Context(), user), user, true
}

// readyStore returns the store once the profile has settled, or writes the
// error response and returns nil.
func (s *Server) readyStore(w http.ResponseWriter, r *http.Request) *workdata.Store {
	store, _, ok := s.storeFor(r)
	if !ok {
		ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
		return nil
	}
	ctx, cancel := s.loadContext(r)
	defer cancel()
	state, err := store.WaitProfile(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return nil
	}
	switch state {
	case workdata.Ready:
		return store
	case workdata.ProfileMissing:
		s.writeError(w, r, workdata.ErrNoProfile)
	default:
		s.writeError(w, r, workdata.ErrNoUser)
	}
	return nil
}

func (s *Server) loadContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.LoadTimeout)
}

// monthSessions loads every month from first to last inclusive and returns
// their work days.
func (s *Server) monthSessions(r *http.Request, store *workdata.Store, first, last time.Time) (core.WorkSessionsMap, error) {
	ctx, cancel := s.loadContext(r)
	defer cancel()
	return store.SessionsBetween(ctx, first, last)
}

// profileOf returns the profile of a ready store, or writes 409 and returns
// nil when it has none.
func (s *Server) profileOf(w http.ResponseWriter, r *http.Request, store *workdata.Store) *core.UserProfile {
	profile := store.Profile()
	if profile == nil {
		s.writeError(w, r, workdata.ErrNoProfile)
	}
	return profile
}

func (s *Server) today() time.Time {
	return calendar.Midnight(s.opts.Now())
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var werr *workdata.Error
	switch {
	case errors.Is(err, core.ErrValidation):
		ValidationErrorResponse(err).Write(w)
	case errors.Is(err, core.ErrInvalidDateKey),
		errors.Is(err, core.ErrInvalidDateRange),
		errors.Is(err, core.ErrInvalidTime),
		errors.Is(err, core.ErrMissingShift):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, workdata.ErrNoUser):
		ErrorResponse(http.StatusUnauthorized, workdata.MsgNotSignedIn).Write(w)
	case errors.Is(err, workdata.ErrNoProfile):
		ConflictError("profile setup required").Write(w)
	case errors.Is(err, workdata.ErrCrossAccountImport):
		ErrorResponse(http.StatusForbidden, workdata.MsgCrossAccount).Write(w)
	case errors.Is(err, workdata.ErrImportFailed):
		s.logFailure(r, err)
		InternalServerError(workdata.MsgImport).Write(w)
	case errors.Is(err, docstore.ErrNotFound):
		NotFoundError("not found").Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(http.StatusGatewayTimeout, "timed out waiting for data").Write(w)
	case errors.As(err, &werr):
		s.logFailure(r, err)
		ErrorResponse(http.StatusBadGateway, werr.Message).Write(w)
	default:
		s.logFailure(r, err)
		InternalServerError("internal error").Write(w)
	}
}

func (s *Server) logFailure(r *http.Request, err error) {
	fields := log.NewFields()
	if user, ok := auth.UserFromContext(r.Context()); ok {
		fields.WithUser(user.ID)
	}
	s.httpLog.LogError(r.Context(), "Request failed", err, r.Method+" "+r.URL.Path, fields)
}
