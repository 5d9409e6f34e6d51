package http

import (
	"errors"
	"net/http"

	"workday/internal/core"
	"workday/internal/workdata"
)

type profileResponse struct {
	State     string             `json:"state"`
	Profile   *core.UserProfile  `json:"profile,omitempty"`
	Setup     *core.InitialSetup `json:"setup,omitempty"`
	LastError string             `json:"lastError,omitempty"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	store, user, ok := s.storeFor(r)
	if !ok {
		ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
		return
	}
	ctx, cancel := s.loadContext(r)
	defer cancel()
	state, err := store.WaitProfile(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := profileResponse{State: state.String(), Profile: store.Profile()}
	if state == workdata.ProfileMissing {
		setup := core.DefaultInitialSetup(user)
		if p := resp.Profile; p != nil {
			// Prefill from a legacy profile.
			setup.WorkerName = p.WorkerName
			setup.HourlyRate = p.HourlyRate
			setup.CurrencySymbol = p.CurrencySymbol
		}
		resp.Setup = &setup
	}
	var werr *workdata.Error
	if errors.As(store.Err(), &werr) {
		resp.LastError = werr.Message
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleSetupProfile(w http.ResponseWriter, r *http.Request) {
	store, _, ok := s.storeFor(r)
	if !ok {
		ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
		return
	}
	var setup core.InitialSetup
	if err := DecodeJSON(w, r, &setup); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	profile, err := store.CreateProfile(r.Context(), setup)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(profile).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	var patch core.ProfilePatch
	if err := DecodeJSON(w, r, &patch); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if patch.IsEmpty() {
		BadRequestError("no profile fields to update").Write(w)
		return
	}
	if err := store.UpdateProfile(r.Context(), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	store, _, ok := s.storeFor(r)
	if !ok {
		ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
		return
	}
	store.ClearError()
	NoContent().Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	_, user, ok := s.storeFor(r)
	if !ok {
		ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
		return
	}
	s.registry.Release(user.ID)
	NoContent().Write(w)
}
