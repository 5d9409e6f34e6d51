package http

import (
	"net/http"

	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/log"
	"workday/internal/timecalc"
	"workday/internal/workdata"
)

type monthResponse struct {
	Month    string               `json:"month"`
	Label    string               `json:"label"`
	Sessions core.WorkSessionsMap `json:"workSessions"`
}

type saveResponse struct {
	workdata.SaveResult
	Next string `json:"next,omitempty"`
}

func (s *Server) handleMonthSessions(w http.ResponseWriter, r *http.Request) {
	mp, err := ParseMonthParams(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	sessions, err := s.monthSessions(r, store, mp.Date(), mp.Date())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(monthResponse{
		Month:    calendar.MonthKey(mp.Year, mp.Month),
		Label:    calendar.MonthLabel(mp.Year, mp.Month),
		Sessions: sessions,
	}).Write(w)
}

// handleSaveDay stores the posted shifts with a fresh earnings snapshot.
// With ?next=1 the response names the following date so clients can step
// through days.
func (s *Server) handleSaveDay(w http.ResponseWriter, r *http.Request) {
	date, _, err := ParseDateParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var day core.WorkDay
	if err := DecodeJSON(w, r, &day); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := validateShifts(day); err != nil {
		s.writeError(w, r, err)
		return
	}
	store := s.readyStore(w, r)
	if store == nil {
		return
	}

	res, err := store.SaveDay(r.Context(), date, day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := saveResponse{SaveResult: res}
	if QueryFlag(r, "next") {
		resp.Next = calendar.FormatDateISO(calendar.AddDays(date, 1))
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Day saved",
		log.FieldDateKey, res.Key, log.FieldAmount, res.Earnings, log.FieldOperation, log.OpSaveDay)
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	_, key, err := ParseDateParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	if err := store.MarkSessionAsPaid(r.Context(), key); err != nil {
		s.writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

// handleShiftInput applies shifts produced by an external parser to the
// day, keeping its payment flag, and saves it like handleSaveDay.
func (s *Server) handleShiftInput(w http.ResponseWriter, r *http.Request) {
	date, key, err := ParseDateParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := ReadBody(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	parsed, err := core.ParseShiftInput(body)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	sessions, err := s.monthSessions(r, store, date, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	day := parsed.ApplyTo(sessions[key])
	if err := validateShifts(day); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := store.SaveDay(r.Context(), date, day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(saveResponse{SaveResult: res}).Write(w)
}

// validateShifts rejects malformed times. Empty times are allowed and mean
// the shift is unset.
func validateShifts(day core.WorkDay) error {
	for _, v := range []string{day.Shift1.Start, day.Shift1.End, day.Shift2.Start, day.Shift2.End} {
		if _, err := timecalc.ParseTimeOfDay(v); err != nil {
			return err
		}
	}
	return nil
}
