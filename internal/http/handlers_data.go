package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/earnings"
	"workday/internal/log"
	"workday/internal/summary"
)

// maxReportMonths bounds how many months a report may span.
const maxReportMonths = 36

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var rng core.DateRange
	if err := DecodeJSON(w, r, &rng); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	from, err := calendar.ParseDateISO(rng.Start)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: start %q", core.ErrInvalidDateKey, rng.Start))
		return
	}
	to, err := calendar.ParseDateISO(rng.End)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: end %q", core.ErrInvalidDateKey, rng.End))
		return
	}
	if from.After(to) {
		s.writeError(w, r, core.ErrInvalidDateRange)
		return
	}
	if months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month()) + 1; months > maxReportMonths {
		BadRequestError(fmt.Sprintf("report range spans %d months, the limit is %d", months, maxReportMonths)).Write(w)
		return
	}

	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	sessions, err := s.monthSessions(r, store, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	profile := s.profileOf(w, r, store)
	if profile == nil {
		return
	}

	report, err := summary.GenerateReport(*profile, sessions, rng.Start, rng.End, s.opts.Now(), earnings.NewResolver(profile).Func())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Report generated",
		log.FieldReportID, report.ID,
		log.FieldCount, len(report.WorkSessions),
		log.FieldOperation, log.OpReport)
	NewJSONResponse().Attachment(summary.ReportFilename(report)).Body(report).Write(w)
}

// handleExport downloads the backup of every month loaded so far.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	store, _, ok := s.storeFor(r)
	if !ok {
		ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
		return
	}
	ctx, cancel := s.loadContext(r)
	defer cancel()
	if _, err := store.WaitProfile(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	data := store.DataForExport()
	filename := fmt.Sprintf("myworkday_backup_%s.json", calendar.FormatDateISO(s.opts.Now()))
	NewJSONResponse().Attachment(filename).Body(data).Write(w)
}

// handleImport restores a backup. Unknown fields in the file are ignored.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	store, _, ok := s.storeFor(r)
	if !ok {
		ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
		return
	}
	body, err := ReadBody(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var data core.ExportedData
	if err := json.Unmarshal(body, &data); err != nil {
		BadRequestError("invalid backup file: " + err.Error()).Write(w)
		return
	}
	for key := range data.WorkSessions {
		if _, err := calendar.ParseDateISO(key); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %q", core.ErrInvalidDateKey, key))
			return
		}
	}
	if err := store.LoadDataFromExport(r.Context(), data); err != nil {
		s.writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}
