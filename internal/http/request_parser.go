// This file implements utilities for parsing and validating request paths,
// queries and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"workday/internal/calendar"
	"workday/internal/core"
)

const maxBodyBytes = 5 << 20

// MonthParams holds parsed year/month values from the request path.
type MonthParams struct {
	Year  int
	Month time.Month
}

// Date returns the first day of the month.
func (m MonthParams) Date() time.Time {
	return calendar.Date(m.Year, m.Month, 1)
}

// ParseMonthParams reads the {year} and {month} path parameters.
func ParseMonthParams(r *http.Request) (MonthParams, error) {
	year, err := parseYear(chi.URLParam(r, "year"))
	if err != nil {
		return MonthParams{}, err
	}
	month, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "month")))
	if err != nil || month < 1 || month > 12 {
		return MonthParams{}, fmt.Errorf("invalid month %q: must be 1-12", chi.URLParam(r, "month"))
	}
	return MonthParams{Year: year, Month: time.Month(month)}, nil
}

// ParseYearParam reads the {year} path parameter.
func ParseYearParam(r *http.Request) (int, error) {
	return parseYear(chi.URLParam(r, "year"))
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year < 1970 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}

// ParseDateParam reads the {date} path parameter as an ISO date key.
func ParseDateParam(r *http.Request) (time.Time, string, error) {
	key := strings.TrimSpace(chi.URLParam(r, "date"))
	date, err := calendar.ParseDateISO(key)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %q", core.ErrInvalidDateKey, key)
	}
	return date, key, nil
}

// DecodeJSON reads a single JSON value from the request body into v.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// ReadBody returns the raw request body up to the size limit.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}

// QueryFlag reports whether a boolean query parameter is set.
func QueryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
