package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workday/internal/auth"
	"workday/internal/core"
	"workday/internal/docstore/memory"
	"workday/internal/log"
	"workday/internal/summary"
	"workday/internal/workdata"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

var devUser = core.User{ID: "dev-user", Email: "dev@example.com", DisplayName: "Dev"}

func fixedNow() time.Time { return time.Date(2024, time.March, 20, 12, 0, 0, 0, time.Local) }

func newTestServer(t *testing.T, authCfg auth.Config) *Server {
	t.Helper()
	return newTestServerWith(t, authCfg, workdata.Options{})
}

func newTestServerWith(t *testing.T, authCfg auth.Config, opts workdata.Options) *Server {
	t.Helper()
	docs := memory.New()
	t.Cleanup(func() { docs.Close() })
	opts.Now = fixedNow
	registry := workdata.NewRegistry(docs, log.Discard(), opts)
	t.Cleanup(registry.Close)
	if authCfg.DevUser.ID == "" {
		authCfg.DevUser = devUser
	}
	authn := auth.New(authCfg, log.Discard())
	return NewServer(Options{Addr: ":0", Now: fixedNow, LoadTimeout: waitFor}, registry, authn, log.Discard())
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

const setupBody = `{"workerName":"Ana","hourlyRate":10,"currencySymbol":"$","idealDailyEarnings":100,"idealMonthlyEarnings":2000,"theme":"light"}`

// setUp completes the setup flow and waits until the profile is ready.
func setUp(t *testing.T, srv *Server) {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/profile/setup", setupBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Eventually(t, func() bool {
		rr := do(t, srv, http.MethodGet, "/api/profile", "")
		return rr.Code == http.StatusOK && decode[profileResponse](t, rr).State == workdata.Ready.String()
	}, waitFor, tick)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}
}

func TestProfileSetupFlow(t *testing.T) {
	srv := newTestServer(t, auth.Config{})

	rr := do(t, srv, http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[profileResponse](t, rr)
	assert.Equal(t, workdata.ProfileMissing.String(), resp.State)
	require.NotNil(t, resp.Setup)
	assert.Equal(t, "Dev", resp.Setup.WorkerName)

	rr = do(t, srv, http.MethodPut, "/api/sessions/2024-03-04", `{"shift1":{"start":"09:00","end":"17:00"},"shift2":{"start":"","end":""}}`)
	assert.Equal(t, http.StatusConflict, rr.Code, "saving before setup")

	rr = do(t, srv, http.MethodPost, "/api/profile/setup", `{"workerName":"","hourlyRate":-1,"currencySymbol":"$"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[errorBody](t, rr)
	assert.NotEmpty(t, body.Fields)

	setUp(t, srv)

	rr = do(t, srv, http.MethodGet, "/api/profile", "")
	resp = decode[profileResponse](t, rr)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, "Ana", resp.Profile.WorkerName)
	assert.Nil(t, resp.Setup)

	rr = do(t, srv, http.MethodPatch, "/api/profile", `{"hourlyRate":12.5}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Eventually(t, func() bool {
		p := decode[profileResponse](t, do(t, srv, http.MethodGet, "/api/profile", "")).Profile
		return p != nil && p.HourlyRate == 12.5
	}, waitFor, tick)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPatch, "/api/profile", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPatch, "/api/profile", `{"bogus":1}`).Code)
}

func TestProfileSetupRespondsWithSavedProfile(t *testing.T) {
	srv := newTestServer(t, auth.Config{})

	rr := do(t, srv, http.MethodPost, "/api/profile/setup",
		`{"workerName":"  Ana  ","hourlyRate":10,"currencySymbol":" $ ","theme":"light"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[core.UserProfile](t, rr)
	assert.Equal(t, "Ana", created.WorkerName)
	assert.Equal(t, "$", created.CurrencySymbol)
	assert.Equal(t, devUser.ID, created.UID)
}

func TestSaveDayAndSummaries(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	setUp(t, srv)

	rr := do(t, srv, http.MethodPut, "/api/sessions/2024-03-04?next=1",
		`{"shift1":{"start":"09:00","end":"17:00"},"shift2":{"start":"","end":""},"paymentPending":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	saved := decode[saveResponse](t, rr)
	assert.Equal(t, "2024-03-04", saved.Key)
	assert.Equal(t, "2024-03-05", saved.Next)
	assert.InDelta(t, 80, saved.Earnings, 0.001)
	assert.True(t, saved.BelowGoal)
	assert.InDelta(t, 20, saved.Shortfall, 0.001)

	rr = do(t, srv, http.MethodPut, "/api/sessions/2024-03-05",
		`{"shift1":{"start":"08:00","end":"12:00"},"shift2":{"start":"13:00","end":"19:00"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[saveResponse](t, rr).Next)

	require.Eventually(t, func() bool {
		rr := do(t, srv, http.MethodGet, "/api/months/2024/3", "")
		return rr.Code == http.StatusOK && len(decode[monthResponse](t, rr).Sessions) == 2
	}, waitFor, tick)

	rr = do(t, srv, http.MethodGet, "/api/summary/2024/3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decode[monthSummaryResponse](t, rr)
	assert.InDelta(t, 180, sum.Total, 0.001)
	assert.Equal(t, 2, sum.Averages.DaysWorked)
	assert.Equal(t, "Tuesday", sum.Averages.BusiestDayName)

	rr = do(t, srv, http.MethodGet, "/api/payments/pending", "")
	pending := decode[pendingResponse](t, rr)
	require.Len(t, pending.Payments, 1)
	assert.InDelta(t, 80, pending.Total, 0.001)

	rr = do(t, srv, http.MethodPost, "/api/sessions/2024-03-04/paid", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Eventually(t, func() bool {
		return len(decode[pendingResponse](t, do(t, srv, http.MethodGet, "/api/payments/pending", "")).Payments) == 0
	}, waitFor, tick)

	rr = do(t, srv, http.MethodGet, "/api/summary/annual/2024", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"year": 2024`)

	rr = do(t, srv, http.MethodGet, "/api/summary/monthly", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"monthYearLabel"`)
}

func TestShiftInput(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	setUp(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/sessions/2024-03-06/shift-input", `{"shift1":{"start":"10:00","end":"14:00"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.InDelta(t, 40, decode[saveResponse](t, rr).Earnings, 0.001)

	rr = do(t, srv, http.MethodPost, "/api/sessions/2024-03-06/shift-input", `{"shift1":{"start":"10:00"}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/sessions/2024-03-06/shift-input", `{"shift1":{"start":"25:00","end":"26:00"}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportAndExportImport(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	setUp(t, srv)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/sessions/2024-03-04",
		`{"shift1":{"start":"09:00","end":"17:00"},"shift2":{"start":"","end":""}}`).Code)
	require.Eventually(t, func() bool {
		return len(decode[monthResponse](t, do(t, srv, http.MethodGet, "/api/months/2024/3", "")).Sessions) == 1
	}, waitFor, tick)

	rr := do(t, srv, http.MethodPost, "/api/reports", `{"start":"2024-03-01","end":"2024-03-31"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "work_report_Ana_2024-03-01_2024-03-31.json")
	report := decode[core.WorkerReport](t, rr)
	assert.InDelta(t, 80, report.TotalEarnings, 0.001)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/reports", `{"start":"2024-03-31","end":"2024-03-01"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/reports", `{"start":"2020-01-01","end":"2024-03-01"}`).Code)

	rr = do(t, srv, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "myworkday_backup_2024-03-20.json")
	exported := decode[core.ExportedData](t, rr)
	assert.Equal(t, devUser.ID, exported.UID)
	assert.Len(t, exported.WorkSessions, 1)

	rr = do(t, srv, http.MethodPost, "/api/import", `{"uid":"someone-else","hourlyRate":1,"workSessions":{}}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), workdata.MsgCrossAccount)

	rr = do(t, srv, http.MethodPost, "/api/import", `{"hourlyRate":10,"workSessions":{"not-a-date":{}}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/import", mustJSON(t, exported))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestYearAggregatesWithMonthBound(t *testing.T) {
	srv := newTestServerWith(t, auth.Config{}, workdata.Options{MaxMonths: 3})
	setUp(t, srv)

	for m := 1; m <= 12; m++ {
		path := fmt.Sprintf("/api/sessions/2024-%02d-15", m)
		rr := do(t, srv, http.MethodPut, path, `{"shift1":{"start":"09:00","end":"17:00"},"shift2":{"start":"","end":""}}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := do(t, srv, http.MethodGet, "/api/summary/annual/2024", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	annual := decode[summary.AnnualReport](t, rr)
	assert.InDelta(t, 960, annual.Total, 0.001)
	assert.InDelta(t, 80, annual.Months[0].Earnings, 0.001)

	rr = do(t, srv, http.MethodPost, "/api/reports", `{"start":"2024-01-01","end":"2024-12-31"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	report := decode[core.WorkerReport](t, rr)
	assert.Len(t, report.WorkSessions, 12)
	assert.InDelta(t, 960, report.TotalEarnings, 0.001)
}

func TestProfileGuardWithoutProfile(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	store := srv.registry.For(context.Background(), devUser)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/summary/monthly", nil)
	assert.Nil(t, srv.profileOf(rr, req, store))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "profile setup required")
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestBadPathParams(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/months/2024/13"},
		{http.MethodGet, "/api/months/abc/1"},
		{http.MethodGet, "/api/summary/2024/0"},
		{http.MethodGet, "/api/summary/annual/12"},
		{http.MethodPost, "/api/sessions/2024-02-30/paid"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(t, srv, tt.method, tt.path, "").Code)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, auth.Config{Secret: "0123456789abcdef0123", TokenTTL: time.Hour})

	rr := do(t, srv, http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := srv.auth.Mint(core.User{ID: "uid-9", DisplayName: "Bea"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Bea", decode[profileResponse](t, rr).Setup.WorkerName)
}

func TestSignOutReleasesStore(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	do(t, srv, http.MethodGet, "/api/profile", "")
	assert.Equal(t, 1, srv.registry.Len())

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodPost, "/api/signout", "").Code)
	assert.Equal(t, 0, srv.registry.Len())
}

func TestSuspiciousRequestRejected(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	rr := do(t, srv, http.MethodGet, "/.env", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.EqualValues(t, 1, srv.metrics.suspiciousRequests)
}
