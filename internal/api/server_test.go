package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/dispatch"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
	storemocks "github.com/sells-group/visibility-cli/internal/store/mocks"
)

type fakeGateway struct {
	run      *model.Run
	view     *model.RunStatusView
	cooldown *model.CooldownState
	err      error

	gotDomain, gotEmail, gotAccount, gotSub string
}

func (f *fakeGateway) CreateFirstTouchRun(_ context.Context, domain, email string) (*model.Run, error) {
	f.gotDomain, f.gotEmail = domain, email
	return f.run, f.err
}

func (f *fakeGateway) TriggerManual(_ context.Context, accountID, subscriptionID string) (*model.Run, error) {
	f.gotAccount, f.gotSub = accountID, subscriptionID
	return f.run, f.err
}

func (f *fakeGateway) CooldownState(_ context.Context, subscriptionID string) (*model.CooldownState, error) {
	f.gotSub = subscriptionID
	return f.cooldown, f.err
}

func (f *fakeGateway) GetRunStatus(_ context.Context, _ string) (*model.RunStatusView, error) {
	return f.view, f.err
}

func newTestServer(t *testing.T, gw *fakeGateway) (http.Handler, *storemocks.MockStore) {
	t.Helper()
	st := storemocks.NewMockStore(t)
	reg := prometheus.NewRegistry()
	metrics.New(reg).RunStarted("manual")
	srv := NewServer(gw, st, reg, config.ServerConfig{})
	return srv.Router(), st
}

func do(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateScan(t *testing.T) {
	gw := &fakeGateway{run: &model.Run{ID: "run-1", Status: model.RunStatusPending}}
	h, _ := newTestServer(t, gw)

	rec := do(h, http.MethodPost, "/v1/scans", `{"domain":"acme.com","email":"owner@acme.com"}`, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "acme.com", gw.gotDomain)
	assert.Equal(t, "owner@acme.com", gw.gotEmail)
}

func TestCreateScan_BadBody(t *testing.T) {
	h, _ := newTestServer(t, &fakeGateway{})
	rec := do(h, http.MethodPost, "/v1/scans", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateScan_ValidationError(t *testing.T) {
	h, _ := newTestServer(t, &fakeGateway{
		err: &dispatch.ValidationError{Field: "domain", Message: "is not a valid hostname"},
	})
	rec := do(h, http.MethodPost, "/v1/scans", `{"domain":"nope","email":"a@b.com"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "domain", decode(t, rec)["field"])
}

func TestGetRun(t *testing.T) {
	h, _ := newTestServer(t, &fakeGateway{
		view: &model.RunStatusView{RunID: "run-1", Status: model.RunStatusQuerying, Progress: 67},
	})
	rec := do(h, http.MethodGet, "/v1/runs/run-1", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "querying", body["status"])
	assert.Equal(t, float64(67), body["progress"])
	assert.NotContains(t, body, "error")
}

func TestGetRun_NotFound(t *testing.T) {
	h, _ := newTestServer(t, &fakeGateway{err: store.ErrNotFound})
	rec := do(h, http.MethodGet, "/v1/runs/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCooldown(t *testing.T) {
	ends := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	gw := &fakeGateway{cooldown: &model.CooldownState{
		CanTrigger: false, Reason: "cooldown_active", RetryAfterSeconds: 3600, CooldownEndsAt: &ends,
	}}
	h, _ := newTestServer(t, gw)

	rec := do(h, http.MethodGet, "/v1/subscriptions/sub-1/cooldown", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["can_trigger"])
	assert.Equal(t, float64(3600), body["retry_after_seconds"])
	assert.Equal(t, "sub-1", gw.gotSub)
}

func TestCooldown_UnknownSubscription(t *testing.T) {
	h, _ := newTestServer(t, &fakeGateway{err: eris.Wrap(store.ErrNotFound, "dispatch: get subscription")})
	rec := do(h, http.MethodGet, "/v1/subscriptions/missing/cooldown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescan(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:       "accepted",
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "not owner",
			err:        &dispatch.PolicyError{Reason: dispatch.ReasonNotOwner},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "inactive",
			err:        &dispatch.PolicyError{Reason: dispatch.ReasonInactive},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "in flight",
			err:        &dispatch.PolicyError{Reason: dispatch.ReasonInFlight, ExistingRunID: "run-live"},
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "run-live", decode(t, rec)["existing_run_id"])
			},
		},
		{
			name:       "cooldown",
			err:        &dispatch.PolicyError{Reason: dispatch.ReasonCooldownActive, RetryAfter: 90*time.Minute + 500*time.Millisecond},
			wantStatus: http.StatusTooManyRequests,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "5401", rec.Header().Get("Retry-After"))
				assert.Equal(t, float64(5401), decode(t, rec)["retry_after_seconds"])
			},
		},
		{
			name:       "unknown subscription",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store failure",
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{run: &model.Run{ID: "run-2", Status: model.RunStatusPending}, err: tt.err}
			h, _ := newTestServer(t, gw)

			rec := do(h, http.MethodPost, "/v1/subscriptions/sub-1/rescan", "", map[string]string{AccountHeader: "acct-1"})
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "acct-1", gw.gotAccount)
			assert.Equal(t, "sub-1", gw.gotSub)
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestRescan_MissingAccount(t *testing.T) {
	gw := &fakeGateway{}
	h, _ := newTestServer(t, gw)
	rec := do(h, http.MethodPost, "/v1/subscriptions/sub-1/rescan", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, gw.gotSub)
}

func TestGetReport(t *testing.T) {
	h, st := newTestServer(t, &fakeGateway{})
	st.On("GetReportByToken", mock.Anything, "tok123").Return(&model.Report{
		RunID:          "run-1",
		Token:          "tok123",
		Domain:         "acme.com",
		OverallScore:   40,
		Competitors:    []model.CompetitorCount{{Name: "Roto-Rooter", Count: 25}},
		AllCompetitors: []model.CompetitorCount{{Name: "Roto-Rooter", Count: 25}, {Name: "Mr. Rooter", Count: 3}},
	}, nil)

	rec := do(h, http.MethodGet, "/v1/reports/tok123", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(40), body["overall_score"])
	assert.NotContains(t, body, "AllCompetitors")
	assert.Len(t, body["competitors"], 1)
}

func TestGetReport_NotFound(t *testing.T) {
	h, st := newTestServer(t, &fakeGateway{})
	st.On("GetReportByToken", mock.Anything, "nope").Return(nil, store.ErrNotFound)

	rec := do(h, http.MethodGet, "/v1/reports/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	h, st := newTestServer(t, &fakeGateway{})
	st.On("Ping", mock.Anything).Return(nil).Once()
	st.On("Ping", mock.Anything).Return(errors.New("down")).Once()

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/health", "", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &fakeGateway{})
	rec := do(h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "runs_started_total")
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t, &fakeGateway{})
	rec := do(h, http.MethodOptions, "/v1/scans", "", map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
