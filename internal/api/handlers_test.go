// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/datagate/datagate/internal/auth"
	"github.com/datagate/datagate/internal/database"
	"github.com/datagate/datagate/internal/models"
)

type mockStore struct {
	defaultTable string
	rows         []models.Record
	err          error

	gotTable string
	gotLimit int
}

func (m *mockStore) DefaultTable() string { return m.defaultTable }

func (m *mockStore) FetchRows(_ context.Context, table string, limit int) ([]models.Record, error) {
	m.gotTable = table
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.QueryResponse {
	t.Helper()
	var resp models.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestGetDataSuccess(t *testing.T) {
	store := &mockStore{
		defaultTable: "events",
		rows: []models.Record{
			{"id": 1, "name": "a"},
			{"id": 2, "name": "b"},
			{"id": 3, "name": "c"},
		},
	}
	h := NewHandler(store, nil, 5, 1000, "test")

	req := httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.GetData(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	if resp.Message != "success" || resp.Code != 200 {
		t.Errorf("envelope = {message: %q, code: %d}, want {success, 200}", resp.Message, resp.Code)
	}
	if len(resp.Data) != 3 {
		t.Errorf("data length = %d, want 3", len(resp.Data))
	}
	if store.gotTable != "events" || store.gotLimit != 5 {
		t.Errorf("store call = (%q, %d), want (events, 5)", store.gotTable, store.gotLimit)
	}
}

func TestGetDataEmptyBodyUsesDefaults(t *testing.T) {
	store := &mockStore{defaultTable: "events"}
	h := NewHandler(store, nil, 5, 1000, "test")

	req := httptest.NewRequest(http.MethodPost, "/get_data", nil)
	rec := httptest.NewRecorder()
	h.GetData(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.gotTable != "events" || store.gotLimit != 5 {
		t.Errorf("store call = (%q, %d), want (events, 5)", store.gotTable, store.gotLimit)
	}
}

func TestGetDataZeroRowsReturnsEmptyArray(t *testing.T) {
	store := &mockStore{defaultTable: "events", rows: []models.Record{}}
	h := NewHandler(store, nil, 5, 1000, "test")

	req := httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.GetData(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("body = %q, want data to be an empty array", rec.Body.String())
	}
}

func TestGetDataOverrides(t *testing.T) {
	store := &mockStore{defaultTable: "events", rows: []models.Record{{"id": 1}}}
	h := NewHandler(store, nil, 5, 1000, "test")

	body := `{"source_table": "metrics_hourly", "limit": 50}`
	req := httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.GetData(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.gotTable != "metrics_hourly" || store.gotLimit != 50 {
		t.Errorf("store call = (%q, %d), want (metrics_hourly, 50)", store.gotTable, store.gotLimit)
	}
}

func TestGetDataStoreErrorReturnsErrorEnvelope(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"query error", &database.QueryError{Table: "events", Operation: "query", Err: errors.New("boom")}},
		{"table not allowed", database.ErrTableNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{defaultTable: "events", err: tt.err}
			h := NewHandler(store, nil, 5, 1000, "test")

			req := httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			h.GetData(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			resp := decodeEnvelope(t, rec)
			if resp.Message != "error" || resp.Code != 400 {
				t.Errorf("envelope = {message: %q, code: %d}, want {error, 400}", resp.Message, resp.Code)
			}
			if !strings.Contains(rec.Body.String(), `"data":null`) {
				t.Errorf("body = %q, want data to be null", rec.Body.String())
			}
		})
	}
}

func TestGetDataValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"limit too large", `{"limit": 1001}`},
		{"limit zero", `{"limit": 0}`},
		{"negative start index", `{"start_index": -1}`},
		{"negative end index", `{"end_index": -5}`},
		{"bad start date", `{"start_date": "not-a-date"}`},
		{"table name too long", `{"source_table": "` + strings.Repeat("x", 129) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{defaultTable: "events"}
			h := NewHandler(store, nil, 5, 1000, "test")

			req := httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.GetData(rec, req)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422 (body %q)", rec.Code, rec.Body.String())
			}

			var apiErr models.APIError
			if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if apiErr.Code != "VALIDATION_ERROR" {
				t.Errorf("error code = %q, want VALIDATION_ERROR", apiErr.Code)
			}
		})
	}
}

func TestGetDataConfiguredMaxLimit(t *testing.T) {
	store := &mockStore{defaultTable: "events", rows: []models.Record{{"id": 1}}}
	h := NewHandler(store, nil, 5, 50, "test")

	req := httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(`{"limit": 999}`))
	rec := httptest.NewRecorder()
	h.GetData(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %q)", rec.Code, rec.Body.String())
	}

	var apiErr models.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("error code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "50") {
		t.Errorf("message = %q, want configured cap mentioned", apiErr.Message)
	}
	if store.gotTable != "" {
		t.Error("store was queried despite rejected limit")
	}

	// At or below the configured cap passes.
	req = httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(`{"limit": 50}`))
	rec = httptest.NewRecorder()
	h.GetData(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if store.gotLimit != 50 {
		t.Errorf("store limit = %d, want 50", store.gotLimit)
	}
}

func TestGetDataMalformedJSON(t *testing.T) {
	store := &mockStore{defaultTable: "events"}
	h := NewHandler(store, nil, 5, 1000, "test")

	req := httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.GetData(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var apiErr models.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != "INVALID_REQUEST" {
		t.Errorf("error code = %q, want INVALID_REQUEST", apiErr.Code)
	}
}

func TestGetDataAcceptedUnusedRangeParams(t *testing.T) {
	store := &mockStore{defaultTable: "events", rows: []models.Record{{"id": 1}}}
	h := NewHandler(store, nil, 5, 1000, "test")

	body := `{"start_index": 0, "end_index": 100, "start_date": "2026-01-01", "end_date": "2026-06-30"}`
	req := httptest.NewRequest(http.MethodPost, "/get_data", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.GetData(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	// Range params are accepted but never narrow the query.
	if store.gotTable != "events" || store.gotLimit != 5 {
		t.Errorf("store call = (%q, %d), want (events, 5)", store.gotTable, store.gotLimit)
	}
}

func TestWhoAmI(t *testing.T) {
	h := NewHandler(&mockStore{defaultTable: "events"}, nil, 5, 1000, "test")

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	ctx := context.WithValue(req.Context(), auth.ClaimsContextKey, &auth.Claims{Username: "admin"})
	rec := httptest.NewRecorder()
	h.WhoAmI(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp models.IdentityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Username != "admin" {
		t.Errorf("username = %q, want admin", resp.Username)
	}
}

func TestWhoAmIWithoutClaims(t *testing.T) {
	h := NewHandler(&mockStore{defaultTable: "events"}, nil, 5, 1000, "test")

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	h.WhoAmI(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantState  string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"degraded", errors.New("connection refused"), http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&mockStore{defaultTable: "events"}, &mockPinger{err: tt.pingErr}, 5, 1000, "test")

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			h.Health(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp models.HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("health status = %q, want %q", resp.Status, tt.wantState)
			}
		})
	}
}
