/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/audit-tracker-web/store"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope
}

func TestGetAuditsReturnsEnvelope(t *testing.T) {
	newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(auditsJSON))
	})
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audits", nil))

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, float64(200), envelope["code"])

	data := envelope["data"].(map[string]interface{})
	audits := data["audits"].([]interface{})
	require.Len(t, audits, 2)
	first := audits[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, "ISO 9001", first["title"])
}

func TestAPIDoesNotOpenViewerSessions(t *testing.T) {
	newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(auditsJSON))
	})
	router := newTestRouter()
	before := store.CountSessions()

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audits", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Result().Cookies())
	}

	assert.Equal(t, before, store.CountSessions())
}

func TestGetAuditsReportsTransportFailure(t *testing.T) {
	_, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audits", nil))

	require.Equal(t, http.StatusBadGateway, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "transport", data["kind"])
}

func TestGetFindingsReportsBackendStatus(t *testing.T) {
	newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"reason":"no such audit"}}`))
	})
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/findings/99", nil))

	require.Equal(t, http.StatusBadGateway, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "status", data["kind"])
	assert.Equal(t, float64(404), data["backend_status"])
	assert.Equal(t, "no such audit", data["backend_error"].(map[string]interface{})["error.reason"])
}

func TestGetFindingsKeepsIDKind(t *testing.T) {
	fb, _ := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"F-1","description":"d","severity":"Low","status":"Open"}]`))
	})
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/findings/A-2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "A-2", data["audit_id"])
	assert.Equal(t, "F-1", data["findings"].([]interface{})[0].(map[string]interface{})["id"])
	assert.Equal(t, "/findings/A-2", fb.recorded()[0].Path)
}

func TestGetCapas(t *testing.T) {
	newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":3,"action":"Fix","assignee":"J. Doe","due_date":"2024-01-15","status":"Open"}]`))
	})
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/capas/7", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(7), data["finding_id"])
	assert.Len(t, data["capas"], 1)
}

func TestPostCapaCreates(t *testing.T) {
	fb, _ := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"CAPA created"}`))
	})
	noFanout(t)
	recordJournal(t)
	router := newTestRouter()

	body := `{"finding_id":7,"action":"Fix leak","assignee":"J. Doe","due_date":"2024-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/capas", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, "CAPA created", envelope["message"])
	assert.Equal(t, body, fb.recorded()[0].Body)
}

func TestPostCapaRejectsInvalidPayload(t *testing.T) {
	cases := map[string]string{
		"missing finding": `{"action":"Fix leak","assignee":"J. Doe","due_date":"2024-01-15"}`,
		"bad date":        `{"finding_id":7,"action":"Fix leak","assignee":"J. Doe","due_date":"tomorrow"}`,
		"blank assignee":  `{"finding_id":7,"action":"Fix leak","assignee":"   ","due_date":"2024-01-15"}`,
		"not json":        `finding_id=7`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fb, _ := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
			})
			router := newTestRouter()

			req := httptest.NewRequest(http.MethodPost, "/api/capas", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, fb.recorded())
		})
	}
}

func TestPostCapaTrimsBeforeValidating(t *testing.T) {
	fb, _ := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	noFanout(t)
	recordJournal(t)
	router := newTestRouter()

	body := `{"finding_id":"F-9","action":" Label tanks","assignee":"A. Smith ","due_date":" 2024-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/capas", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, `{"finding_id":"F-9","action":"Label tanks","assignee":"A. Smith","due_date":"2024-03-01"}`, fb.recorded()[0].Body)
}

func TestPostCapaReportsBackendFailure(t *testing.T) {
	newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	noFanout(t)
	recordJournal(t)
	router := newTestRouter()

	body := `{"finding_id":7,"action":"Fix leak","assignee":"J. Doe","due_date":"2024-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/capas", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeEnvelope(t, w)["message"], "CAPA not created")
}

func TestGetJournalDisabled(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/journal", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetJournalFiltersByFinding(t *testing.T) {
	var gotFinding string
	var gotLimit int
	restore := store.SetListSubmissionsFuncForTest(func(_ context.Context, findingID string, limit int) ([]store.JournalEntry, error) {
		gotFinding = findingID
		gotLimit = limit
		return []store.JournalEntry{{ID: 1, FindingID: findingID, Outcome: store.OutcomeCreated, CreatedAt: time.Now()}}, nil
	})
	defer restore()
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/journal?finding_id=7&limit=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", gotFinding)
	assert.Equal(t, 5, gotLimit)
	entries := decodeEnvelope(t, w)["data"].(map[string]interface{})["entries"].([]interface{})
	assert.Len(t, entries, 1)
}

func TestGetJournalRejectsBadLimit(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/journal?limit=many", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
