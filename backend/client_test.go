/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/audit-tracker-web/logs"
	"github.com/nethesis/audit-tracker-web/models"
)

func TestMain(m *testing.M) {
	logs.Init("backend-tests")
	os.Exit(m.Run())
}

type recordedRequest struct {
	Method      string
	Path        string
	RawPath     string
	ContentType string
	Body        string
}

type fakeBackend struct {
	mutex    sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func newFakeBackend(t *testing.T, handler http.HandlerFunc) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{handler: handler}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mutex.Lock()
		fb.requests = append(fb.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawPath:     r.URL.EscapedPath(),
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(body),
		})
		fb.mutex.Unlock()
		fb.handler(w, r)
	}))
	t.Cleanup(server.Close)
	return fb, server
}

func (fb *fakeBackend) recorded() []recordedRequest {
	fb.mutex.Lock()
	defer fb.mutex.Unlock()
	return append([]recordedRequest(nil), fb.requests...)
}

func TestListAudits(t *testing.T) {
	_, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"title":"ISO 9001","department":"Quality","date":"2024-01-10","status":"Pending"},
			{"id":2,"title":"Safety walk","department":"Ops","date":"2024-02-01","status":"Completed"}]`))
	})

	client := NewClient(server.URL+"/", time.Second)
	audits, err := client.ListAudits(context.Background())

	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, "ISO 9001", audits[0].Title)
	assert.Equal(t, "Quality", audits[0].Department)
	assert.Equal(t, "2024-01-10", audits[0].Date)
	assert.Equal(t, "Pending", audits[0].Status)
	assert.Equal(t, "2", audits[1].ID.String())
}

func TestListAuditsEmptyArray(t *testing.T) {
	_, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	audits, err := NewClient(server.URL, time.Second).ListAudits(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, audits)
	assert.Len(t, audits, 0)
}

func TestListFindingsUsesAuditIDVerbatim(t *testing.T) {
	fb, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":7,"description":"Leak in line 3","severity":"Major","status":"Open"}]`))
	})
	client := NewClient(server.URL, time.Second)

	findings, err := client.ListFindings(context.Background(), models.ParseID("42"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "Leak in line 3", findings[0].Description)

	_, err = client.ListFindings(context.Background(), models.StringID("AUD 9/b"))
	require.NoError(t, err)

	requests := fb.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "/findings/42", requests[0].Path)
	assert.Equal(t, "/findings/AUD%209%2Fb", requests[1].RawPath)
}

func TestCreateCapaBody(t *testing.T) {
	fb, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"CAPA Successfully Created"}`))
	})

	ack, err := NewClient(server.URL, time.Second).CreateCapa(context.Background(), models.CapaSubmission{
		FindingID: models.NumericID(7),
		Action:    "Fix leak",
		Assignee:  "J. Doe",
		DueDate:   "2024-01-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "CAPA Successfully Created", ack.Message)

	requests := fb.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, "/capas", requests[0].Path)
	assert.Equal(t, "application/json", requests[0].ContentType)
	assert.Equal(t, `{"finding_id":7,"action":"Fix leak","assignee":"J. Doe","due_date":"2024-01-15"}`, requests[0].Body)
}

func TestCreateCapaIgnoresNonJSONAcknowledgment(t *testing.T) {
	_, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`created`))
	})

	ack, err := NewClient(server.URL, time.Second).CreateCapa(context.Background(), models.CapaSubmission{FindingID: models.NumericID(1)})
	require.NoError(t, err)
	assert.Empty(t, ack.Message)
}

func TestCreateCapaServerErrorIsFailure(t *testing.T) {
	_, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database locked"}`))
	})

	_, err := NewClient(server.URL, time.Second).CreateCapa(context.Background(), models.CapaSubmission{FindingID: models.NumericID(7)})
	require.Error(t, err)
	assert.Equal(t, KindStatus, Classify(err))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "database locked", statusErr.Detail())
}

func TestStatusErrorFlattensNestedBody(t *testing.T) {
	statusErr := newStatusError(http.MethodGet, "http://backend/audits", http.StatusBadRequest,
		[]byte(`{"errors":{"title":"missing"},"code":400}`))

	assert.Equal(t, "missing", statusErr.Fields["errors.title"])
	assert.Equal(t, "code=400 errors.title=missing", statusErr.Detail())
}

func TestStatusErrorWithPlainBody(t *testing.T) {
	statusErr := newStatusError(http.MethodGet, "http://backend/audits", http.StatusNotFound, []byte("<h1>Not Found</h1>"))

	assert.Nil(t, statusErr.Fields)
	assert.Equal(t, "<h1>Not Found</h1>", statusErr.Detail())
	assert.Contains(t, statusErr.Error(), "backend answered 404")
}

func TestStatusErrorTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxDetailBytes-1) + "èèè"
	statusErr := newStatusError(http.MethodGet, "http://backend/audits", http.StatusBadGateway, []byte(body))

	detail := statusErr.Detail()
	assert.True(t, utf8.ValidString(detail))
	assert.Equal(t, strings.Repeat("a", maxDetailBytes-1), detail)
}

func TestListAuditsMalformedJSON(t *testing.T) {
	_, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	})

	_, err := NewClient(server.URL, time.Second).ListAudits(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindDecode, Classify(err))
}

func TestListAuditsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second).ListAudits(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindTransport, Classify(err))
}

func TestListCapas(t *testing.T) {
	fb, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":3,"action":"Replace seal","assignee":"M. Rossi","due_date":"2024-03-01","status":"In Progress"}]`))
	})

	capas, err := NewClient(server.URL, time.Second).ListCapas(context.Background(), models.ParseID("7"))
	require.NoError(t, err)
	require.Len(t, capas, 1)
	assert.Equal(t, "Replace seal", capas[0].Action)
	assert.Equal(t, "/capas/7", fb.recorded()[0].Path)
}

func TestPing(t *testing.T) {
	_, server := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"message":"Audit Tracker API is Running"}`))
	})

	assert.NoError(t, NewClient(server.URL, time.Second).Ping(context.Background()))
}

func TestClassifyUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(nil))
	assert.Equal(t, KindUnknown, Classify(io.EOF))
	assert.Equal(t, "transport", KindTransport.String())
}
