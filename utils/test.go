/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package utils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Response is what a browser sees of one htmx exchange.
type Response struct {
	Status  int
	Body    string
	Trigger string
}

// BodyRecorder collects request bodies received by a mock backend.
type BodyRecorder struct {
	mutex  sync.Mutex
	bodies []string
}

func (r *BodyRecorder) Add(body string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.bodies = append(r.bodies, body)
}

func (r *BodyRecorder) All() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]string(nil), r.bodies...)
}

func (r *BodyRecorder) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.bodies = nil
}

// WaitForServer polls url until it answers or the timeout expires.
func WaitForServer(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

// HTMXGet performs a GET the way the page does, with or without htmx headers.
func HTMXGet(t *testing.T, client *http.Client, target string, htmx bool) Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}

	return do(t, client, req)
}

// PostCapaForm submits a CAPA form as htmx would.
func PostCapaForm(t *testing.T, client *http.Client, target, action, assignee, dueDate string) Response {
	t.Helper()

	form := url.Values{
		"action":   {action},
		"assignee": {assignee},
		"due_date": {dueDate},
	}
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")

	return do(t, client, req)
}

func do(t *testing.T, client *http.Client, req *http.Request) Response {
	t.Helper()

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	response := Response{Status: resp.StatusCode, Body: string(body)}

	var trigger map[string]string
	if raw := resp.Header.Get("HX-Trigger"); raw != "" && json.Unmarshal([]byte(raw), &trigger) == nil {
		response.Trigger = trigger["capa-result"]
	}

	return response
}
