/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

// Package backend is the HTTP client of the audit-management API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nethesis/audit-tracker-web/configuration"
	"github.com/nethesis/audit-tracker-web/logs"
	"github.com/nethesis/audit-tracker-web/models"
)

// Client calls the audit backend rooted at a single base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL (scheme and host, no trailing slash).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewFromConfig creates a client from the loaded configuration.
func NewFromConfig() *Client {
	return NewClient(configuration.Config.BaseURL, configuration.Config.BackendTimeout)
}

// BaseURL returns the backend origin this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// ListAudits fetches every audit.
func (c *Client) ListAudits(ctx context.Context) ([]models.Audit, error) {
	audits := []models.Audit{}
	if err := c.getJSON(ctx, "/audits", &audits); err != nil {
		return nil, err
	}
	return audits, nil
}

// ListFindings fetches the findings of one audit. The id is sent back exactly
// as it was received.
func (c *Client) ListFindings(ctx context.Context, auditID models.ID) ([]models.Finding, error) {
	findings := []models.Finding{}
	if err := c.getJSON(ctx, "/findings/"+url.PathEscape(auditID.String()), &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// ListCapas fetches the CAPAs already recorded for a finding.
func (c *Client) ListCapas(ctx context.Context, findingID models.ID) ([]models.Capa, error) {
	capas := []models.Capa{}
	if err := c.getJSON(ctx, "/capas/"+url.PathEscape(findingID.String()), &capas); err != nil {
		return nil, err
	}
	return capas, nil
}

// CreateCapa posts a CAPA for a finding. Only a 2xx answer is a success; the
// acknowledgment body is read when it is JSON and ignored otherwise.
func (c *Client) CreateCapa(ctx context.Context, submission models.CapaSubmission) (*models.BackendMessage, error) {
	payload, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("encode capa: %w", err)
	}

	body, code, err := c.do(ctx, http.MethodPost, "/capas", payload)
	if err != nil {
		return nil, err
	}

	ack := &models.BackendMessage{StatusCode: code}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, ack); err != nil {
			logs.Log("[WARNING][BACKEND] capa acknowledgment is not JSON: " + err.Error())
		}
	}
	return ack, nil
}

// Ping checks that the backend root answers.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.do(ctx, http.MethodGet, "/", nil)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, _, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		decodeErr := &DecodeError{URL: c.baseURL + path, Err: err}
		logs.Log("[ERROR][BACKEND] " + decodeErr.Error())
		return decodeErr
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	target := c.baseURL + path

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, &TransportError{Method: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		transportErr := &TransportError{Method: method, URL: target, Err: err}
		logs.Log("[ERROR][BACKEND] " + transportErr.Error())
		return nil, 0, transportErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		transportErr := &TransportError{Method: method, URL: target, Err: err}
		logs.Log("[ERROR][BACKEND] " + transportErr.Error())
		return nil, 0, transportErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := newStatusError(method, target, resp.StatusCode, body)
		logs.Log("[ERROR][BACKEND] " + statusErr.Error())
		return nil, resp.StatusCode, statusErr
	}

	return body, resp.StatusCode, nil
}
