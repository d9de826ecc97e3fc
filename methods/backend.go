/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/nethesis/audit-tracker-web/backend"
)

var (
	backendMu     sync.RWMutex
	backendClient *backend.Client
)

// InitBackend sets the client every handler uses to reach the audit backend.
func InitBackend(client *backend.Client) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendClient = client
}

// SetBackendForTest swaps the backend client and returns a restore func.
func SetBackendForTest(client *backend.Client) func() {
	backendMu.Lock()
	previous := backendClient
	backendClient = client
	backendMu.Unlock()

	return func() {
		backendMu.Lock()
		backendClient = previous
		backendMu.Unlock()
	}
}

func getBackend() *backend.Client {
	backendMu.RLock()
	client := backendClient
	backendMu.RUnlock()

	if client == nil {
		client = backend.NewFromConfig()
		InitBackend(client)
	}
	return client
}

// isHTMXRequest reports whether the request was issued by htmx and expects
// a fragment rather than a full page.
func isHTMXRequest(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
