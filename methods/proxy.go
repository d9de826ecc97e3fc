/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"io"
	"net/http"
	"strings"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"

	"github.com/nethesis/audit-tracker-web/logs"
	"github.com/nethesis/audit-tracker-web/models"
)

// BackendProxyPrefix is the path prefix forwarded verbatim to the backend.
const BackendProxyPrefix = "/backend"

// hop-by-hop headers are never forwarded
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Content-Length":      true,
	"Accept-Encoding":     true,
}

// ProxyBackendRequest forwards a request to the audit backend, so scripts
// can reach endpoints this frontend has no page for.
func ProxyBackendRequest(c *gin.Context, path string) {
	// Extract path from the original request
	if path == "" {
		path = "/"
	}

	upstream := getBackend()
	url := upstream.BaseURL() + path

	// Create a new request
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, url, c.Request.Body)
	if err != nil {
		logs.Log("[ERROR][PROXY] failed to create proxy request: " + err.Error())
		c.JSON(http.StatusInternalServerError, structs.Map(models.StatusInternalServerError{
			Code:    http.StatusInternalServerError,
			Message: "Failed to forward request",
			Data:    nil,
		}))
		return
	}

	// Copy headers from the original request
	for name, values := range c.Request.Header {
		if hopHeaders[http.CanonicalHeaderKey(name)] || strings.EqualFold(name, "Cookie") {
			continue
		}
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	// Copy query parameters
	req.URL.RawQuery = c.Request.URL.RawQuery
	forwardURL := req.URL.String()

	// Create HTTP client with the backend timeout
	client := &http.Client{
		Timeout: upstream.Timeout(),
	}

	// Forward the request
	resp, err := client.Do(req)
	if err != nil {
		logs.Logf("[ERROR][PROXY] request failed method=%s url=%s err=%v", c.Request.Method, forwardURL, err)
		c.JSON(http.StatusBadGateway, structs.Map(models.StatusBadGateway{
			Code:    http.StatusBadGateway,
			Message: "Failed to reach audit backend",
			Data:    nil,
		}))
		return
	}
	defer resp.Body.Close()

	// Check if the backend returned 404 and provide a more complete response
	if resp.StatusCode == http.StatusNotFound {
		c.JSON(http.StatusNotFound, structs.Map(models.StatusNotFound{
			Code:    http.StatusNotFound,
			Message: "API not found",
			Data:    nil,
		}))
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logs.Log("[ERROR][PROXY] failed to read backend response: " + err.Error())
		c.JSON(http.StatusBadGateway, structs.Map(models.StatusBadGateway{
			Code:    http.StatusBadGateway,
			Message: "Failed to process backend response",
			Data:    nil,
		}))
		return
	}

	// Copy response headers
	for name, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, value := range values {
			c.Header(name, value)
		}
	}

	c.Status(resp.StatusCode)
	c.Writer.Write(body)
}

// NotFound handles unknown routes: /backend/* goes to the backend, anything
// else is a 404 envelope.
func NotFound(c *gin.Context) {
	path := c.Request.URL.EscapedPath()
	if path == BackendProxyPrefix || strings.HasPrefix(path, BackendProxyPrefix+"/") {
		ProxyBackendRequest(c, strings.TrimPrefix(path, BackendProxyPrefix))
		return
	}

	c.JSON(http.StatusNotFound, structs.Map(models.StatusNotFound{
		Code:    http.StatusNotFound,
		Message: "API not found",
		Data:    nil,
	}))
}
