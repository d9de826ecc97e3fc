/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nethesis/audit-tracker-web/backend"
	"github.com/nethesis/audit-tracker-web/db"
	"github.com/nethesis/audit-tracker-web/mqtt"
	"github.com/nethesis/audit-tracker-web/socket"
	"github.com/nethesis/audit-tracker-web/store"
)

const healthTimeout = 2 * time.Second

var journalHealthFunc = db.HealthCheck

// Health reports the process state and whether the backend answers.
func Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"message":  "healthy",
		"status":   "ok",
		"backend":  "ok",
		"journal":  "disabled",
		"mqtt":     "disabled",
		"sessions": store.CountSessions(),
		"sockets":  socket.GetConnectionManager().Count(),
	}

	if err := getBackend().Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["message"] = "audit backend unavailable"
		body["status"] = "degraded"
		body["backend"] = backend.Classify(err).String()
	}

	if db.GetDB() != nil {
		body["journal"] = "ok"
		if err := journalHealthFunc(); err != nil {
			body["journal"] = "unreachable"
		}
	}

	if mqtt.IsEnabled() {
		body["mqtt"] = "configured"
	}

	c.JSON(status, body)
}
