/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nethesis/audit-tracker-web/store"
)

const (
	SessionCookieName = "audit_tracker_session"
	sessionContextKey = "viewer_session"
	sessionIDKey      = "viewer_session_id"
)

// ViewerSession attaches the browser's viewer session to the request,
// issuing a cookie for new browsers.
func ViewerSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookieName)

		session, created := store.GetOrCreateSession(id)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, session.ID, 0, "/", "", false, true)
		}

		c.Set(sessionContextKey, session)
		c.Set(sessionIDKey, session.ID)
		c.Next()
	}
}

// GetViewerSession returns the session attached by ViewerSession. Handlers
// mounted without the middleware get a request-scoped session that is never
// stored.
func GetViewerSession(c *gin.Context) *store.ViewerSession {
	if value, ok := c.Get(sessionContextKey); ok {
		if session, ok := value.(*store.ViewerSession); ok {
			return session
		}
	}

	session := store.NewViewerSession()
	c.Set(sessionContextKey, session)
	c.Set(sessionIDKey, session.ID)
	return session
}
