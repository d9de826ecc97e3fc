/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nethesis/audit-tracker-web/logs"
	"github.com/nethesis/audit-tracker-web/models"
	"github.com/nethesis/audit-tracker-web/render"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: sameOrigin,
}

var (
	noticeTemplates     *template.Template
	noticeTemplatesErr  error
	noticeTemplatesOnce sync.Once
)

// WsHandler upgrades the page connection and keeps it registered until the
// browser goes away. Pages only listen; anything they send is discarded.
func WsHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Log("[ERROR][WS] WebSocket upgrade failed: " + err.Error())
		return
	}
	defer conn.Close()

	viewer := &ViewerConnection{SessionID: c.GetString("viewer_session_id")}
	connManager.AddConnection(conn, viewer)
	defer connManager.RemoveConnection(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ForwardEvents broadcasts every event received on ch until it is closed.
func ForwardEvents(ch <-chan models.Event) {
	for event := range ch {
		BroadcastEvent(event)
	}
}

// BroadcastEvent renders the notice of event and pushes it to every page.
func BroadcastEvent(event models.Event) int {
	if event.Type != models.EventCapaCreated {
		return 0
	}

	notice, err := RenderNotice(event.Data)
	if err != nil {
		logs.Log("[ERROR][WS] Failed to render notice: " + err.Error())
		return 0
	}

	return connManager.Broadcast(notice)
}

// RenderNotice draws the out-of-band fragment announcing a created CAPA.
func RenderNotice(submission models.CapaSubmission) ([]byte, error) {
	noticeTemplatesOnce.Do(func() {
		noticeTemplates, noticeTemplatesErr = render.Templates()
	})
	if noticeTemplatesErr != nil {
		return nil, noticeTemplatesErr
	}

	var buf bytes.Buffer
	if err := noticeTemplates.ExecuteTemplate(&buf, render.NoticeTemplate, submission); err != nil {
		return nil, fmt.Errorf("render notice: %w", err)
	}
	return buf.Bytes(), nil
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return parsed.Host == r.Host
}
