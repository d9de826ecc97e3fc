/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nethesis/audit-tracker-web/logs"
	"github.com/nethesis/audit-tracker-web/middleware"
	"github.com/nethesis/audit-tracker-web/models"
	"github.com/nethesis/audit-tracker-web/render"
)

const pageTitle = "Audit Tracker"

// Index serves the page shell. The audits container loads itself once the
// page is in the browser.
func Index(c *gin.Context) {
	c.HTML(http.StatusOK, render.PageTemplate, render.PageView{Title: pageTitle})
}

// AuditsFragment loads the audit list into #audits and empties
// #findings-container.
func AuditsFragment(c *gin.Context) {
	session := middleware.GetViewerSession(c)
	seq := session.Begin(render.AuditsContainerID)
	// findings still in flight belong to the list being replaced
	session.Begin(render.FindingsContainerID)

	audits, err := getBackend().ListAudits(c.Request.Context())
	if !session.IsLatest(render.AuditsContainerID, seq) {
		logs.Logf("[INFO][UI] Dropping stale audits response for session %s", session.ID)
		c.Status(http.StatusNoContent)
		return
	}

	if err != nil {
		view := render.AuditListError(err)
		writeView(c, http.StatusBadGateway, render.AuditsTemplate, view, render.PageView{Audits: &view})
		return
	}

	view := render.AuditList(audits)
	writeView(c, http.StatusOK, render.AuditsTemplate, view, render.PageView{Audits: &view})
}

// FindingsFragment loads the findings of one audit into #findings-container.
// A response overtaken by a newer findings request is answered with 204 so
// the browser keeps the newer render.
func FindingsFragment(c *gin.Context) {
	auditID := models.ParseID(c.Param("auditId"))
	session := middleware.GetViewerSession(c)
	seq := session.Begin(render.FindingsContainerID)

	findings, err := getBackend().ListFindings(c.Request.Context(), auditID)
	if !session.IsLatest(render.FindingsContainerID, seq) {
		logs.Logf("[INFO][UI] Dropping stale findings response for audit %s, session %s", auditID, session.ID)
		c.Status(http.StatusNoContent)
		return
	}

	status := http.StatusOK
	var view render.FindingListView
	if err != nil {
		status = http.StatusBadGateway
		view = render.FindingListError(auditID, err)
	} else {
		view = render.FindingList(auditID, findings)
	}

	if isHTMXRequest(c) {
		c.HTML(status, render.FindingsTemplate, view)
		return
	}

	// a full page carries the audit list too, so it does not reload itself
	// and clear these findings
	audits := auditListFor(c)
	writeView(c, status, render.FindingsTemplate, view, render.PageView{Audits: &audits, Findings: &view})
}

func auditListFor(c *gin.Context) render.AuditListView {
	audits, err := getBackend().ListAudits(c.Request.Context())
	if err != nil {
		return render.AuditListError(err)
	}
	return render.AuditList(audits)
}

// CapasFragment lists the CAPAs already recorded for a finding.
func CapasFragment(c *gin.Context) {
	findingID := models.ParseID(c.Param("findingId"))

	capas, err := getBackend().ListCapas(c.Request.Context(), findingID)
	if err != nil {
		c.HTML(http.StatusBadGateway, render.CapasTemplate, render.CapaListError(findingID, err))
		return
	}

	c.HTML(http.StatusOK, render.CapasTemplate, render.CapaList(findingID, capas))
}

// writeView answers htmx with the fragment and plain navigation with the
// whole page wrapped around it.
func writeView(c *gin.Context, status int, fragmentTemplate string, fragment interface{}, page render.PageView) {
	if isHTMXRequest(c) {
		c.HTML(status, fragmentTemplate, fragment)
		return
	}

	page.Title = pageTitle
	c.HTML(status, render.PageTemplate, page)
}
