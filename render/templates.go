/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package render

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names accepted by gin's c.HTML.
const (
	PageTemplate     = "page.html"
	AuditsTemplate   = "audits.html"
	FindingsTemplate = "findings.html"
	CapaFormTemplate = "capa_form.html"
	CapasTemplate    = "capas.html"
	NoticeTemplate   = "notice.html"
)

// Templates parses the embedded page and fragment templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// MustTemplates is like Templates but panics on a parse error.
func MustTemplates() *template.Template {
	return template.Must(Templates())
}
