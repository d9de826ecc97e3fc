/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

// Audit is a scheduled review event as returned by GET /audits.
type Audit struct {
	ID         ID     `json:"id" structs:"id"`
	Title      string `json:"title" structs:"title"`
	Department string `json:"department" structs:"department"`
	Date       string `json:"date" structs:"date"`
	Status     string `json:"status" structs:"status"`
}

// Finding is a deficiency recorded during an audit, as returned by
// GET /findings/{auditId}. The owning audit is only known from the request.
type Finding struct {
	ID          ID     `json:"id" structs:"id"`
	Description string `json:"description" structs:"description"`
	Severity    string `json:"severity" structs:"severity"`
	Status      string `json:"status" structs:"status"`
}

// Capa is a corrective/preventive action already recorded for a finding.
type Capa struct {
	ID       ID     `json:"id" structs:"id"`
	Action   string `json:"action" structs:"action"`
	Assignee string `json:"assignee" structs:"assignee"`
	DueDate  string `json:"due_date" structs:"due_date"`
	Status   string `json:"status" structs:"status"`
}

// CapaSubmission is the body posted to /capas. Field order is part of the
// wire contract.
type CapaSubmission struct {
	FindingID ID     `json:"finding_id" structs:"finding_id"`
	Action    string `json:"action" structs:"action"`
	Assignee  string `json:"assignee" structs:"assignee"`
	DueDate   string `json:"due_date" structs:"due_date"`
}

// BackendMessage is the acknowledgment or error body sent by the backend.
type BackendMessage struct {
	Message    string `json:"message,omitempty" structs:"message"`
	Error      string `json:"error,omitempty" structs:"error"`
	StatusCode int    `json:"-" structs:"-"`
}
