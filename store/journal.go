/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/nethesis/audit-tracker-web/db"
	"github.com/nethesis/audit-tracker-web/logs"
)

// Submission outcomes recorded in the journal.
const (
	OutcomeCreated  = "created"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var ErrJournalDisabled = errors.New("submission journal disabled")

// JournalEntry is one CAPA submission attempt.
type JournalEntry struct {
	ID            int64     `json:"id" structs:"id"`
	ViewerSession string    `json:"viewer_session" structs:"viewer_session"`
	FindingID     string    `json:"finding_id" structs:"finding_id"`
	Action        string    `json:"action" structs:"action"`
	Assignee      string    `json:"assignee" structs:"assignee"`
	DueDate       string    `json:"due_date" structs:"due_date"`
	Outcome       string    `json:"outcome" structs:"outcome"`
	HTTPStatus    int       `json:"http_status" structs:"http_status"`
	Detail        string    `json:"detail" structs:"detail"`
	CreatedAt     time.Time `json:"created_at" structs:"created_at"`
}

var (
	recordSubmissionFunc = recordSubmission
	listSubmissionsFunc  = listSubmissions
)

// SetRecordSubmissionFuncForTest allows tests to override the journal insert.
func SetRecordSubmissionFuncForTest(fn func(context.Context, JournalEntry) error) func() {
	previous := recordSubmissionFunc
	if fn == nil {
		recordSubmissionFunc = recordSubmission
	} else {
		recordSubmissionFunc = fn
	}
	return func() {
		recordSubmissionFunc = previous
	}
}

// SetListSubmissionsFuncForTest allows tests to override the journal query.
func SetListSubmissionsFuncForTest(fn func(context.Context, string, int) ([]JournalEntry, error)) func() {
	previous := listSubmissionsFunc
	if fn == nil {
		listSubmissionsFunc = listSubmissions
	} else {
		listSubmissionsFunc = fn
	}
	return func() {
		listSubmissionsFunc = previous
	}
}

// RecordSubmission appends a submission attempt to the journal.
func RecordSubmission(ctx context.Context, entry JournalEntry) error {
	return recordSubmissionFunc(ctx, entry)
}

// ListSubmissions returns the most recent journal entries, newest first,
// optionally restricted to one finding.
func ListSubmissions(ctx context.Context, findingID string, limit int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return listSubmissionsFunc(ctx, findingID, limit)
}

func recordSubmission(ctx context.Context, entry JournalEntry) error {
	database := db.GetDB()
	if database == nil {
		return ErrJournalDisabled
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := database.ExecContext(ctx, `
		INSERT INTO capa_submissions (
			viewer_session, finding_id, action, assignee, due_date, outcome, http_status, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ViewerSession, entry.FindingID, entry.Action, entry.Assignee, entry.DueDate,
		entry.Outcome, entry.HTTPStatus, entry.Detail, entry.CreatedAt,
	)
	if err != nil {
		logs.Log("[ERROR][JOURNAL] Failed to record submission for finding " + entry.FindingID + ": " + err.Error())
		return err
	}

	return nil
}

func listSubmissions(ctx context.Context, findingID string, limit int) ([]JournalEntry, error) {
	database := db.GetDB()
	if database == nil {
		return nil, ErrJournalDisabled
	}

	query := `SELECT id, viewer_session, finding_id, action, assignee, DATE_FORMAT(due_date, '%Y-%m-%d'),
		outcome, http_status, COALESCE(detail, ''), created_at FROM capa_submissions WHERE true`
	args := []interface{}{}

	if findingID != "" {
		query += " AND finding_id = ?"
		args = append(args, findingID)
	}

	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		logs.Log("[ERROR][JOURNAL] Failed to list submissions: " + err.Error())
		return nil, err
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var entry JournalEntry
		err := rows.Scan(&entry.ID, &entry.ViewerSession, &entry.FindingID, &entry.Action, &entry.Assignee,
			&entry.DueDate, &entry.Outcome, &entry.HTTPStatus, &entry.Detail, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
