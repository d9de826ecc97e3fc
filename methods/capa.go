/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nethesis/audit-tracker-web/backend"
	"github.com/nethesis/audit-tracker-web/logs"
	"github.com/nethesis/audit-tracker-web/models"
	"github.com/nethesis/audit-tracker-web/mqtt"
	"github.com/nethesis/audit-tracker-web/render"
	"github.com/nethesis/audit-tracker-web/socket"
	"github.com/nethesis/audit-tracker-web/store"
)

// CapaResultEvent is the htmx event raised in the browser once a submission
// settles. The page turns it into a blocking alert.
const CapaResultEvent = "capa-result"

const journalTimeout = 5 * time.Second

// CapaForm holds the three trimmed inputs of a CAPA submission and their rules.
type CapaForm struct {
	Action   string `form:"action" binding:"required"`
	Assignee string `form:"assignee" binding:"required"`
	DueDate  string `form:"due_date" binding:"required,datetime=2006-01-02"`
}

var formFieldNames = map[string]string{
	"Action":   "action",
	"Assignee": "assignee",
	"DueDate":  "due_date",
}

// announceFunc is swapped by tests to observe fanout.
var announceFunc = announceCapa

// SubmitCapa reads the three form fields, posts the CAPA to the backend and
// answers with the acknowledgment plus a reset form. Invalid input never
// reaches the backend.
func SubmitCapa(c *gin.Context) {
	findingID := models.ParseID(c.Param("findingId"))

	form := newCapaForm(c.PostForm("action"), c.PostForm("assignee"), c.PostForm("due_date"))
	values := render.CapaValues{
		Action:   form.Action,
		Assignee: form.Assignee,
		DueDate:  form.DueDate,
	}

	if message := validationMessage(binding.Validator.ValidateStruct(&form)); message != "" {
		result := render.ValidationResult(message)
		c.HTML(http.StatusUnprocessableEntity, render.CapaFormTemplate, render.CapaForm(findingID, values, &result))
		return
	}

	submission := models.CapaSubmission{
		FindingID: findingID,
		Action:    values.Action,
		Assignee:  values.Assignee,
		DueDate:   values.DueDate,
	}

	_, err := createCapa(c, submission)
	result := render.CapaResult(err)
	setCapaResultTrigger(c, result.Message)

	if err != nil {
		// the values stay so the user can resubmit by hand
		c.HTML(http.StatusBadGateway, render.CapaFormTemplate, render.CapaForm(findingID, values, &result))
		return
	}

	c.HTML(http.StatusOK, render.CapaFormTemplate, render.CapaForm(findingID, render.CapaValues{}, &result))
}

// createCapa posts the submission, journals the attempt and announces a
// created CAPA to every open page.
func createCapa(c *gin.Context, submission models.CapaSubmission) (*models.BackendMessage, error) {
	ack, err := getBackend().CreateCapa(c.Request.Context(), submission)
	journalSubmission(c, submission, ack, err)

	if err != nil {
		logs.Logf("[ERROR][CAPA] CAPA for finding %s not created (%s): %v", submission.FindingID, backend.Classify(err), err)
		return nil, err
	}

	logs.Logf("[INFO][CAPA] CAPA created for finding %s, assignee %s", submission.FindingID, submission.Assignee)
	go announceFunc(submission)
	return ack, nil
}

func journalSubmission(c *gin.Context, submission models.CapaSubmission, ack *models.BackendMessage, err error) {
	entry := store.JournalEntry{
		ViewerSession: c.GetString("viewer_session_id"),
		FindingID:     submission.FindingID.String(),
		Action:        submission.Action,
		Assignee:      submission.Assignee,
		DueDate:       submission.DueDate,
		Outcome:       store.OutcomeCreated,
		CreatedAt:     time.Now().UTC(),
	}

	var statusErr *backend.StatusError
	switch {
	case err == nil:
		if ack != nil {
			entry.HTTPStatus = ack.StatusCode
			entry.Detail = ack.Message
		}
	case errors.As(err, &statusErr):
		entry.Outcome = store.OutcomeRejected
		entry.HTTPStatus = statusErr.Code
		entry.Detail = statusErr.Detail()
	default:
		entry.Outcome = store.OutcomeFailed
		entry.Detail = err.Error()
	}

	// the journal outlives the browser request
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if err := store.RecordSubmission(ctx, entry); err != nil && !errors.Is(err, store.ErrJournalDisabled) {
		logs.Log("[ERROR][CAPA] Failed to journal submission: " + err.Error())
	}
}

// announceCapa prefers the broker so every instance hears about the CAPA;
// without one the local pages are notified directly.
func announceCapa(submission models.CapaSubmission) {
	if mqtt.IsEnabled() {
		err := mqtt.PublishCapaCreated(submission)
		if err == nil {
			return
		}
		logs.Log("[ERROR][CAPA] Failed to publish capa-created event: " + err.Error())
	}

	socket.BroadcastEvent(models.Event{
		Type:      models.EventCapaCreated,
		Data:      submission,
		Timestamp: time.Now().UTC(),
	})
}

func setCapaResultTrigger(c *gin.Context, message string) {
	trigger, err := json.Marshal(map[string]string{CapaResultEvent: message})
	if err != nil {
		return
	}
	c.Header("HX-Trigger", asciiJSON(trigger))
}

// asciiJSON rewrites non-ASCII runes of encoded JSON as \uXXXX escapes, as
// header values only carry ASCII reliably.
func asciiJSON(encoded []byte) string {
	var b strings.Builder
	for _, r := range string(encoded) {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case r > 0xFFFF:
			high, low := utf16.EncodeRune(r)
			fmt.Fprintf(&b, "\\u%04x\\u%04x", high, low)
		default:
			fmt.Fprintf(&b, "\\u%04x", r)
		}
	}
	return b.String()
}

// newCapaForm trims the inputs so the rules see what would be sent.
func newCapaForm(action, assignee, dueDate string) CapaForm {
	return CapaForm{
		Action:   strings.TrimSpace(action),
		Assignee: strings.TrimSpace(assignee),
		DueDate:  strings.TrimSpace(dueDate),
	}
}

// validationMessage explains why a form cannot be submitted, or returns ""
// when it can.
func validationMessage(err error) string {
	if err == nil {
		return ""
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "CAPA not submitted: " + err.Error()
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		name := formFieldNames[fieldErr.Field()]
		if name == "" {
			name = strings.ToLower(fieldErr.Field())
		}
		switch fieldErr.Tag() {
		case "required":
			problems = append(problems, name+" is required")
		case "datetime":
			problems = append(problems, name+" must be a date (YYYY-MM-DD)")
		default:
			problems = append(problems, name+" is invalid")
		}
	}

	return "CAPA not submitted: " + strings.Join(problems, ", ") + "."
}
