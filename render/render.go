/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

// Package render turns backend records into view models. Nothing here does
// I/O: handlers fetch, render describes, templates draw.
package render

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/nethesis/audit-tracker-web/backend"
	"github.com/nethesis/audit-tracker-web/models"
)

// Fixed identifiers of the two render targets in the page.
const (
	AuditsContainerID   = "audits"
	FindingsContainerID = "findings-container"
)

const CapaCreatedMessage = "CAPA created!"

type AuditEntry struct {
	ID          string
	Title       string
	Department  string
	Date        string
	Status      string
	FindingsURL string
}

type AuditListView struct {
	ContainerID string
	Entries     []AuditEntry
	Error       string
}

type FormField struct {
	Name        string
	Type        string
	Placeholder string
	Value       string
	Required    bool
}

type CapaResultView struct {
	Success bool
	Kind    string
	Message string
}

type CapaFormView struct {
	ElementID string
	FindingID string
	Action    string
	Fields    []FormField
	Result    *CapaResultView
}

type FindingBlock struct {
	ID          string
	Description string
	Severity    string
	Status      string
	CapasURL    string
	Form        CapaFormView
}

type FindingListView struct {
	ContainerID string
	AuditID     string
	Blocks      []FindingBlock
	Error       string
}

type CapaEntry struct {
	ID       string
	Action   string
	Assignee string
	DueDate  string
	Status   string
}

type CapaListView struct {
	FindingID string
	Entries   []CapaEntry
	Error     string
}

// PageView is the full document. Either list may be nil, in which case the
// container is left for the browser to load.
type PageView struct {
	Title    string
	Audits   *AuditListView
	Findings *FindingListView
}

// FindingsURL is the fragment route that loads the findings of an audit.
func FindingsURL(auditID models.ID) string {
	return "/ui/audits/" + url.PathEscape(auditID.String()) + "/findings"
}

// CapaSubmitURL is the fragment route that submits a CAPA for a finding.
func CapaSubmitURL(findingID models.ID) string {
	return "/ui/findings/" + url.PathEscape(findingID.String()) + "/capas"
}

// AuditList describes one list entry per audit, in backend order.
func AuditList(audits []models.Audit) AuditListView {
	view := AuditListView{
		ContainerID: AuditsContainerID,
		Entries:     make([]AuditEntry, 0, len(audits)),
	}

	for _, audit := range audits {
		view.Entries = append(view.Entries, AuditEntry{
			ID:          audit.ID.String(),
			Title:       audit.Title,
			Department:  audit.Department,
			Date:        audit.Date,
			Status:      audit.Status,
			FindingsURL: FindingsURL(audit.ID),
		})
	}

	return view
}

// AuditListError describes the audits container after a failed load.
func AuditListError(err error) AuditListView {
	return AuditListView{
		ContainerID: AuditsContainerID,
		Entries:     []AuditEntry{},
		Error:       LoadErrorMessage("audits", err),
	}
}

// FindingList describes one block per finding, each with its own CAPA form
// bound to the finding id at render time.
func FindingList(auditID models.ID, findings []models.Finding) FindingListView {
	view := FindingListView{
		ContainerID: FindingsContainerID,
		AuditID:     auditID.String(),
		Blocks:      make([]FindingBlock, 0, len(findings)),
	}

	for _, finding := range findings {
		view.Blocks = append(view.Blocks, FindingBlock{
			ID:          finding.ID.String(),
			Description: finding.Description,
			Severity:    finding.Severity,
			Status:      finding.Status,
			CapasURL:    CapaSubmitURL(finding.ID),
			Form:        CapaForm(finding.ID, CapaValues{}, nil),
		})
	}

	return view
}

// FindingListError describes the findings container after a failed load.
func FindingListError(auditID models.ID, err error) FindingListView {
	return FindingListView{
		ContainerID: FindingsContainerID,
		AuditID:     auditID.String(),
		Blocks:      []FindingBlock{},
		Error:       LoadErrorMessage("findings", err),
	}
}

// CapaValues are the three inputs of a CAPA form.
type CapaValues struct {
	Action   string
	Assignee string
	DueDate  string
}

// CapaForm describes the submission form of one finding. Empty values give a
// freshly reset form.
func CapaForm(findingID models.ID, values CapaValues, result *CapaResultView) CapaFormView {
	return CapaFormView{
		ElementID: "capa-form-" + url.PathEscape(findingID.String()),
		FindingID: findingID.String(),
		Action:    CapaSubmitURL(findingID),
		Fields: []FormField{
			{Name: "action", Type: "text", Placeholder: "Action", Value: values.Action, Required: true},
			{Name: "assignee", Type: "text", Placeholder: "Assignee", Value: values.Assignee, Required: true},
			{Name: "due_date", Type: "date", Value: values.DueDate, Required: true},
		},
		Result: result,
	}
}

// CapaResult describes the acknowledgment of a submission. Only a nil error
// is reported as success.
func CapaResult(err error) CapaResultView {
	if err == nil {
		return CapaResultView{Success: true, Kind: "success", Message: CapaCreatedMessage}
	}

	kind := backend.Classify(err)
	result := CapaResultView{Kind: kind.String()}

	switch kind {
	case backend.KindTransport:
		result.Message = "CAPA not created: the audit backend could not be reached."
	case backend.KindStatus:
		result.Message = "CAPA not created: " + statusDetail(err)
	case backend.KindDecode:
		result.Message = "CAPA not created: the audit backend sent an unreadable response."
	default:
		result.Message = "CAPA not created: " + err.Error()
	}

	return result
}

// ValidationResult describes a submission rejected before reaching the backend.
func ValidationResult(message string) CapaResultView {
	return CapaResultView{Kind: "validation", Message: message}
}

// CapaList describes the CAPAs already recorded for a finding.
func CapaList(findingID models.ID, capas []models.Capa) CapaListView {
	view := CapaListView{
		FindingID: findingID.String(),
		Entries:   make([]CapaEntry, 0, len(capas)),
	}

	for _, capa := range capas {
		view.Entries = append(view.Entries, CapaEntry{
			ID:       capa.ID.String(),
			Action:   capa.Action,
			Assignee: capa.Assignee,
			DueDate:  capa.DueDate,
			Status:   capa.Status,
		})
	}

	return view
}

// CapaListError describes the CAPA list after a failed load.
func CapaListError(findingID models.ID, err error) CapaListView {
	return CapaListView{
		FindingID: findingID.String(),
		Entries:   []CapaEntry{},
		Error:     LoadErrorMessage("CAPAs", err),
	}
}

// LoadErrorMessage tells the user why a list could not be shown.
func LoadErrorMessage(what string, err error) string {
	switch backend.Classify(err) {
	case backend.KindTransport:
		return fmt.Sprintf("Could not load %s: the audit backend could not be reached.", what)
	case backend.KindStatus:
		return fmt.Sprintf("Could not load %s: %s", what, statusDetail(err))
	case backend.KindDecode:
		return fmt.Sprintf("Could not load %s: the audit backend sent an unreadable response.", what)
	default:
		return fmt.Sprintf("Could not load %s.", what)
	}
}

func statusDetail(err error) string {
	statusErr, ok := asStatusError(err)
	if !ok {
		return err.Error()
	}

	if detail := statusErr.Detail(); detail != "" {
		return fmt.Sprintf("the audit backend answered %d (%s).", statusErr.Code, detail)
	}
	return fmt.Sprintf("the audit backend answered %d.", statusErr.Code)
}

func asStatusError(err error) (*backend.StatusError, bool) {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
