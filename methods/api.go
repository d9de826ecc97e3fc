/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nethesis/audit-tracker-web/backend"
	"github.com/nethesis/audit-tracker-web/models"
	"github.com/nethesis/audit-tracker-web/render"
	"github.com/nethesis/audit-tracker-web/store"
)

// CapaRequest is the JSON body accepted by POST /api/capas. Its fields are
// checked with the same rules as the page form once trimmed.
type CapaRequest struct {
	FindingID models.ID `json:"finding_id"`
	Action    string    `json:"action"`
	Assignee  string    `json:"assignee"`
	DueDate   string    `json:"due_date"`
}

// GetAudits returns the backend's audits.
func GetAudits(c *gin.Context) {
	audits, err := getBackend().ListAudits(c.Request.Context())
	if err != nil {
		badGateway(c, render.LoadErrorMessage("audits", err), err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    gin.H{"audits": audits},
	}))
}

// GetFindings returns the findings of one audit.
func GetFindings(c *gin.Context) {
	auditID := models.ParseID(c.Param("auditId"))

	findings, err := getBackend().ListFindings(c.Request.Context(), auditID)
	if err != nil {
		badGateway(c, render.LoadErrorMessage("findings", err), err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    gin.H{"audit_id": auditID, "findings": findings},
	}))
}

// GetCapas returns the CAPAs recorded for one finding.
func GetCapas(c *gin.Context) {
	findingID := models.ParseID(c.Param("findingId"))

	capas, err := getBackend().ListCapas(c.Request.Context(), findingID)
	if err != nil {
		badGateway(c, render.LoadErrorMessage("CAPAs", err), err)
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    gin.H{"finding_id": findingID, "capas": capas},
	}))
}

// PostCapa creates a CAPA from a JSON body, exactly as the form does.
func PostCapa(c *gin.Context) {
	var req CapaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, structs.Map(models.StatusBadRequest{
			Code:    http.StatusBadRequest,
			Message: "invalid request payload",
			Data:    err.Error(),
		}))
		return
	}

	if req.FindingID.IsZero() {
		c.JSON(http.StatusBadRequest, structs.Map(models.StatusBadRequest{
			Code:    http.StatusBadRequest,
			Message: "finding_id is required",
			Data:    nil,
		}))
		return
	}

	form := newCapaForm(req.Action, req.Assignee, req.DueDate)
	if message := validationMessage(binding.Validator.ValidateStruct(&form)); message != "" {
		c.JSON(http.StatusBadRequest, structs.Map(models.StatusBadRequest{
			Code:    http.StatusBadRequest,
			Message: message,
			Data:    nil,
		}))
		return
	}

	submission := models.CapaSubmission{
		FindingID: req.FindingID,
		Action:    form.Action,
		Assignee:  form.Assignee,
		DueDate:   form.DueDate,
	}

	ack, err := createCapa(c, submission)
	if err != nil {
		badGateway(c, render.CapaResult(err).Message, err)
		return
	}

	message := render.CapaCreatedMessage
	if ack != nil && ack.Message != "" {
		message = ack.Message
	}

	c.JSON(http.StatusCreated, structs.Map(models.StatusCreated{
		Code:    http.StatusCreated,
		Message: message,
		Data:    gin.H{"capa": submission},
	}))
}

// GetJournal lists recent submission attempts, optionally for one finding.
func GetJournal(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, structs.Map(models.StatusBadRequest{
				Code:    http.StatusBadRequest,
				Message: "limit must be an integer",
				Data:    nil,
			}))
			return
		}
		limit = parsed
	}

	entries, err := store.ListSubmissions(c.Request.Context(), strings.TrimSpace(c.Query("finding_id")), limit)
	if errors.Is(err, store.ErrJournalDisabled) {
		c.JSON(http.StatusServiceUnavailable, structs.Map(models.StatusServiceUnavailable{
			Code:    http.StatusServiceUnavailable,
			Message: "submission journal not configured",
			Data:    nil,
		}))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, structs.Map(models.StatusInternalServerError{
			Code:    http.StatusInternalServerError,
			Message: "failed to read submission journal",
			Data:    nil,
		}))
		return
	}

	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    http.StatusOK,
		Message: "success",
		Data:    gin.H{"entries": entries},
	}))
}

func badGateway(c *gin.Context, message string, err error) {
	data := gin.H{"kind": backend.Classify(err).String()}

	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		data["backend_status"] = statusErr.Code
		if len(statusErr.Fields) > 0 {
			data["backend_error"] = statusErr.Fields
		}
	}

	c.JSON(http.StatusBadGateway, structs.Map(models.StatusBadGateway{
		Code:    http.StatusBadGateway,
		Message: message,
		Data:    data,
	}))
}
