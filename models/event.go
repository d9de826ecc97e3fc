/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

import (
	"time"
)

const EventCapaCreated = "capa-created"

// Event is the message published on the broker and pushed to browsers.
type Event struct {
	Type      string         `json:"type"`
	Data      CapaSubmission `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}
