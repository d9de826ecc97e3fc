/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ViewerSession is the per-browser render state. It remembers, for each
// container, the sequence number of the most recent load so that a slow
// response cannot overwrite a newer render.
type ViewerSession struct {
	ID       string
	LastSeen time.Time

	mutex  sync.Mutex
	latest map[string]uint64
}

// Begin starts a new load of container and returns its sequence number.
func (s *ViewerSession) Begin(container string) uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.latest[container]++
	return s.latest[container]
}

// IsLatest reports whether seq is still the most recent load of container.
func (s *ViewerSession) IsLatest(container string, seq uint64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.latest[container] == seq
}

var (
	ViewerSessions map[string]*ViewerSession
	sessionsMutex  sync.Mutex
	nowFunc        = time.Now
)

func ViewerSessionInit() map[string]*ViewerSession {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()
	ViewerSessions = make(map[string]*ViewerSession)
	return ViewerSessions
}

// GetOrCreateSession returns the session with the given id, or a new one
// when id is empty or unknown. created reports whether a new id was issued.
func GetOrCreateSession(id string) (session *ViewerSession, created bool) {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()

	if ViewerSessions == nil {
		ViewerSessions = make(map[string]*ViewerSession)
	}

	if existing, ok := ViewerSessions[id]; ok && id != "" {
		existing.LastSeen = nowFunc()
		return existing, false
	}

	session = NewViewerSession()
	ViewerSessions[session.ID] = session
	return session, true
}

// NewViewerSession returns a session that is not kept in ViewerSessions.
func NewViewerSession() *ViewerSession {
	return &ViewerSession{
		ID:       uuid.NewString(),
		LastSeen: nowFunc(),
		latest:   make(map[string]uint64),
	}
}

// CountSessions returns the number of live viewer sessions.
func CountSessions() int {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()
	return len(ViewerSessions)
}

// PurgeExpiredSessions drops sessions idle for longer than ttl and returns
// how many were removed.
func PurgeExpiredSessions(ttl time.Duration) int {
	sessionsMutex.Lock()
	defer sessionsMutex.Unlock()

	cutoff := nowFunc().Add(-ttl)
	removed := 0
	for id, session := range ViewerSessions {
		if session.LastSeen.Before(cutoff) {
			delete(ViewerSessions, id)
			removed++
		}
	}
	return removed
}
