/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nethesis/audit-tracker-web/logs"
)

// ViewerConnection is an open page listening for notices.
type ViewerConnection struct {
	Conn      *websocket.Conn
	SessionID string

	writeMutex sync.Mutex
}

// ConnectionManager manages all active WebSocket connections
type ConnectionManager struct {
	connections map[*websocket.Conn]*ViewerConnection
	mutex       sync.RWMutex
}

var connManager = NewConnectionManager()

// NewConnectionManager returns an empty connection manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*websocket.Conn]*ViewerConnection),
	}
}

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	return connManager
}

// AddConnection adds a new connection to the manager
func (cm *ConnectionManager) AddConnection(conn *websocket.Conn, viewer *ViewerConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	viewer.Conn = conn
	cm.connections[conn] = viewer
}

// RemoveConnection removes a connection from the manager
func (cm *ConnectionManager) RemoveConnection(conn *websocket.Conn) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	delete(cm.connections, conn)
}

// Count returns the number of open connections.
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// WriteMessage writes to one connection, serializing concurrent writers.
func (cm *ConnectionManager) WriteMessage(conn *websocket.Conn, messageType int, data []byte) error {
	cm.mutex.RLock()
	viewer, exists := cm.connections[conn]
	cm.mutex.RUnlock()
	if !exists {
		return fmt.Errorf("connection not registered")
	}

	viewer.writeMutex.Lock()
	defer viewer.writeMutex.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(messageType, data)
}

// Broadcast sends a text message to every open page and drops connections
// that fail.
func (cm *ConnectionManager) Broadcast(data []byte) int {
	cm.mutex.RLock()
	conns := make([]*websocket.Conn, 0, len(cm.connections))
	for conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mutex.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := cm.WriteMessage(conn, websocket.TextMessage, data); err != nil {
			logs.Logf("[WARNING][WS] Dropping connection after write error: %v", err)
			cm.RemoveConnection(conn)
			conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}
