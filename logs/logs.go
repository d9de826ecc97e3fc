/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package logs

import (
	"fmt"
	"log"
	"os"
)

var Logs *log.Logger

func Init(name string) {
	// init stderr writer
	logger := log.New(os.Stderr, name+" ", log.Ldate|log.Ltime|log.Lshortfile)

	// assign writer to Logs var
	Logs = logger
}

func Log(message string) {
	if Logs == nil {
		Init("audit-tracker-web")
	}
	Logs.Output(2, message)
}

// Logf formats according to a format specifier and logs the result.
func Logf(format string, args ...interface{}) {
	if Logs == nil {
		Init("audit-tracker-web")
	}
	Logs.Output(2, fmt.Sprintf(format, args...))
}
