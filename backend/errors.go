/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nqd/flat"
)

// ErrorKind classifies a failed backend call.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransport
	KindStatus
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// TransportError means no HTTP response was received from the backend.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: backend unreachable: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// maxDetailBytes bounds the plain-text body shown to the user.
const maxDetailBytes = 200

// StatusError means the backend answered with a non-2xx status.
type StatusError struct {
	Method string
	URL    string
	Code   int
	// Fields holds the flattened JSON error body, if the backend sent one.
	Fields map[string]interface{}
	Body   string
}

func (e *StatusError) Error() string {
	detail := e.Detail()
	if detail == "" {
		return fmt.Sprintf("%s %s: backend answered %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: backend answered %d: %s", e.Method, e.URL, e.Code, detail)
}

// Detail returns the backend's own explanation of the failure.
func (e *StatusError) Detail() string {
	for _, key := range []string{"error", "message", "description"} {
		if value, ok := e.Fields[key]; ok {
			if text := strings.TrimSpace(fmt.Sprint(value)); text != "" {
				return text
			}
		}
	}

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for key := range e.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", key, e.Fields[key]))
		}
		return strings.Join(parts, " ")
	}

	body := strings.TrimSpace(e.Body)
	if len(body) > maxDetailBytes {
		cut := maxDetailBytes
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return body
}

// DecodeError means the backend answered 2xx with a body that is not the
// expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: malformed backend response: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Classify maps err to the kind of backend failure it represents.
func Classify(err error) ErrorKind {
	var transportErr *TransportError
	var statusErr *StatusError
	var decodeErr *DecodeError

	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &statusErr):
		return KindStatus
	case errors.As(err, &decodeErr):
		return KindDecode
	default:
		return KindUnknown
	}
}

func newStatusError(method, url string, code int, body []byte) *StatusError {
	statusErr := &StatusError{
		Method: method,
		URL:    url,
		Code:   code,
		Body:   string(body),
	}

	var nested map[string]interface{}
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		if fields, err := flat.Flatten(nested, nil); err == nil {
			statusErr.Fields = fields
		}
	}

	return statusErr
}
