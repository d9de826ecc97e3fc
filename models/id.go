/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// ID is an opaque backend identifier. It keeps the JSON kind it was received
// with, so a numeric id is sent back as a number and a string id as a string.
type ID struct {
	value   string
	numeric bool
}

// NumericID builds a numeric identifier.
func NumericID(n int64) ID {
	return ID{value: strconv.FormatInt(n, 10), numeric: true}
}

// StringID builds a string identifier.
func StringID(s string) ID {
	return ID{value: s}
}

// ParseID reads an identifier from a path segment. Segments that are JSON
// number literals become numeric ids.
func ParseID(s string) ID {
	return ID{value: s, numeric: jsonNumber.MatchString(s)}
}

func (id ID) String() string {
	return id.value
}

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool {
	return id.value == ""
}

// IsNumeric reports whether the identifier is encoded as a JSON number.
func (id ID) IsNumeric() bool {
	return id.numeric
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.value == "" {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	raw := string(data)
	switch {
	case raw == "null":
		*id = ID{}
	case len(raw) > 0 && raw[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
	case jsonNumber.MatchString(raw):
		*id = ID{value: raw, numeric: true}
	default:
		return fmt.Errorf("invalid identifier %s", raw)
	}
	return nil
}
