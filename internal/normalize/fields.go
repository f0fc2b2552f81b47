// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize resolves heterogeneous backend records into the canonical
// display model: field lookup over alias tables, media link rewriting, and
// per-kind assembly of a NormalizedResource.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"

	"github.com/pdiddy/librarian/pkg/types"
)

// Resolve returns the first alias in priority order whose value in rec is a
// non-blank string or a number. Numbers are rendered without a trailing
// fraction when integral (39, not 39.0). It reports false when no alias
// matches or aliases is empty.
func Resolve(rec types.RawRecord, aliases []string) (string, bool) {
	for _, key := range aliases {
		v, ok := rec[key]
		if !ok {
			continue
		}
		if s, ok := scalarString(v); ok {
			return s, true
		}
	}
	return "", false
}

// scalarString converts a raw value to display text. Only strings and
// numbers qualify; nil, booleans and nested structures are treated as absent.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case json.Number:
		return x.String(), x.String() != ""
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s, err := cast.ToStringE(x)
		if err != nil {
			return "", false
		}
		return s, true
	default:
		return "", false
	}
}
