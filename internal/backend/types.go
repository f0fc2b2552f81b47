// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"errors"

	"github.com/spf13/cast"

	"github.com/pdiddy/librarian/pkg/types"
)

// StatusSuccess is the only status value that marks a successful search.
const StatusSuccess = "success"

var (
	// ErrUnavailable marks transport failures: no response was received.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrFailed marks a response that arrived but did not report success.
	ErrFailed = errors.New("backend reported failure")
)

// Error is returned for every failed call. Kind is ErrUnavailable or
// ErrFailed; Message is suitable for display.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UserMessage returns the display message carried by err, or a generic one.
func UserMessage(err error) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if errors.Is(err, ErrUnavailable) {
		return msgUnavailable
	}
	return msgNotFound
}

const (
	msgUnavailable = "Could not connect to backend"
	msgNotFound    = "We couldn't find anything matching that. Try a different author or book name."
)

// SearchResponse is a successful search: the ranked records in backend
// order and the backend's reading of the query.
type SearchResponse struct {
	Records []types.TaggedRecord
	AILogic types.AILogic
}

// ChatReply is one bot turn. Record is nil when the reply carries no
// archive record.
type ChatReply struct {
	Text   string
	Record *types.TaggedRecord
}

// searchEnvelope is the wire form of /search.
type searchEnvelope struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Results []map[string]any `json:"results"`
	AILogic map[string]any   `json:"ai_logic"`
}

// chatEnvelope is the wire form of /chat.
type chatEnvelope struct {
	Response string         `json:"response"`
	Data     map[string]any `json:"data"`
	ResType  string         `json:"res_type"`
}

// kindKeys are the keys a backend may use to tag a record's kind.
var kindKeys = []string{"res_type", "type", "kind"}

// taggedRecord accepts both result shapes: a flat row carrying its own kind
// tag, and a {"type": ..., "data": {...}} wrapper.
func taggedRecord(item map[string]any) types.TaggedRecord {
	if data, ok := item["data"].(map[string]any); ok {
		return types.TaggedRecord{Kind: types.ParseKind(kindTag(item)), Record: types.RawRecord(data)}
	}
	return types.TaggedRecord{Kind: types.ParseKind(kindTag(item)), Record: types.RawRecord(item)}
}

func kindTag(item map[string]any) string {
	for _, k := range kindKeys {
		if s, ok := item[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// aiLogic coerces the loosely typed ai_logic object; gatha numbers arrive as
// JSON numbers as often as strings.
func aiLogic(m map[string]any) types.AILogic {
	if m == nil {
		return types.AILogic{}
	}
	return types.AILogic{
		Title:    cast.ToString(m["title"]),
		Category: cast.ToString(m["category"]),
		Shastra:  cast.ToString(m["shastra"]),
		Gatha:    cast.ToString(m["gatha"]),
	}
}
