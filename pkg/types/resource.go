// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the librarian: raw backend
// records, resource kinds, the normalized display model and configuration.
package types

import (
	"net/url"
	"strings"
)

// RawRecord is one search-result row exactly as returned by a backend table.
// Keys follow the source table's naming convention; values are strings,
// numbers or nil. A RawRecord is never mutated after receipt.
type RawRecord map[string]any

// ResourceKind is the media category of a record. It selects the alias lists
// used during normalization and the viewer used for the playground.
type ResourceKind string

const (
	KindAudio ResourceKind = "audio"
	KindVideo ResourceKind = "video"
	KindBook  ResourceKind = "book"
	KindNote  ResourceKind = "note"
	KindText  ResourceKind = "text"
)

// ParseKind maps a backend kind tag to a ResourceKind. Backends use several
// spellings for the same category; unknown or empty tags become KindText.
func ParseKind(tag string) ResourceKind {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "audio", "pravachan", "listen":
		return KindAudio
	case "video", "watch":
		return KindVideo
	case "book", "granth", "shastra", "read", "pdf":
		return KindBook
	case "note", "speedy_note":
		return KindNote
	default:
		return KindText
	}
}

// IsPravachan reports whether records of this kind come from a discourse
// (pravachan) table, where the full-name column names the speaker.
func (k ResourceKind) IsPravachan() bool {
	return k == KindAudio || k == KindVideo
}

// ViewerLabel is the playground heading shown while a resource of this kind
// is open.
func (k ResourceKind) ViewerLabel() string {
	switch k {
	case KindBook:
		return "Shastra Viewer"
	case KindVideo:
		return "Video Pravachan"
	case KindAudio:
		return "Audio Player"
	default:
		return "Media Viewer"
	}
}

// UntitledPlaceholder is the title of a record whose title aliases are all
// missing or blank.
const UntitledPlaceholder = "Untitled"

// NormalizedResource is the canonical projection of one RawRecord. Empty
// optional fields mean the attribute could not be resolved. Title is never
// empty, and MediaLink is always in its directly playable form.
type NormalizedResource struct {
	Title     string       `json:"title" yaml:"title"`
	Author    string       `json:"author,omitempty" yaml:"author,omitempty"`
	Reference string       `json:"reference,omitempty" yaml:"reference,omitempty"`
	Subject   string       `json:"subject,omitempty" yaml:"subject,omitempty"`
	MediaLink string       `json:"media_link,omitempty" yaml:"media_link,omitempty"`
	Kind      ResourceKind `json:"kind" yaml:"kind"`
}

// HasMedia reports whether the resource can be opened in the playground.
func (r NormalizedResource) HasMedia() bool {
	return r.MediaLink != ""
}

// DownloadURL returns the media link with a download directive for file
// resources (PDFs, audio files). Embedded players have no download form, so
// it returns "" for them, for resources without media and for relative
// links, which must first be resolved against the archive's URL.
func (r NormalizedResource) DownloadURL() string {
	if r.MediaLink == "" || strings.Contains(r.MediaLink, "/embed/") {
		return ""
	}
	u, err := url.Parse(r.MediaLink)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	q := u.Query()
	q.Set("download", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// AILogic is the backend's interpretation of a free-text query, returned
// alongside successful search results.
type AILogic struct {
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Shastra  string `json:"shastra,omitempty" yaml:"shastra,omitempty"`
	Gatha    string `json:"gatha,omitempty" yaml:"gatha,omitempty"`
}

// IsEmpty reports whether the backend sent no interpretation.
func (a AILogic) IsEmpty() bool {
	return a == AILogic{}
}

// TaggedRecord is a raw record paired with the kind declared by the backend.
type TaggedRecord struct {
	Kind   ResourceKind `json:"kind" yaml:"kind"`
	Record RawRecord    `json:"record" yaml:"record"`
}
