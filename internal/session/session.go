// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session holds the per-user search state: the active query, the
// normalized results of the latest search, loading and error flags, the
// search history, the chat transcript and the playground selection.
//
// Search follows Idle -> Searching -> Success|Failed. Every submission gets
// a sequence number and only the completion carrying the latest number is
// applied; older completions are dropped silently. The playground is
// independent of searching: it changes only on explicit selection, when a
// chat reply carries media, or when a search resolves exactly one media link
// while nothing is open.
//
// A Session is not safe for concurrent use. Loop serializes access for
// concurrent callers.
package session

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/pdiddy/librarian/internal/backend"
	"github.com/pdiddy/librarian/internal/history"
	"github.com/pdiddy/librarian/internal/normalize"
	"github.com/pdiddy/librarian/pkg/types"
)

var (
	// ErrEmptyQuery is returned when a blank query or chat message is submitted.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNoSuchResult is returned when selecting an index outside the results.
	ErrNoSuchResult = errors.New("no result at that position")
)

// Phase is the search state.
type Phase int

const (
	Idle Phase = iota
	Searching
	Success
	Failed
)

func (p Phase) String() string {
	switch p {
	case Searching:
		return "searching"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText renders the phase by name in JSON and YAML output.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DefaultPlaygroundTitle is shown while nothing is open.
const DefaultPlaygroundTitle = "Knowledge Playground"

// Playground is the pane showing the selected resource.
type Playground struct {
	ActiveURL   string                    `json:"active_url,omitempty" yaml:"active_url,omitempty"`
	ActiveTitle string                    `json:"active_title" yaml:"active_title"`
	Resource    *types.NormalizedResource `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// IsOpen reports whether a resource is displayed.
func (p Playground) IsOpen() bool {
	return p.ActiveURL != ""
}

// Ticket identifies one submitted search or chat turn.
type Ticket struct {
	Seq   uint64
	Query string
}

// State is a copy of the session for display.
type State struct {
	Query      string                     `json:"query" yaml:"query"`
	Phase      Phase                      `json:"phase" yaml:"phase"`
	Loading    bool                       `json:"loading" yaml:"loading"`
	Error      bool                       `json:"error" yaml:"error"`
	Message    string                     `json:"message,omitempty" yaml:"message,omitempty"`
	Results    []types.NormalizedResource `json:"results" yaml:"results"`
	AILogic    *types.AILogic             `json:"ai_logic,omitempty" yaml:"ai_logic,omitempty"`
	History    []string                   `json:"history" yaml:"history"`
	Playground Playground                 `json:"playground" yaml:"playground"`
	Transcript []Message                  `json:"transcript,omitempty" yaml:"transcript,omitempty"`
}

// Session is the state of one user's librarian.
type Session struct {
	normalizer *normalize.Normalizer
	history    *history.Store

	query   string
	phase   Phase
	results []types.NormalizedResource
	message string
	aiLogic types.AILogic
	seq     uint64

	playground Playground
	chat       chatState
}

// New returns an Idle session. A nil normalizer uses the built-in aliases;
// a nil history store keeps history in memory only.
func New(n *normalize.Normalizer, h *history.Store) *Session {
	if n == nil {
		n = normalize.Default()
	}
	if h == nil {
		h = history.Open(context.Background(), nil)
	}
	return &Session{
		normalizer: n,
		history:    h,
		playground: Playground{ActiveTitle: DefaultPlaygroundTitle},
		chat:       newChatState(),
	}
}

// Phase returns the current search state.
func (s *Session) Phase() Phase {
	return s.phase
}

// Submit starts a search for the trimmed query. Previous results and error
// are cleared immediately; the playground is left alone.
func (s *Session) Submit(query string) (Ticket, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Ticket{}, ErrEmptyQuery
	}
	s.seq++
	s.query = q
	s.phase = Searching
	s.results = nil
	s.message = ""
	s.aiLogic = types.AILogic{}
	return Ticket{Seq: s.seq, Query: q}, nil
}

// SubmitTranscript starts a search from a speech transcript, which is
// handled exactly like typed text.
func (s *Session) SubmitTranscript(transcript string) (Ticket, error) {
	return s.Submit(transcript)
}

// Complete applies the outcome of the search identified by t. It reports
// false, changing nothing, when t is not the latest submission.
func (s *Session) Complete(ctx context.Context, t Ticket, resp backend.SearchResponse, err error) bool {
	if t.Seq != s.seq || s.phase != Searching {
		return false
	}

	if err != nil {
		s.phase = Failed
		s.results = nil
		s.message = backend.UserMessage(err)
		return true
	}

	s.phase = Success
	s.results = s.normalizer.All(resp.Records)
	s.aiLogic = resp.AILogic
	s.history.Record(ctx, t.Query)
	if len(s.results) == 0 {
		s.message = "No results found."
	}
	s.autoOpen()
	return true
}

// autoOpen fills an empty playground when exactly one result has media.
func (s *Session) autoOpen() {
	if s.playground.IsOpen() {
		return
	}
	idx := -1
	for i, r := range s.results {
		if !r.HasMedia() {
			continue
		}
		if idx >= 0 {
			return
		}
		idx = i
	}
	if idx >= 0 {
		s.open(s.results[idx])
	}
}

// Results returns the normalized results of the latest completed search in
// backend order.
func (s *Session) Results() []types.NormalizedResource {
	return slices.Clone(s.results)
}

// Select opens result i in the playground. It reports false when the
// result has no media link, leaving the playground unchanged.
func (s *Session) Select(i int) (bool, error) {
	if i < 0 || i >= len(s.results) {
		return false, ErrNoSuchResult
	}
	return s.SelectResource(s.results[i]), nil
}

// SelectResource opens r in the playground if it has a media link.
func (s *Session) SelectResource(r types.NormalizedResource) bool {
	if !r.HasMedia() {
		return false
	}
	s.open(r)
	return true
}

func (s *Session) open(r types.NormalizedResource) {
	s.playground = Playground{
		ActiveURL:   r.MediaLink,
		ActiveTitle: r.Kind.ViewerLabel(),
		Resource:    &r,
	}
}

// Playground returns the current playground.
func (s *Session) Playground() Playground {
	return s.playground
}

// ClearPlayground closes the open resource.
func (s *Session) ClearPlayground() {
	s.playground = Playground{ActiveTitle: DefaultPlaygroundTitle}
}

// History returns the recent queries, most recent first.
func (s *Session) History() []string {
	return s.history.Entries()
}

// RemoveHistory deletes one query from the history.
func (s *Session) RemoveHistory(ctx context.Context, query string) {
	s.history.Remove(ctx, query)
}

// ClearHistory empties the history.
func (s *Session) ClearHistory(ctx context.Context) {
	s.history.Clear(ctx)
}

// State returns a copy of the session.
func (s *Session) State() State {
	st := State{
		Query:      s.query,
		Phase:      s.phase,
		Loading:    s.phase == Searching || s.chat.pending,
		Error:      s.phase == Failed,
		Message:    s.message,
		Results:    s.Results(),
		History:    s.history.Entries(),
		Playground: s.playground,
		Transcript: s.Transcript(),
	}
	if st.Results == nil {
		st.Results = []types.NormalizedResource{}
	}
	if !s.aiLogic.IsEmpty() {
		ai := s.aiLogic
		st.AILogic = &ai
	}
	return st
}

func isUnavailable(err error) bool {
	return errors.Is(err, backend.ErrUnavailable)
}
