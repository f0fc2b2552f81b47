// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps the bounded list of recent search queries and
// persists it under a single key of a key-value backend.
//
// The list is most-recent-first, holds no duplicates and never exceeds its
// limit. Persistence is best effort: read and write failures are reported as
// warnings and the in-memory list stays authoritative for the session.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// DefaultLimit is the number of queries retained when no limit is configured.
const DefaultLimit = 5

// DefaultKey names the persisted history entry.
const DefaultKey = "searchHistory"

// ErrNotFound is returned by a KV when the key has never been written.
var ErrNotFound = errors.New("history: key not found")

// KV is the persistence backend: one opaque value per key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Store is the search history. It is owned by a single session and is not
// safe for concurrent use.
type Store struct {
	kv      KV
	key     string
	limit   int
	entries []string
	warn    io.Writer
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the persisted key (default "searchHistory").
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLimit overrides the number of retained queries (default 5).
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithWarnings directs persistence warnings to w (default io.Discard).
func WithWarnings(w io.Writer) Option {
	return func(s *Store) {
		if w != nil {
			s.warn = w
		}
	}
}

// Open creates a Store over kv and loads the persisted list. A nil kv gives
// an in-memory store.
func Open(ctx context.Context, kv KV, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		key:   DefaultKey,
		limit: DefaultLimit,
		warn:  io.Discard,
	}
	for _, o := range opts {
		o(s)
	}
	s.Load(ctx)
	return s
}

// Load replaces the in-memory list with the persisted one and returns it.
// A missing, unreadable or corrupt value yields an empty list.
func (s *Store) Load(ctx context.Context) []string {
	s.entries = nil
	if s.kv == nil {
		return s.Entries()
	}

	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			fmt.Fprintf(s.warn, "warning: reading search history: %v\n", err)
		}
		return s.Entries()
	}

	var stored []string
	if err := json.Unmarshal(data, &stored); err != nil {
		fmt.Fprintf(s.warn, "warning: discarding corrupt search history: %v\n", err)
		return s.Entries()
	}

	for _, q := range stored {
		if strings.TrimSpace(q) == "" || slices.Contains(s.entries, q) {
			continue
		}
		s.entries = append(s.entries, q)
		if len(s.entries) == s.limit {
			break
		}
	}
	return s.Entries()
}

// Entries returns a copy of the list, most recent first.
func (s *Store) Entries() []string {
	if len(s.entries) == 0 {
		return []string{}
	}
	return slices.Clone(s.entries)
}

// Len returns the number of stored queries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Record moves query to the front of the list, dropping any earlier copy
// and the oldest entries beyond the limit. Blank queries are ignored.
func (s *Store) Record(ctx context.Context, query string) {
	if strings.TrimSpace(query) == "" {
		return
	}
	next := make([]string, 0, s.limit)
	next = append(next, query)
	for _, q := range s.entries {
		if q != query && len(next) < s.limit {
			next = append(next, q)
		}
	}
	s.entries = next
	s.persist(ctx)
}

// Remove deletes the first entry exactly equal to query (case-sensitive).
func (s *Store) Remove(ctx context.Context, query string) {
	i := slices.Index(s.entries, query)
	if i < 0 {
		return
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	s.persist(ctx)
}

// Clear empties the list and persists the empty list.
func (s *Store) Clear(ctx context.Context) {
	s.entries = nil
	s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) {
	if s.kv == nil {
		return
	}
	data, err := json.Marshal(s.Entries())
	if err != nil {
		fmt.Fprintf(s.warn, "warning: encoding search history: %v\n", err)
		return
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		fmt.Fprintf(s.warn, "warning: saving search history: %v\n", err)
	}
}
