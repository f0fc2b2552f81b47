// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"slices"
	"strings"

	"github.com/pdiddy/librarian/internal/backend"
	"github.com/pdiddy/librarian/pkg/types"
)

// Role identifies who wrote a transcript message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Greeting opens every chat transcript.
const Greeting = "Jai Jinendra! I am your Vitragvani guide. I can help you find Shastras, Pravachans, or explain concepts from the database."

// connectionErrorText replaces the bot reply when the backend is unreachable.
const connectionErrorText = "Connection error. Please ensure the server is running."

// Message is one chat transcript entry. Resource is set when a bot reply
// carried an archive record.
type Message struct {
	Role     Role                      `json:"role" yaml:"role"`
	Text     string                    `json:"text" yaml:"text"`
	Resource *types.NormalizedResource `json:"resource,omitempty" yaml:"resource,omitempty"`
}

type chatState struct {
	messages []Message
	seq      uint64
	pending  bool
}

func newChatState() chatState {
	return chatState{messages: []Message{{Role: RoleBot, Text: Greeting}}}
}

// SubmitChat appends the user's message and starts a chat turn.
func (s *Session) SubmitChat(message string) (Ticket, error) {
	m := strings.TrimSpace(message)
	if m == "" {
		return Ticket{}, ErrEmptyQuery
	}
	s.chat.seq++
	s.chat.pending = true
	s.chat.messages = append(s.chat.messages, Message{Role: RoleUser, Text: m})
	return Ticket{Seq: s.chat.seq, Query: m}, nil
}

// CompleteChat appends the bot's reply for t. A reply carrying a record
// with media opens it in the playground. Stale turns are dropped and
// reported as false.
func (s *Session) CompleteChat(t Ticket, reply backend.ChatReply, err error) bool {
	if t.Seq != s.chat.seq || !s.chat.pending {
		return false
	}
	s.chat.pending = false

	if err != nil {
		text := connectionErrorText
		if !isUnavailable(err) {
			text = backend.UserMessage(err)
		}
		s.chat.messages = append(s.chat.messages, Message{Role: RoleBot, Text: text})
		return true
	}

	msg := Message{Role: RoleBot, Text: reply.Text}
	if reply.Record != nil {
		r := s.normalizer.Normalize(reply.Record.Record, reply.Record.Kind)
		msg.Resource = &r
		s.SelectResource(r)
	}
	s.chat.messages = append(s.chat.messages, msg)
	return true
}

// Transcript returns the chat messages in order.
func (s *Session) Transcript() []Message {
	return slices.Clone(s.chat.messages)
}

// ResetChat starts a fresh transcript.
func (s *Session) ResetChat() {
	s.chat = chatState{messages: newChatState().messages, seq: s.chat.seq}
}
