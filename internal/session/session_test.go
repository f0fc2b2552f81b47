// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/librarian/internal/backend"
	"github.com/pdiddy/librarian/internal/history"
	"github.com/pdiddy/librarian/pkg/types"
)

func newTestSession(t *testing.T) (*Session, *history.MemoryKV) {
	t.Helper()
	kv := history.NewMemoryKV()
	return New(nil, history.Open(context.Background(), kv)), kv
}

func book(title, link string) types.TaggedRecord {
	rec := types.RawRecord{"shastraname": title}
	if link != "" {
		rec["pdf_url"] = link
	}
	return types.TaggedRecord{Kind: types.KindBook, Record: rec}
}

func video(title, link string) types.TaggedRecord {
	return types.TaggedRecord{Kind: types.KindVideo, Record: types.RawRecord{"shastra_name": title, "Hindi": link}}
}

var failedErr = &backend.Error{Kind: backend.ErrFailed, Message: "no such shastra"}

// --- search transitions ---

func TestSubmitEntersSearching(t *testing.T) {
	s, _ := newTestSession(t)

	tk, err := s.Submit("  samaysar  ")
	require.NoError(t, err)

	assert.Equal(t, "samaysar", tk.Query)
	st := s.State()
	assert.Equal(t, Searching, st.Phase)
	assert.True(t, st.Loading)
	assert.False(t, st.Error)
	assert.Equal(t, "samaysar", st.Query)
}

func TestSubmitRejectsBlank(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, Idle, s.Phase())
}

func TestSuccessReplacesResultsAndRecordsHistory(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestSession(t)

	tk, _ := s.Submit("samaysar")
	ok := s.Complete(ctx, tk, backend.SearchResponse{
		Records: []types.TaggedRecord{book("Samaysar", ""), book("Niyamsar", "")},
		AILogic: types.AILogic{Category: "READ"},
	}, nil)
	require.True(t, ok)

	st := s.State()
	assert.Equal(t, Success, st.Phase)
	assert.False(t, st.Loading)
	assert.False(t, st.Error)
	require.Len(t, st.Results, 2)
	assert.Equal(t, "Samaysar", st.Results[0].Title)
	assert.Equal(t, "Niyamsar", st.Results[1].Title)
	assert.Equal(t, []string{"samaysar"}, st.History)
	require.NotNil(t, st.AILogic)
	assert.Equal(t, "READ", st.AILogic.Category)

	persisted, err := kv.Get(ctx, history.DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["samaysar"]`, string(persisted))

	tk2, _ := s.Submit("niyamsar")
	st = s.State()
	assert.Empty(t, st.Results, "results cleared on submit")
	assert.Nil(t, st.AILogic)

	s.Complete(ctx, tk2, backend.SearchResponse{Records: []types.TaggedRecord{book("Niyamsar", "")}}, nil)
	assert.Len(t, s.Results(), 1, "results replaced wholesale")
	assert.Equal(t, []string{"niyamsar", "samaysar"}, s.History())
}

func TestEmptySuccess(t *testing.T) {
	s, _ := newTestSession(t)
	tk, _ := s.Submit("unknown")
	s.Complete(context.Background(), tk, backend.SearchResponse{}, nil)

	st := s.State()
	assert.Equal(t, Success, st.Phase)
	assert.Empty(t, st.Results)
	assert.NotNil(t, st.Results)
	assert.Equal(t, "No results found.", st.Message)
}

func TestFailure(t *testing.T) {
	s, _ := newTestSession(t)

	tk, _ := s.Submit("samaysar")
	require.True(t, s.Complete(context.Background(), tk, backend.SearchResponse{}, failedErr))

	st := s.State()
	assert.Equal(t, Failed, st.Phase)
	assert.True(t, st.Error)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Results)
	assert.Equal(t, "no such shastra", st.Message)
	assert.Empty(t, st.History, "failed searches are not recorded")
}

func TestTransportFailureMessage(t *testing.T) {
	s, _ := newTestSession(t)

	tk, _ := s.Submit("samaysar")
	s.Complete(context.Background(), tk, backend.SearchResponse{}, &backend.Error{Kind: backend.ErrUnavailable, Message: "Could not connect to backend", Err: errors.New("dial tcp")})

	assert.Equal(t, "Could not connect to backend", s.State().Message)
	assert.Equal(t, Failed, s.Phase())
}

func TestStaleCompletionDiscarded(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	a, _ := s.Submit("A")
	b, _ := s.Submit("B")

	require.True(t, s.Complete(ctx, b, backend.SearchResponse{Records: []types.TaggedRecord{book("from B", "")}}, nil))
	assert.False(t, s.Complete(ctx, a, backend.SearchResponse{Records: []types.TaggedRecord{book("from A", ""), book("A2", "")}}, nil))

	st := s.State()
	require.Len(t, st.Results, 1)
	assert.Equal(t, "from B", st.Results[0].Title)
	assert.Equal(t, "B", st.Query)
	assert.Equal(t, []string{"B"}, st.History)
}

func TestStaleFailureDiscarded(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	a, _ := s.Submit("A")
	b, _ := s.Submit("B")

	assert.False(t, s.Complete(ctx, a, backend.SearchResponse{}, failedErr))
	assert.Equal(t, Searching, s.Phase())

	s.Complete(ctx, b, backend.SearchResponse{Records: []types.TaggedRecord{book("B", "")}}, nil)
	assert.Equal(t, Success, s.Phase())
}

func TestDuplicateCompletionIgnored(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	tk, _ := s.Submit("A")
	require.True(t, s.Complete(ctx, tk, backend.SearchResponse{Records: []types.TaggedRecord{book("one", "")}}, nil))
	assert.False(t, s.Complete(ctx, tk, backend.SearchResponse{}, failedErr))
	assert.Equal(t, Success, s.Phase())
}

func TestTranscriptIsOrdinaryQuery(t *testing.T) {
	s, _ := newTestSession(t)
	tk, err := s.SubmitTranscript(" Samaysar gatha 39 ")
	require.NoError(t, err)
	assert.Equal(t, "Samaysar gatha 39", tk.Query)
}

// --- playground ---

func TestSelectOpensPlayground(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	tk, _ := s.Submit("samaysar")
	s.Complete(ctx, tk, backend.SearchResponse{Records: []types.TaggedRecord{
		book("Samaysar", "https://cdn.example.org/s.pdf"),
		video("Samaysar Pravachan", "https://youtube.com/watch?v=xyz"),
		book("No link", ""),
	}}, nil)

	assert.False(t, s.Playground().IsOpen(), "two media links: nothing opens on its own")

	opened, err := s.Select(1)
	require.NoError(t, err)
	assert.True(t, opened)
	pg := s.Playground()
	assert.Equal(t, "https://youtube.com/embed/xyz?autoplay=1", pg.ActiveURL)
	assert.Equal(t, "Video Pravachan", pg.ActiveTitle)
	require.NotNil(t, pg.Resource)
	assert.Equal(t, "Samaysar Pravachan", pg.Resource.Title)

	opened, err = s.Select(2)
	require.NoError(t, err)
	assert.False(t, opened)
	assert.Equal(t, "https://youtube.com/embed/xyz?autoplay=1", s.Playground().ActiveURL, "no-op without media")

	_, err = s.Select(3)
	assert.ErrorIs(t, err, ErrNoSuchResult)
	_, err = s.Select(-1)
	assert.ErrorIs(t, err, ErrNoSuchResult)

	opened, _ = s.Select(0)
	assert.True(t, opened)
	assert.Equal(t, "Shastra Viewer", s.Playground().ActiveTitle)
}

func TestSelectWithoutResults(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.Select(0)
	assert.ErrorIs(t, err, ErrNoSuchResult)
	assert.Equal(t, DefaultPlaygroundTitle, s.Playground().ActiveTitle)
}

func TestAutoOpenSingleMediaLink(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	tk, _ := s.Submit("samaysar")
	s.Complete(ctx, tk, backend.SearchResponse{Records: []types.TaggedRecord{
		book("No link", ""),
		book("Samaysar", "https://cdn.example.org/s.pdf"),
	}}, nil)

	assert.Equal(t, "https://cdn.example.org/s.pdf", s.Playground().ActiveURL)
	assert.Equal(t, "Shastra Viewer", s.Playground().ActiveTitle)
}

func TestNewSearchKeepsPlayground(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	tk, _ := s.Submit("samaysar")
	s.Complete(ctx, tk, backend.SearchResponse{Records: []types.TaggedRecord{video("V", "https://youtu.be/one")}}, nil)
	require.Equal(t, "https://youtube.com/embed/one?autoplay=1", s.Playground().ActiveURL)

	tk2, _ := s.Submit("niyamsar")
	assert.Equal(t, "https://youtube.com/embed/one?autoplay=1", s.Playground().ActiveURL, "searching keeps the selection")

	s.Complete(ctx, tk2, backend.SearchResponse{Records: []types.TaggedRecord{video("W", "https://youtu.be/two")}}, nil)
	assert.Equal(t, "https://youtube.com/embed/one?autoplay=1", s.Playground().ActiveURL, "no auto-advance over an open selection")

	s.ClearPlayground()
	assert.False(t, s.Playground().IsOpen())
	assert.Equal(t, DefaultPlaygroundTitle, s.Playground().ActiveTitle)
}

func TestFailedSearchKeepsPlayground(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)
	s.SelectResource(types.NormalizedResource{Title: "T", MediaLink: "a.mp3", Kind: types.KindAudio})

	tk, _ := s.Submit("x")
	s.Complete(ctx, tk, backend.SearchResponse{}, failedErr)
	assert.Equal(t, "a.mp3", s.Playground().ActiveURL)
	assert.Equal(t, "Audio Player", s.Playground().ActiveTitle)
}

// --- history edits ---

func TestHistoryEdits(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)
	for _, q := range []string{"a", "b", "c"} {
		tk, _ := s.Submit(q)
		s.Complete(ctx, tk, backend.SearchResponse{}, nil)
	}
	assert.Equal(t, []string{"c", "b", "a"}, s.History())

	s.RemoveHistory(ctx, "b")
	assert.Equal(t, []string{"c", "a"}, s.History())

	s.ClearHistory(ctx)
	assert.Empty(t, s.History())
}

// --- chat ---

func TestChatTranscript(t *testing.T) {
	s, _ := newTestSession(t)
	require.Len(t, s.Transcript(), 1)
	assert.Equal(t, Greeting, s.Transcript()[0].Text)

	tk, err := s.SubmitChat("show samaysar")
	require.NoError(t, err)
	assert.True(t, s.State().Loading)

	ok := s.CompleteChat(tk, backend.ChatReply{
		Text: "Here is the video",
		Record: &types.TaggedRecord{Kind: types.KindVideo, Record: types.RawRecord{
			"FullName": "Kundkund", "GathaNoBolNo": "39", "Hindi": "https://youtube.com/watch?v=xyz",
		}},
	}, nil)
	require.True(t, ok)

	tr := s.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, Message{Role: RoleUser, Text: "show samaysar"}, tr[1])
	assert.Equal(t, RoleBot, tr[2].Role)
	require.NotNil(t, tr[2].Resource)
	assert.Equal(t, "Kundkund", tr[2].Resource.Author)
	assert.False(t, s.State().Loading)

	assert.Equal(t, "https://youtube.com/embed/xyz?autoplay=1", s.Playground().ActiveURL)
	assert.Equal(t, "Video Pravachan", s.Playground().ActiveTitle)
}

func TestChatConnectionError(t *testing.T) {
	s, _ := newTestSession(t)
	tk, _ := s.SubmitChat("hello")
	s.CompleteChat(tk, backend.ChatReply{}, &backend.Error{Kind: backend.ErrUnavailable, Message: "Could not connect to backend"})

	tr := s.Transcript()
	assert.Equal(t, connectionErrorText, tr[len(tr)-1].Text)
}

func TestChatStaleReplyDropped(t *testing.T) {
	s, _ := newTestSession(t)
	first, _ := s.SubmitChat("one")
	second, _ := s.SubmitChat("two")

	assert.False(t, s.CompleteChat(first, backend.ChatReply{Text: "late"}, nil))
	assert.True(t, s.CompleteChat(second, backend.ChatReply{Text: "fresh"}, nil))

	tr := s.Transcript()
	assert.Equal(t, "fresh", tr[len(tr)-1].Text)
	for _, m := range tr {
		assert.NotEqual(t, "late", m.Text)
	}
}

func TestChatBlankAndReset(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.SubmitChat(" ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	tk, _ := s.SubmitChat("hello")
	s.ResetChat()
	assert.False(t, s.CompleteChat(tk, backend.ChatReply{Text: "after reset"}, nil))
	assert.Len(t, s.Transcript(), 1)
}

func TestPhaseText(t *testing.T) {
	b, err := Failed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(b))
	assert.Equal(t, "idle", Idle.String())
}
