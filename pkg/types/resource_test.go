// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		tag  string
		want ResourceKind
	}{
		{"audio", KindAudio},
		{"Pravachan", KindAudio},
		{"video", KindVideo},
		{" VIDEO ", KindVideo},
		{"book", KindBook},
		{"granth", KindBook},
		{"shastra", KindBook},
		{"note", KindNote},
		{"speedy_note", KindNote},
		{"", KindText},
		{"text", KindText},
		{"podcast", KindText},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.tag))
		})
	}
}

func TestViewerLabel(t *testing.T) {
	assert.Equal(t, "Shastra Viewer", KindBook.ViewerLabel())
	assert.Equal(t, "Video Pravachan", KindVideo.ViewerLabel())
	assert.Equal(t, "Audio Player", KindAudio.ViewerLabel())
	assert.Equal(t, "Media Viewer", KindNote.ViewerLabel())
	assert.Equal(t, "Media Viewer", KindText.ViewerLabel())
}

func TestIsPravachan(t *testing.T) {
	assert.True(t, KindAudio.IsPravachan())
	assert.True(t, KindVideo.IsPravachan())
	assert.False(t, KindBook.IsPravachan())
	assert.False(t, KindText.IsPravachan())
}

func TestDownloadURL(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"pdf", "https://cdn.example.org/s.pdf", "https://cdn.example.org/s.pdf?download=true"},
		{"existing query", "https://cdn.example.org/s.pdf?lang=hi", "https://cdn.example.org/s.pdf?download=true&lang=hi"},
		{"embed", "https://youtube.com/embed/xyz?autoplay=1", ""},
		{"no media", "", ""},
		{"relative", "uploads/pravachan/01.mp3", ""},
		{"root relative", "/uploads/pravachan/01.mp3", ""},
		{"other scheme", "ftp://cdn.example.org/s.pdf", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NormalizedResource{Title: "T", MediaLink: tt.link, Kind: KindBook}
			assert.Equal(t, tt.want, r.DownloadURL())
			assert.Equal(t, tt.link != "", r.HasMedia())
		})
	}
}

func TestAILogicIsEmpty(t *testing.T) {
	assert.True(t, AILogic{}.IsEmpty())
	assert.False(t, AILogic{Gatha: "39"}.IsEmpty())
}
