// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/librarian/internal/session"
	"github.com/pdiddy/librarian/pkg/types"
)

func init() {
	color.NoColor = true
}

var sample = []types.NormalizedResource{
	{Title: "Samaysar", Author: "Kundkund", Reference: "39", MediaLink: "https://cdn.example.org/s.pdf", Kind: types.KindBook},
	{Title: "Untitled", Author: "Kanjiswami", Kind: types.KindAudio},
}

func TestFormatFromFlags(t *testing.T) {
	tests := []struct {
		json, yaml bool
		want       Format
		wantErr    bool
	}{
		{false, false, Table, false},
		{true, false, JSON, false},
		{false, true, YAML, false},
		{true, true, Table, true},
	}
	for _, tt := range tests {
		got, err := FormatFromFlags(tt.json, tt.yaml)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestResourcesTable(t *testing.T) {
	var buf bytes.Buffer
	Resources(&buf, sample)
	out := buf.String()

	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Samaysar")
	assert.Contains(t, out, "https://cdn.example.org/s.pdf")
	assert.Contains(t, out, "audio")
	assert.Contains(t, out, "2 results")
}

func TestResourcesEmpty(t *testing.T) {
	var buf bytes.Buffer
	Resources(&buf, nil)
	assert.Equal(t, "No results found.\n", buf.String())
}

func TestResourceDetail(t *testing.T) {
	var buf bytes.Buffer
	Resource(&buf, sample[0])
	out := buf.String()
	assert.Contains(t, out, "Reference: 39")
	assert.Contains(t, out, "Download:  https://cdn.example.org/s.pdf?download=true")
	assert.NotContains(t, out, "Subject:")
}

func TestStateFailed(t *testing.T) {
	var buf bytes.Buffer
	State(&buf, session.State{Error: true, Message: "Could not connect to backend"})
	assert.Equal(t, "Search failed: Could not connect to backend\n", buf.String())
}

func TestStateWithPlaygroundAndReasoning(t *testing.T) {
	var buf bytes.Buffer
	State(&buf, session.State{
		Phase:   session.Success,
		Results: sample[:1],
		AILogic: &types.AILogic{Category: "READ", Shastra: "Samaysar"},
		Playground: session.Playground{
			ActiveURL:   "https://cdn.example.org/s.pdf",
			ActiveTitle: "Shastra Viewer",
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Understood as: category=READ shastra=Samaysar")
	assert.Contains(t, out, "Shastra Viewer: https://cdn.example.org/s.pdf")
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	History(&buf, []string{"b", "a"})
	assert.Equal(t, "1. b\n2. a\n", buf.String())

	buf.Reset()
	History(&buf, nil)
	assert.Equal(t, "No recent searches.\n", buf.String())
}

func TestMessage(t *testing.T) {
	var buf bytes.Buffer
	Message(&buf, session.Message{Role: session.RoleBot, Text: "Here it is", Resource: &sample[0]})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "guide> Here it is", lines[0])
	assert.Contains(t, buf.String(), "Title:     Samaysar")
}

func TestWriteJSONAndYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, sample))
	var fromJSON []types.NormalizedResource
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, sample, fromJSON)
	assert.Contains(t, buf.String(), `"media_link"`)

	buf.Reset()
	require.NoError(t, Write(&buf, YAML, sample))
	assert.Contains(t, buf.String(), "media_link: https://cdn.example.org/s.pdf")
	var fromYAML []types.NormalizedResource
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, sample, fromYAML)

	assert.Error(t, Write(&buf, Table, sample))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "समयसा...", truncate("समयसारसमयसार", 8))
}
