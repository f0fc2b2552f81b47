// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render writes normalized resources, session state, history and
// chat transcripts for the terminal, as a fixed-width table or as JSON or
// YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/librarian/internal/session"
	"github.com/pdiddy/librarian/pkg/types"
)

// Format selects how results are written.
type Format int

const (
	Table Format = iota
	JSON
	YAML
)

// FormatFromFlags picks the output format from the --json and --yaml flags.
func FormatFromFlags(asJSON, asYAML bool) (Format, error) {
	switch {
	case asJSON && asYAML:
		return Table, fmt.Errorf("--json and --yaml are mutually exclusive")
	case asJSON:
		return JSON, nil
	case asYAML:
		return YAML, nil
	default:
		return Table, nil
	}
}

var kindColors = map[types.ResourceKind]*color.Color{
	types.KindAudio: color.New(color.FgMagenta),
	types.KindVideo: color.New(color.FgRed),
	types.KindBook:  color.New(color.FgBlue),
	types.KindNote:  color.New(color.FgYellow),
	types.KindText:  color.New(color.FgWhite),
}

// KindLabel returns the kind padded to a fixed width and colored when the
// terminal supports it.
func KindLabel(k types.ResourceKind) string {
	label := fmt.Sprintf("%-5s", k)
	if c, ok := kindColors[k]; ok {
		return c.Sprint(label)
	}
	return label
}

// Resources writes resources as a numbered table.
func Resources(w io.Writer, rs []types.NormalizedResource) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-5s  %-40s  %-20s  %-10s  %s\n",
		"#", "Kind", "Title", "Author", "Reference", "Media")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for i, r := range rs {
		media := ""
		if r.HasMedia() {
			media = r.MediaLink
		}
		fmt.Fprintf(w, "%-4d  %s  %-40s  %-20s  %-10s  %s\n",
			i+1, KindLabel(r.Kind), truncate(r.Title, 40), truncate(r.Author, 20),
			truncate(r.Reference, 10), media)
	}

	fmt.Fprintf(w, "\n%d results\n", len(rs))
}

// Resource writes one resource as labelled lines.
func Resource(w io.Writer, r types.NormalizedResource) {
	fmt.Fprintf(w, "%-10s %s\n", "Kind:", KindLabel(r.Kind))
	fmt.Fprintf(w, "%-10s %s\n", "Title:", r.Title)
	writeIfSet(w, "Author:", r.Author)
	writeIfSet(w, "Reference:", r.Reference)
	writeIfSet(w, "Subject:", r.Subject)
	writeIfSet(w, "Media:", r.MediaLink)
	writeIfSet(w, "Download:", r.DownloadURL())
}

// State writes the outcome of a search: the results table or the failure
// message, the backend's reading of the query and the open playground.
func State(w io.Writer, st session.State) {
	if st.Error {
		fmt.Fprintf(w, "Search failed: %s\n", st.Message)
		return
	}
	Resources(w, st.Results)

	if st.AILogic != nil {
		fmt.Fprintf(w, "Understood as: %s\n", aiSummary(*st.AILogic))
	}
	if st.Playground.IsOpen() {
		fmt.Fprintf(w, "%s: %s\n", st.Playground.ActiveTitle, st.Playground.ActiveURL)
	}
}

func aiSummary(a types.AILogic) string {
	var parts []string
	for _, kv := range [][2]string{
		{"title", a.Title}, {"category", a.Category}, {"shastra", a.Shastra}, {"gatha", a.Gatha},
	} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	return strings.Join(parts, " ")
}

// History writes the recent queries, most recent first.
func History(w io.Writer, entries []string) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No recent searches.")
		return
	}
	for i, q := range entries {
		fmt.Fprintf(w, "%d. %s\n", i+1, q)
	}
}

// Message writes one chat message. Bot messages carrying a resource are
// followed by its details.
func Message(w io.Writer, m session.Message) {
	who := "you"
	if m.Role == session.RoleBot {
		who = "guide"
	}
	fmt.Fprintf(w, "%s> %s\n", who, m.Text)
	if m.Resource != nil {
		Resource(w, *m.Resource)
	}
}

// Write encodes v in the JSON or YAML format. Table output is left to the
// caller since it depends on v's type.
func Write(w io.Writer, f Format, v any) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("format %d has no encoder", f)
	}
}

func writeIfSet(w io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(w, "%-10s %s\n", label, value)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
