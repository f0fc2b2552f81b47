// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"os"
	"slices"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/librarian/pkg/types"
)

// defaultMediaKey is the MediaLink entry used by kinds without their own list.
const defaultMediaKey = "default"

// AliasTable lists, per canonical attribute, the raw column names that may
// hold it, highest priority first. Supporting a new backend table means
// adding its column names here, not new lookup code.
type AliasTable struct {
	Title     []string `yaml:"title"`
	Author    []string `yaml:"author"`
	Reference []string `yaml:"reference"`
	Subject   []string `yaml:"subject"`

	// MediaLink is keyed by resource kind; "default" covers book, note and text.
	MediaLink map[string][]string `yaml:"media_link"`
}

// personAliases hold the speaker's name in pravachan tables and a work's
// name elsewhere.
var personAliases = []string{"full_name", "FullName"}

// DefaultAliases returns the built-in alias table covering every known
// archive table.
func DefaultAliases() AliasTable {
	return AliasTable{
		Title:     []string{"shastra_name", "ShastraName", "shastraname", "Shastra", "full_name", "FullName", "title"},
		Author:    []string{"rachayita", "Rachayita", "rachaita", "author"},
		Reference: []string{"gatha_no_bol_no", "GathaNoBolNo", "gatha", "Gatha", "gatha_no"},
		Subject:   []string{"adhikar", "Adhikar", "Subject"},
		MediaLink: map[string][]string{
			defaultMediaKey:         {"FilePath", "file_path", "Hindi", "hindi", "GujFile", "gujarati", "hindi_pdf", "pdf_url"},
			string(types.KindVideo): {"videl_subtitle", "Gujarati", "Hindi", "hindi", "gujarati"},
			string(types.KindAudio): {"FilePath", "file_path", "audio_url"},
		},
	}
}

// Merge returns a copy of t with extra's aliases appended after t's own, so
// built-in priorities are never displaced. Duplicate names are dropped.
func (t AliasTable) Merge(extra AliasTable) AliasTable {
	out := AliasTable{
		Title:     appendUnique(t.Title, extra.Title),
		Author:    appendUnique(t.Author, extra.Author),
		Reference: appendUnique(t.Reference, extra.Reference),
		Subject:   appendUnique(t.Subject, extra.Subject),
		MediaLink: make(map[string][]string, len(t.MediaLink)),
	}
	for k, v := range t.MediaLink {
		out.MediaLink[k] = slices.Clone(v)
	}
	if v, ok := extra.MediaLink[defaultMediaKey]; ok {
		out.MediaLink[defaultMediaKey] = appendUnique(out.MediaLink[defaultMediaKey], v)
	}
	for k, v := range extra.MediaLink {
		if k == defaultMediaKey {
			continue
		}
		base, ok := out.MediaLink[k]
		if !ok {
			// A kind gaining its own list keeps the default aliases ahead of the new ones.
			base = out.MediaLink[defaultMediaKey]
		}
		out.MediaLink[k] = appendUnique(base, v)
	}
	return out
}

// forKind returns the lists used for one resource kind. In pravachan tables
// the full-name column names the speaker, so it moves from title to the end
// of the author list.
func (t AliasTable) forKind(kind types.ResourceKind) kindAliases {
	ka := kindAliases{
		title:     t.Title,
		author:    t.Author,
		reference: t.Reference,
		subject:   t.Subject,
		media:     t.mediaFor(kind),
	}
	if kind.IsPravachan() {
		ka.title = slices.DeleteFunc(slices.Clone(t.Title), func(a string) bool {
			return slices.Contains(personAliases, a)
		})
		ka.author = appendUnique(t.Author, personAliases)
	}
	return ka
}

func (t AliasTable) mediaFor(kind types.ResourceKind) []string {
	if l, ok := t.MediaLink[string(kind)]; ok {
		return l
	}
	return t.MediaLink[defaultMediaKey]
}

type kindAliases struct {
	title, author, reference, subject, media []string
}

// LoadAliasFile reads an alias overlay from a YAML file. The overlay uses
// the same shape as AliasTable; omitted attributes add nothing.
func LoadAliasFile(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AliasTable{}, fmt.Errorf("reading alias file: %w", err)
	}
	var t AliasTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return AliasTable{}, fmt.Errorf("parsing alias file %s: %w", path, err)
	}
	return t, nil
}

func appendUnique(base, extra []string) []string {
	out := slices.Clone(base)
	for _, a := range extra {
		if a != "" && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}
