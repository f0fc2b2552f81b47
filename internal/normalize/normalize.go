// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/librarian/pkg/types"
)

const defaultWorkers = 4

// Normalizer turns raw records into NormalizedResources using an alias
// table. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	aliases AliasTable
	workers int
}

// New returns a Normalizer over aliases. workers bounds the parallelism of
// All; values below 1 select the default (4).
func New(aliases AliasTable, workers int) *Normalizer {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Normalizer{aliases: aliases, workers: workers}
}

// Default returns a Normalizer over the built-in alias table.
func Default() *Normalizer {
	return New(DefaultAliases(), defaultWorkers)
}

// Aliases returns the table the normalizer resolves against.
func (n *Normalizer) Aliases() AliasTable {
	return n.aliases
}

// Normalize resolves every canonical attribute of raw for the given kind.
// It never fails: unresolved attributes are left empty and a missing title
// becomes types.UntitledPlaceholder.
func (n *Normalizer) Normalize(raw types.RawRecord, kind types.ResourceKind) types.NormalizedResource {
	ka := n.aliases.forKind(kind)

	res := types.NormalizedResource{Kind: kind}
	res.Title, _ = Resolve(raw, ka.title)
	if res.Title == "" {
		res.Title = types.UntitledPlaceholder
	}
	res.Author, _ = Resolve(raw, ka.author)
	res.Reference, _ = Resolve(raw, ka.reference)
	res.Subject, _ = Resolve(raw, ka.subject)

	link, _ := Resolve(raw, ka.media)
	res.MediaLink = MediaLink(link)
	return res
}

// All normalizes records in parallel. The returned slice has the same order
// as records regardless of completion order.
func (n *Normalizer) All(records []types.TaggedRecord) []types.NormalizedResource {
	out := make([]types.NormalizedResource, len(records))
	var g errgroup.Group
	g.SetLimit(n.workers)
	for i, rec := range records {
		g.Go(func() error {
			out[i] = n.Normalize(rec.Record, rec.Kind)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Normalize resolves raw with the built-in alias table.
func Normalize(raw types.RawRecord, kind types.ResourceKind) types.NormalizedResource {
	return Default().Normalize(raw, kind)
}
