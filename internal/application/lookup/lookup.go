// Package lookup adapts the PubChem and UniProt clients to the resolver's
// Source contract, with a read-through cache in front of detail lookups.
package lookup

import (
	"context"

	"github.com/turtacn/dtiscope/internal/domain/selection"
	"github.com/turtacn/dtiscope/internal/infrastructure/cache"
	"github.com/turtacn/dtiscope/internal/infrastructure/remote"
)

// CompoundDirectory is the subset of the PubChem client used here.
type CompoundDirectory interface {
	Autocomplete(ctx context.Context, fragment string, limit int) ([]string, error)
	CanonicalSMILES(ctx context.Context, name string) (string, error)
}

// ProteinDirectory is the subset of the UniProt client used here.
type ProteinDirectory interface {
	Search(ctx context.Context, query string, size int) ([]remote.ProteinHit, error)
	Sequence(ctx context.Context, accession string) (string, error)
}

// DrugSource suggests compound names and resolves them to canonical SMILES.
type DrugSource struct {
	dir    CompoundDirectory
	loader *cache.Loader
}

// NewDrugSource returns a DrugSource.  loader may be nil to disable caching.
func NewDrugSource(dir CompoundDirectory, loader *cache.Loader) *DrugSource {
	return &DrugSource{dir: dir, loader: loader}
}

// Suggest returns compound names as label-only suggestions.
func (s *DrugSource) Suggest(ctx context.Context, fragment string, limit int) ([]selection.Suggestion, error) {
	names, err := s.dir.Autocomplete(ctx, fragment, limit)
	if err != nil {
		return nil, err
	}
	out := make([]selection.Suggestion, 0, len(names))
	for _, n := range names {
		out = append(out, selection.Suggestion{Label: n})
	}
	return out, nil
}

// Detail returns the canonical SMILES for the suggestion's label.
func (s *DrugSource) Detail(ctx context.Context, item selection.Suggestion) (string, error) {
	load := func(ctx context.Context) (string, error) { return s.dir.CanonicalSMILES(ctx, item.Label) }
	if s.loader == nil {
		return load(ctx)
	}
	return s.loader.GetOrLoad(ctx, cache.Key("smiles", item.Label), load)
}

// ProteinSource suggests UniProtKB entries and resolves them to sequences.
type ProteinSource struct {
	dir    ProteinDirectory
	loader *cache.Loader
}

// NewProteinSource returns a ProteinSource.  loader may be nil.
func NewProteinSource(dir ProteinDirectory, loader *cache.Loader) *ProteinSource {
	return &ProteinSource{dir: dir, loader: loader}
}

// Suggest returns protein names paired with their accessions.
func (s *ProteinSource) Suggest(ctx context.Context, fragment string, limit int) ([]selection.Suggestion, error) {
	hits, err := s.dir.Search(ctx, fragment, limit)
	if err != nil {
		return nil, err
	}
	out := make([]selection.Suggestion, 0, len(hits))
	for _, h := range hits {
		out = append(out, selection.Suggestion{Label: h.Name, Accession: h.Accession})
	}
	return out, nil
}

// Detail returns the amino-acid sequence for the suggestion's accession.
func (s *ProteinSource) Detail(ctx context.Context, item selection.Suggestion) (string, error) {
	load := func(ctx context.Context) (string, error) { return s.dir.Sequence(ctx, item.Accession) }
	if s.loader == nil {
		return load(ctx)
	}
	return s.loader.GetOrLoad(ctx, cache.Key("fasta", item.Accession), load)
}

//Personal.AI order the ending
