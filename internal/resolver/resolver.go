// Package resolver matches free-text titles against a backend's library and
// external catalog and returns scored candidates.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/registry"
)

// Config holds the matching thresholds.
type Config struct {
	MinSimilarity  float64
	HighConfidence float64
	MaxCandidates  int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{MinSimilarity: 0.6, HighConfidence: 0.92, MaxCandidates: 10}
}

// Options adjust a single resolution.
type Options struct {
	// IncludeCatalog searches the library and the external catalog together
	// instead of falling back to the catalog only when the library has no match.
	IncludeCatalog bool
	// Year restricts candidates to this release year when any candidate has it.
	Year int
}

// Source names where a failed lookup was sent.
type Source string

const (
	SourceLibrary Source = "library"
	SourceCatalog Source = "catalog"
)

// LookupError is returned when a backend call fails during resolution.
type LookupError struct {
	Service string
	Source  Source
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %s lookup failed: %v", e.Service, e.Source, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Resolver scores backend items against a query title.
type Resolver struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a resolver.
func New(cfg Config, logger zerolog.Logger) *Resolver {
	def := DefaultConfig()
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = def.MinSimilarity
	}
	if cfg.HighConfidence <= 0 {
		cfg.HighConfidence = def.HighConfidence
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	return &Resolver{
		cfg:    cfg,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// Config returns the thresholds in use.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Resolve returns candidates for query scored at or above the minimum
// similarity, best first. An empty result means no match. Registry and
// backend failures are returned as errors, never as an empty result.
//
// The library read and the catalog search run concurrently. Unless
// opts.IncludeCatalog is set, a relevant library hit cancels the catalog
// search and only library candidates are returned.
func (r *Resolver) Resolve(ctx context.Context, services registry.Finder, mt intent.MediaType, query string, opts Options) ([]intent.Candidate, error) {
	svc, err := services.Lookup(mt)
	if err != nil {
		return nil, err
	}

	logger := r.logger.With().Str("service", svc.Name).Str("mediaType", string(mt)).Str("query", query).Logger()

	catCtx, cancelCatalog := context.WithCancel(ctx)
	defer cancelCatalog()

	var (
		g          errgroup.Group
		library    []types.LibraryItem
		libraryErr error
		catalog    []types.CatalogItem
		catalogErr error
		libDone    = make(chan struct{})
	)
	g.Go(func() error {
		defer close(libDone)
		library, libraryErr = svc.Client.ListLibrary(ctx)
		return nil
	})
	g.Go(func() error {
		catalog, catalogErr = svc.Client.Search(catCtx, query)
		return nil
	})

	<-libDone
	if libraryErr != nil {
		cancelCatalog()
		_ = g.Wait()
		return nil, &LookupError{Service: svc.Name, Source: SourceLibrary, Err: libraryErr}
	}

	candidates := r.scoreLibrary(library, query)
	if len(candidates) > 0 && !opts.IncludeCatalog {
		cancelCatalog()
		_ = g.Wait()
		logger.Debug().Int("candidates", len(candidates)).Msg("Resolved from library")
		return r.finish(candidates, opts), nil
	}

	_ = g.Wait()
	if catalogErr != nil && !errors.Is(catalogErr, types.ErrNotSupported) {
		return nil, &LookupError{Service: svc.Name, Source: SourceCatalog, Err: catalogErr}
	}

	candidates = mergeCatalog(candidates, r.scoreCatalog(catalog, library, query))
	logger.Debug().Int("library", len(library)).Int("catalog", len(catalog)).Int("candidates", len(candidates)).Msg("Resolved from library and catalog")
	return r.finish(candidates, opts), nil
}

// Resolved reports whether candidates bind unambiguously: exactly one
// candidate at or above the high-confidence threshold.
func (r *Resolver) Resolved(candidates []intent.Candidate) bool {
	return len(candidates) == 1 && candidates[0].Score >= r.cfg.HighConfidence
}

func (r *Resolver) scoreLibrary(items []types.LibraryItem, query string) []intent.Candidate {
	var out []intent.Candidate
	for _, item := range items {
		score := Similarity(query, item.Title)
		if score < r.cfg.MinSimilarity {
			continue
		}
		out = append(out, intent.Candidate{
			ID:        item.ID,
			ForeignID: item.ForeignID,
			Title:     item.Title,
			Year:      item.Year,
			Score:     score,
			InLibrary: true,
		})
	}
	return out
}

// scoreCatalog scores catalog results, marking entries the library already
// holds as local.
func (r *Resolver) scoreCatalog(items []types.CatalogItem, library []types.LibraryItem, query string) []intent.Candidate {
	byForeign := make(map[string]string, len(library))
	for _, item := range library {
		if item.ForeignID != "" {
			byForeign[item.ForeignID] = item.ID
		}
	}

	var out []intent.Candidate
	for _, item := range items {
		score := Similarity(query, item.Title)
		if score < r.cfg.MinSimilarity {
			continue
		}
		c := intent.Candidate{
			ID:        item.LibraryID,
			ForeignID: item.ForeignID,
			Title:     item.Title,
			Year:      item.Year,
			Score:     score,
		}
		if c.ID == "" {
			c.ID = byForeign[item.ForeignID]
		}
		c.InLibrary = c.ID != ""
		out = append(out, c)
	}
	return out
}

// mergeCatalog appends catalog candidates that do not duplicate a library
// candidate.
func mergeCatalog(library, catalog []intent.Candidate) []intent.Candidate {
	seen := make(map[string]bool, len(library))
	for _, c := range library {
		seen[c.ID] = true
	}
	out := library
	for _, c := range catalog {
		if c.InLibrary && seen[c.ID] {
			continue
		}
		if c.InLibrary {
			seen[c.ID] = true
		}
		out = append(out, c)
	}
	return out
}

func (r *Resolver) finish(candidates []intent.Candidate, opts Options) []intent.Candidate {
	if opts.Year > 0 {
		var sameYear []intent.Candidate
		for _, c := range candidates {
			if c.Year == opts.Year {
				sameYear = append(sameYear, c)
			}
		}
		if len(sameYear) > 0 {
			candidates = sameYear
		}
	}

	Rank(candidates)
	if len(candidates) > r.cfg.MaxCandidates {
		candidates = candidates[:r.cfg.MaxCandidates]
	}
	return candidates
}

// Rank sorts candidates by descending score. Ties prefer library items, then
// title, then identifier, so the order is deterministic.
func Rank(candidates []intent.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.InLibrary != b.InLibrary {
			return a.InLibrary
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.ForeignID < b.ForeignID
	})
}
