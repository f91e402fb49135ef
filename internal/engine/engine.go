// Package engine validates raw intents and binds their titles to concrete
// backend items.
//
// ValidateAndEnrich has three terminal outcomes. A resolved intent is
// returned with a nil error. Otherwise the error is a *ValidationError (one
// reason per violated constraint), an *AmbiguityError (ranked candidates for
// the caller to choose from) or a *BackendError (a lookup call failed).
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/registry"
	"github.com/arrmate/arrmate/internal/resolver"
)

// ValidationError lists every reason an intent was rejected.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid command: " + strings.Join(e.Reasons, "; ")
}

// AmbiguityError carries the ranked candidates when a title did not bind to
// exactly one item.
type AmbiguityError struct {
	Query      string
	Candidates []intent.Candidate
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("%q matches %d candidates", e.Query, len(e.Candidates))
}

// BackendError is returned when a backend call fails during resolution.
type BackendError struct {
	Service string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("backend error: %v", e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Engine validates and enriches raw intents.
type Engine struct {
	resolver *resolver.Resolver
	logger   zerolog.Logger
}

// New creates an engine.
func New(res *resolver.Resolver, logger zerolog.Logger) *Engine {
	return &Engine{
		resolver: res,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// ValidateAndEnrich checks raw against every structural constraint and, for
// targeted actions, binds its title to a single backend item.
func (e *Engine) ValidateAndEnrich(ctx context.Context, services registry.Finder, raw intent.Intent) (*intent.Resolved, error) {
	logger := e.logger.With().Str("intent", raw.Summary()).Logger()
	logger.Debug().Msg("Validating intent")

	if reasons := Validate(raw); len(reasons) > 0 {
		logger.Info().Strs("reasons", reasons).Msg("Intent rejected")
		return nil, &ValidationError{Reasons: reasons}
	}

	if !raw.Targeted() {
		logger.Info().Msg("Intent resolved to library scope")
		return intent.BindLibrary(raw), nil
	}

	var (
		resolved *intent.Resolved
		err      error
	)
	if raw.ResolvedID != "" {
		resolved, err = e.bindID(ctx, services, raw)
	} else {
		resolved, err = e.resolveTitle(ctx, services, raw)
	}
	if err != nil {
		var ambiguous *AmbiguityError
		switch {
		case errors.As(err, &ambiguous):
			logger.Info().Int("candidates", len(ambiguous.Candidates)).Msg("Intent is ambiguous")
		case isBackendError(err):
			logger.Warn().Err(err).Msg("Resolution failed")
		default:
			logger.Info().Err(err).Msg("Intent rejected")
		}
		return nil, err
	}

	logger.Info().Str("resolvedId", resolved.ID()).Str("title", resolved.Intent().Title).Msg("Intent resolved")
	return resolved, nil
}

func isBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// Validate returns one reason per violated constraint, or nil.
func Validate(raw intent.Intent) []string {
	var reasons []string

	if !raw.Action.Valid() {
		reasons = append(reasons, fmt.Sprintf("unknown action %q", raw.Action))
	}
	if !raw.MediaType.Valid() {
		reasons = append(reasons, fmt.Sprintf("unknown media type %q", raw.MediaType))
	}

	if raw.MediaType != intent.MediaTypeTV {
		if raw.Season != nil {
			reasons = append(reasons, "season is only valid for TV shows")
		}
		if len(raw.Episodes) > 0 {
			reasons = append(reasons, "episodes are only valid for TV shows")
		}
	} else if len(raw.Episodes) > 0 && raw.Season == nil {
		reasons = append(reasons, "season is required when episodes are given")
	}

	if raw.Season != nil && *raw.Season < 0 {
		reasons = append(reasons, fmt.Sprintf("season %d is negative", *raw.Season))
	}
	seen := make(map[int]bool, len(raw.Episodes))
	for _, ep := range raw.Episodes {
		if ep <= 0 {
			reasons = append(reasons, fmt.Sprintf("episode %d is not a positive number", ep))
			continue
		}
		if seen[ep] {
			reasons = append(reasons, fmt.Sprintf("episode %d is listed more than once", ep))
		}
		seen[ep] = true
	}

	if raw.Action.RequiresTarget() && !raw.HasTitle() && raw.ResolvedID == "" {
		reasons = append(reasons, fmt.Sprintf("a title is required to %s", actionVerb(raw.Action)))
	}
	if raw.Action.IsSubtitle() && raw.MediaType.Valid() &&
		raw.MediaType != intent.MediaTypeTV && raw.MediaType != intent.MediaTypeMovie {
		reasons = append(reasons, fmt.Sprintf("subtitles are only available for TV shows and movies, not %s", raw.MediaType.Label()))
	}
	if raw.Action == intent.ActionDownloadSubtitle && raw.MediaType == intent.MediaTypeTV && raw.Season == nil {
		reasons = append(reasons, "a season is required to download subtitles for a TV show")
	}

	return reasons
}

func actionVerb(a intent.Action) string {
	return strings.ReplaceAll(string(a), "_", " ")
}

// requiresLibrary reports whether the action can only act on items already in
// the library.
func requiresLibrary(a intent.Action) bool {
	switch a {
	case intent.ActionAdd, intent.ActionSearch:
		return false
	default:
		return a.RequiresTarget()
	}
}

func (e *Engine) resolveTitle(ctx context.Context, services registry.Finder, raw intent.Intent) (*intent.Resolved, error) {
	opts := resolver.Options{IncludeCatalog: raw.Action == intent.ActionAdd}
	if year, ok := raw.Criteria.Year(); ok {
		opts.Year = year
	}

	candidates, err := e.resolver.Resolve(ctx, services, raw.MediaType, raw.Title, opts)
	if err != nil {
		return nil, lookupFailure(err)
	}
	if len(candidates) == 0 {
		return nil, &ValidationError{Reasons: []string{fmt.Sprintf("no match found for %q", raw.Title)}}
	}

	high := e.resolver.Config().HighConfidence
	switch {
	case raw.Action == intent.ActionAdd:
		top := candidates[0]
		if top.InLibrary && top.Score >= high {
			return nil, alreadyInLibrary(top)
		}
		// Library items cannot be added, so they are never offered as a choice.
		addable := filterCandidates(candidates, func(c intent.Candidate) bool { return !c.InLibrary })
		if len(addable) == 0 {
			return nil, alreadyInLibrary(top)
		}
		candidates = addable
	case requiresLibrary(raw.Action):
		local := filterCandidates(candidates, func(c intent.Candidate) bool { return c.InLibrary })
		if len(local) == 0 {
			return nil, &ValidationError{Reasons: []string{fmt.Sprintf("%q is not in library", raw.Title)}}
		}
		candidates = local
	}

	if !e.resolver.Resolved(candidates) {
		return nil, &AmbiguityError{Query: raw.Title, Candidates: candidates}
	}
	return intent.Bind(raw, candidates[0])
}

func filterCandidates(candidates []intent.Candidate, keep func(intent.Candidate) bool) []intent.Candidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func alreadyInLibrary(c intent.Candidate) error {
	return &ValidationError{Reasons: []string{fmt.Sprintf("%s is already in library", c.Label())}}
}

// bindID verifies a caller-supplied identifier instead of matching the title.
// ADD identifiers are catalog ids and must not belong to a library item;
// SEARCH accepts a library id or, failing that, a catalog id; other actions
// need a library id.
func (e *Engine) bindID(ctx context.Context, services registry.Finder, raw intent.Intent) (*intent.Resolved, error) {
	svc, err := services.Lookup(raw.MediaType)
	if err != nil {
		return nil, lookupFailure(err)
	}

	if raw.Action == intent.ActionAdd {
		library, err := svc.Client.ListLibrary(ctx)
		if err != nil {
			return nil, &BackendError{Service: svc.Name, Err: err}
		}
		for _, item := range library {
			if item.ForeignID == raw.ResolvedID {
				return nil, alreadyInLibrary(intent.Candidate{Title: item.Title, Year: item.Year})
			}
		}
		return intent.Bind(raw, intent.Candidate{ForeignID: raw.ResolvedID, Title: raw.Title, Score: 1})
	}

	item, err := svc.Client.GetItem(ctx, raw.ResolvedID)
	switch {
	case errors.Is(err, types.ErrNotFound) && raw.Action == intent.ActionSearch:
		return intent.Bind(raw, intent.Candidate{ForeignID: raw.ResolvedID, Title: raw.Title, Score: 1})
	case errors.Is(err, types.ErrNotFound):
		return nil, &ValidationError{Reasons: []string{fmt.Sprintf("item %s is not in library", raw.ResolvedID)}}
	case err != nil:
		return nil, &BackendError{Service: svc.Name, Err: err}
	}

	return intent.Bind(raw, intent.Candidate{
		ID:        item.ID,
		ForeignID: item.ForeignID,
		Title:     item.Title,
		Year:      item.Year,
		Score:     1,
		InLibrary: true,
	})
}

// lookupFailure maps registry failures to validation errors (no backend was
// called) and everything else to backend errors.
func lookupFailure(err error) error {
	if errors.Is(err, registry.ErrNotConfigured) || errors.Is(err, registry.ErrUnavailable) {
		return &ValidationError{Reasons: []string{err.Error()}}
	}
	var le *resolver.LookupError
	if errors.As(err, &le) {
		return &BackendError{Service: le.Service, Err: le}
	}
	return &BackendError{Err: err}
}
