// Package executor turns resolved intents into backend calls and aggregates
// the per-step outcomes into an ExecutionResult.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/registry"
	"github.com/arrmate/arrmate/internal/resolver"
)

// DefaultSubtitleLanguage is used when no language criterion is given.
const DefaultSubtitleLanguage = "en"

// maxCatalogResults caps the catalog matches returned by a catalog-only search.
const maxCatalogResults = 5

// OperationError is the failure of one executor step.
type OperationError struct {
	Service string
	Step    string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Step, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// FirstError returns the first failed operation of res as an *OperationError,
// or nil when every operation succeeded.
func FirstError(res intent.ExecutionResult) error {
	for _, op := range res.Operations {
		if !op.Success {
			return &OperationError{Service: op.Service, Step: op.Step, Err: errors.New(op.Error)}
		}
	}
	return nil
}

// Executor runs resolved intents against the registered backends.
type Executor struct {
	logger zerolog.Logger
}

// New creates an executor.
func New(logger zerolog.Logger) *Executor {
	return &Executor{
		logger: logger.With().Str("component", "executor").Logger(),
	}
}

// Execute performs r. Multi-step actions run their steps sequentially in a
// fixed order; nothing is rolled back when a later step fails. A cancelled
// context stops further steps and marks them failed.
func (e *Executor) Execute(ctx context.Context, services registry.Finder, r *intent.Resolved) intent.ExecutionResult {
	in := r.Intent()
	logger := e.logger.With().Str("intent", in.Summary()).Str("resolvedId", r.ID()).Logger()
	logger.Debug().Msg("Executing intent")

	var res intent.ExecutionResult
	if in.Action.IsSubtitle() {
		res = e.executeSubtitles(ctx, services, r, logger)
	} else {
		svc, err := services.Lookup(in.MediaType)
		if err != nil {
			logger.Warn().Err(err).Msg("No service for media type")
			return intent.Failed("lookup", "", err, err.Error())
		}
		s := &step{ctx: ctx, service: svc.Name, logger: logger.With().Str("service", svc.Name).Logger()}
		res = e.dispatch(s, svc.Client, r)
	}

	logger.Info().
		Str("status", string(res.Status)).
		Int("operations", len(res.Operations)).
		Int("succeeded", res.Succeeded()).
		Msg(res.Message)
	return res
}

func (e *Executor) dispatch(s *step, client types.Client, r *intent.Resolved) intent.ExecutionResult {
	in := r.Intent()
	switch in.Action {
	case intent.ActionRemove, intent.ActionDelete:
		if in.MediaType == intent.MediaTypeTV && (in.Season != nil || len(in.Episodes) > 0) {
			return removeEpisodes(s, client, r)
		}
		return removeItem(s, client, r)
	case intent.ActionAdd:
		return addItem(s, client, r)
	case intent.ActionSearch, intent.ActionUpgrade:
		if t := r.Target(); t != nil && !t.InLibrary {
			return searchCatalog(s, client, r)
		}
		return triggerSearch(s, client, r)
	case intent.ActionList:
		return listLibrary(s, client, r)
	case intent.ActionInfo:
		return itemInfo(s, client, r)
	default:
		err := fmt.Errorf("unsupported action %q", in.Action)
		return intent.Failed(string(in.Action), s.service, err, err.Error())
	}
}

// step records operations for one service and logs failures.
type step struct {
	ctx     context.Context
	service string
	logger  zerolog.Logger
	ops     []intent.Operation
}

// do runs fn as the named step unless the context is already done.
func (s *step) do(name string, fn func(ctx context.Context) error) error {
	err := s.ctx.Err()
	if err == nil {
		err = fn(s.ctx)
	}
	s.record(name, err)
	return err
}

func (s *step) record(name string, err error) {
	op := intent.Operation{Step: name, Service: s.service, Success: err == nil}
	if err != nil {
		op.Error = err.Error()
		s.logger.Warn().Err(err).Str("step", name).Msg("Operation failed")
	} else {
		s.logger.Debug().Str("step", name).Msg("Operation succeeded")
	}
	s.ops = append(s.ops, op)
}

func (s *step) result(message string, data any) intent.ExecutionResult {
	return intent.NewResult(s.ops, message, data)
}

func title(r *intent.Resolved) string {
	if t := r.Target(); t != nil {
		return t.Label()
	}
	in := r.Intent()
	if in.HasTitle() {
		return in.Title
	}
	return "item " + r.ID()
}

func episodeStep(verb string, season, episode int) string {
	return fmt.Sprintf("%s S%02dE%02d", verb, season, episode)
}

// removeEpisodes deletes episode files one at a time. A season without
// explicit episodes expands to the season's episodes that have files.
func removeEpisodes(s *step, client types.Client, r *intent.Resolved) intent.ExecutionResult {
	in := r.Intent()
	season := *in.Season
	name := title(r)

	episodes := in.Episodes
	if len(episodes) == 0 {
		listStep := fmt.Sprintf("list season %d", season)
		listed, err := client.ListEpisodes(s.ctx, r.ID(), season)
		if err != nil {
			s.record(listStep, err)
			return s.result(fmt.Sprintf("could not read season %d of %s", season, name), nil)
		}
		if len(listed) == 0 {
			s.record(listStep, fmt.Errorf("season %d: %w", season, types.ErrNotFound))
			return s.result(fmt.Sprintf("season %d of %s not found", season, name), nil)
		}
		episodes = withFiles(listed)
		if len(episodes) == 0 {
			s.record(listStep, fmt.Errorf("season %d: %w", season, types.ErrNoFile))
			return s.result(fmt.Sprintf("season %d of %s has no episode files", season, name), nil)
		}
	}

	for _, ep := range episodes {
		_ = s.do(episodeStep("delete", season, ep), func(ctx context.Context) error {
			return client.DeleteEpisode(ctx, r.ID(), season, ep)
		})
	}

	removed := 0
	for _, op := range s.ops {
		if op.Success {
			removed++
		}
	}
	return s.result(fmt.Sprintf("removed %d of %d episode(s) from %s season %d", removed, len(episodes), name, season), nil)
}

// withFiles returns the numbers of the episodes that have a file, ascending.
func withFiles(eps []types.Episode) []int {
	var out []int
	for _, ep := range eps {
		if ep.HasFile {
			out = append(out, ep.Number)
		}
	}
	sort.Ints(out)
	return out
}

func removeItem(s *step, client types.Client, r *intent.Resolved) intent.ExecutionResult {
	name := title(r)
	err := s.do("delete item", func(ctx context.Context) error {
		return client.DeleteItem(ctx, r.ID(), true)
	})
	if err != nil {
		return s.result(fmt.Sprintf("failed to remove %s", name), nil)
	}
	return s.result(fmt.Sprintf("removed %s from library", name), nil)
}

func addItem(s *step, client types.Client, r *intent.Resolved) intent.ExecutionResult {
	in := r.Intent()
	opts := types.AddOptions{
		Title:       in.Title,
		Monitored:   true,
		SearchOnAdd: true,
	}
	if t := r.Target(); t != nil {
		opts.Year = t.Year
	}
	if q, ok := in.Criteria.Get(intent.CriterionQuality); ok {
		opts.QualityProfile = q
	}

	var added *types.LibraryItem
	err := s.do("add item", func(ctx context.Context) error {
		var err error
		added, err = client.AddItem(ctx, r.ID(), opts)
		return err
	})
	if err != nil {
		return s.result(fmt.Sprintf("failed to add %s", title(r)), nil)
	}
	return s.result(fmt.Sprintf("added %s to library", title(r)), added)
}

func triggerSearch(s *step, client types.Client, r *intent.Resolved) intent.ExecutionResult {
	in := r.Intent()
	req := types.SearchRequest{Criteria: in.Criteria.Map()}
	scope := "missing " + in.MediaType.Label()
	if !r.LibraryScoped() {
		req.ItemID = r.ID()
		req.Season = in.Season
		req.Episodes = in.Episodes
		scope = title(r)
		if in.Season != nil {
			scope += fmt.Sprintf(" season %d", *in.Season)
		}
	}
	if len(in.Criteria) > 0 {
		scope += " (" + in.Criteria.String() + ")"
	}

	if err := s.do("trigger search", func(ctx context.Context) error {
		return client.TriggerSearch(ctx, req)
	}); err != nil {
		return s.result("failed to trigger search for "+scope, nil)
	}
	return s.result("search triggered for "+scope, nil)
}

// searchCatalog answers a SEARCH whose target is not in the library with the
// matching catalog entries. The library is left untouched.
func searchCatalog(s *step, client types.Client, r *intent.Resolved) intent.ExecutionResult {
	in := r.Intent()
	query := in.Title
	if !in.HasTitle() {
		query = r.ID()
	}

	var found []types.CatalogItem
	if err := s.do("catalog search", func(ctx context.Context) error {
		var err error
		found, err = client.Search(ctx, query)
		return err
	}); err != nil {
		return s.result(fmt.Sprintf("catalog search for %q failed", query), nil)
	}
	if len(found) > maxCatalogResults {
		found = found[:maxCatalogResults]
	}
	return s.result(fmt.Sprintf("%q is not in library; found %d catalog match(es)", query, len(found)), found)
}

func listLibrary(s *step, client types.Client, r *intent.Resolved) intent.ExecutionResult {
	in := r.Intent()
	var items []types.LibraryItem
	if err := s.do("list library", func(ctx context.Context) error {
		var err error
		items, err = client.ListLibrary(ctx)
		return err
	}); err != nil {
		return s.result("failed to list "+in.MediaType.Label(), nil)
	}

	if in.HasTitle() {
		filter := resolver.NormalizeTitle(in.Title)
		matched := items[:0:0]
		for _, item := range items {
			if strings.Contains(resolver.NormalizeTitle(item.Title), filter) {
				matched = append(matched, item)
			}
		}
		items = matched
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
	})
	if items == nil {
		items = []types.LibraryItem{}
	}
	return s.result(fmt.Sprintf("found %d %s", len(items), in.MediaType.Label()), items)
}

func itemInfo(s *step, client types.Client, r *intent.Resolved) intent.ExecutionResult {
	var item *types.LibraryItem
	if err := s.do("get item", func(ctx context.Context) error {
		var err error
		item, err = client.GetItem(ctx, r.ID())
		return err
	}); err != nil {
		return s.result("failed to read "+title(r), nil)
	}

	msg := item.Title
	if item.Year > 0 {
		msg = fmt.Sprintf("%s (%d)", item.Title, item.Year)
	}
	if item.HasFile {
		msg += ": on disk"
	} else {
		msg += ": missing"
	}
	if item.Status != "" {
		msg += ", " + item.Status
	}
	return s.result(msg, item)
}
