// Package registry maps media types to the backend service that handles them.
//
// The routing table is immutable once built. Replace swaps in a whole new
// table, so a command that took a Snapshot keeps a consistent view even while
// configuration is reloaded. Availability is tracked separately and updated by
// Refresh.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arrmate/arrmate/internal/arr"
	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
)

var (
	// ErrNotConfigured is returned when no service handles a media type.
	ErrNotConfigured = errors.New("service not configured")
	// ErrUnavailable is returned when the last probe of a service failed.
	ErrUnavailable = errors.New("service unavailable")
)

const (
	defaultProbeTimeout = 10 * time.Second
	maxConcurrentProbes = 4
)

// Broadcaster defines the interface for sending WebSocket messages.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Finder is the read side of the registry used while processing a command.
type Finder interface {
	Lookup(mt intent.MediaType) (*Service, error)
	Subtitles() (*Service, error)
}

// Service is one configured backend. Exactly one of Client and Subtitles is
// set: library backends carry a Client, subtitle companions carry Subtitles.
type Service struct {
	Name       string
	Kind       types.Kind
	URL        string
	MediaTypes []intent.MediaType
	Client     types.Client
	Subtitles  types.SubtitleClient
}

// Companion reports whether the service is a subtitle companion.
func (s *Service) Companion() bool {
	return s.Subtitles != nil
}

func (s *Service) testConnection(ctx context.Context) (*types.SystemStatus, error) {
	if s.Companion() {
		return s.Subtitles.TestConnection(ctx)
	}
	return s.Client.TestConnection(ctx)
}

type probeStatus struct {
	available bool
	version   string
	err       string
	checkedAt time.Time
}

// Table is an immutable routing table.
type Table struct {
	services  []*Service
	byMedia   map[intent.MediaType]*Service
	companion *Service
	status    *atomic.Pointer[map[string]probeStatus]
}

// Lookup returns the service for a media type. A service whose last probe
// failed is reported as unavailable; an unprobed service is assumed up.
func (t *Table) Lookup(mt intent.MediaType) (*Service, error) {
	svc, ok := t.byMedia[mt]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNotConfigured, mt.Label())
	}
	if err := t.checkAvailable(svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// Subtitles returns the subtitle companion.
func (t *Table) Subtitles() (*Service, error) {
	if t.companion == nil {
		return nil, fmt.Errorf("%w: no subtitle service", ErrNotConfigured)
	}
	if err := t.checkAvailable(t.companion); err != nil {
		return nil, err
	}
	return t.companion, nil
}

// Services returns every service in the table, sorted by name.
func (t *Table) Services() []*Service {
	out := make([]*Service, len(t.services))
	copy(out, t.services)
	return out
}

func (t *Table) checkAvailable(svc *Service) error {
	if t.status == nil {
		return nil
	}
	st, ok := (*t.status.Load())[svc.Name]
	if ok && !st.available {
		return fmt.Errorf("%w: %s: %s", ErrUnavailable, svc.Name, st.err)
	}
	return nil
}

// Registry holds the current routing table and service availability.
type Registry struct {
	table  atomic.Pointer[Table]
	status atomic.Pointer[map[string]probeStatus]

	// serializes Replace and Refresh writers
	mu sync.Mutex

	probeTimeout time.Duration
	broadcaster  Broadcaster
	logger       zerolog.Logger
}

// New creates a registry holding services.
func New(services []*Service, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		probeTimeout: defaultProbeTimeout,
		logger:       logger.With().Str("component", "registry").Logger(),
	}
	empty := map[string]probeStatus{}
	r.status.Store(&empty)
	if err := r.Replace(services); err != nil {
		return nil, err
	}
	return r, nil
}

// SetBroadcaster sets the WebSocket broadcaster for status updates.
func (r *Registry) SetBroadcaster(b Broadcaster) {
	r.broadcaster = b
}

// SetProbeTimeout sets the per-service timeout used by Refresh.
func (r *Registry) SetProbeTimeout(d time.Duration) {
	if d > 0 {
		r.probeTimeout = d
	}
}

// Snapshot returns the current routing table.
func (r *Registry) Snapshot() *Table {
	return r.table.Load()
}

// Lookup resolves a media type against the current table.
func (r *Registry) Lookup(mt intent.MediaType) (*Service, error) {
	return r.Snapshot().Lookup(mt)
}

// Subtitles returns the subtitle companion of the current table.
func (r *Registry) Subtitles() (*Service, error) {
	return r.Snapshot().Subtitles()
}

// Replace validates services and swaps them in as the new routing table.
// Availability is kept for services whose name, kind and URL are unchanged.
func (r *Registry) Replace(services []*Service) error {
	t, err := buildTable(services)
	if err != nil {
		return err
	}
	t.status = &r.status

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.table.Load()
	kept := map[string]probeStatus{}
	if old != nil {
		prev := *r.status.Load()
		for _, svc := range t.services {
			for _, o := range old.services {
				if o.Name == svc.Name && o.Kind == svc.Kind && o.URL == svc.URL {
					if st, ok := prev[svc.Name]; ok {
						kept[svc.Name] = st
					}
				}
			}
		}
	}
	r.status.Store(&kept)
	r.table.Store(t)

	r.logger.Info().Int("services", len(t.services)).Msg("Service table loaded")
	return nil
}

func buildTable(services []*Service) (*Table, error) {
	t := &Table{byMedia: make(map[intent.MediaType]*Service)}
	names := make(map[string]bool, len(services))
	var errs []error

	for _, svc := range services {
		if names[svc.Name] {
			errs = append(errs, fmt.Errorf("duplicate service name %q", svc.Name))
			continue
		}
		names[svc.Name] = true

		switch {
		case svc.Companion():
			if t.companion != nil {
				errs = append(errs, fmt.Errorf("services %q and %q are both subtitle companions", t.companion.Name, svc.Name))
				continue
			}
			t.companion = svc
		case svc.Client == nil:
			errs = append(errs, fmt.Errorf("service %q has no client", svc.Name))
			continue
		case len(svc.MediaTypes) == 0:
			errs = append(errs, fmt.Errorf("service %q serves no media types", svc.Name))
			continue
		}

		if !svc.Companion() {
			for _, mt := range svc.MediaTypes {
				if other, ok := t.byMedia[mt]; ok {
					errs = append(errs, fmt.Errorf("%s is served by both %q and %q", mt, other.Name, svc.Name))
					continue
				}
				t.byMedia[mt] = svc
			}
		}
		t.services = append(t.services, svc)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sort.Slice(t.services, func(i, j int) bool { return t.services[i].Name < t.services[j].Name })
	return t, nil
}

// Services describes every configured service with its last known status.
func (r *Registry) Services() []intent.ServiceInfo {
	t := r.Snapshot()
	status := *r.status.Load()

	infos := make([]intent.ServiceInfo, 0, len(t.services))
	for _, svc := range t.services {
		info := intent.ServiceInfo{
			Name:       svc.Name,
			Kind:       string(svc.Kind),
			URL:        svc.URL,
			MediaTypes: append([]intent.MediaType(nil), svc.MediaTypes...),
			Available:  true,
		}
		if st, ok := status[svc.Name]; ok {
			checked := st.checkedAt
			info.Available = st.available
			info.Version = st.version
			info.Error = st.err
			info.CheckedAt = &checked
		}
		infos = append(infos, info)
	}
	return infos
}

// Refresh probes every service concurrently and records the results. Probe
// failures are recorded, not returned; the error is non-nil only when ctx
// ends first.
func (r *Registry) Refresh(ctx context.Context) ([]intent.ServiceInfo, error) {
	t := r.Snapshot()

	results := make([]probeStatus, len(t.services))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for i, svc := range t.services {
		g.Go(func() error {
			results[i] = r.probe(gctx, svc)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.table.Load() == t {
		next := make(map[string]probeStatus, len(t.services))
		for i, svc := range t.services {
			next[svc.Name] = results[i]
		}
		r.status.Store(&next)
	}
	r.mu.Unlock()

	infos := r.Services()
	if r.broadcaster != nil {
		_ = r.broadcaster.Broadcast("services:status", infos)
	}
	return infos, nil
}

func (r *Registry) probe(ctx context.Context, svc *Service) probeStatus {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	st := probeStatus{checkedAt: time.Now()}
	status, err := svc.testConnection(ctx)
	if err != nil {
		st.err = err.Error()
		r.logger.Warn().Err(err).Str("service", svc.Name).Str("kind", string(svc.Kind)).Msg("Service probe failed")
		return st
	}
	st.available = true
	if status != nil {
		st.version = status.Version
	}
	r.logger.Debug().Str("service", svc.Name).Str("version", st.version).Msg("Service probe passed")
	return st
}

// MarkUnavailable records a failed probe for a service outside Refresh, for
// example from a start-up check.
func (r *Registry) MarkUnavailable(name string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := *r.status.Load()
	next := make(map[string]probeStatus, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[name] = probeStatus{err: cause.Error(), checkedAt: time.Now()}
	r.status.Store(&next)
}

// NewService builds a Service of the given kind from a client configuration.
// mediaTypes overrides the kind's defaults when non-empty.
func NewService(name string, kind types.Kind, cfg *types.ClientConfig, mediaTypes []intent.MediaType) (*Service, error) {
	svc := &Service{Name: name, Kind: kind, URL: cfg.URL}
	if arr.IsCompanion(kind) {
		sub, err := arr.NewSubtitleClient(kind, cfg)
		if err != nil {
			return nil, err
		}
		svc.Subtitles = sub
		return svc, nil
	}

	client, err := arr.NewClient(kind, cfg)
	if err != nil {
		return nil, err
	}
	svc.Client = client
	svc.MediaTypes = mediaTypes
	if len(svc.MediaTypes) == 0 {
		svc.MediaTypes = arr.DefaultMediaTypes(kind)
	}
	return svc, nil
}
