package watcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/config"
	"github.com/arrmate/arrmate/internal/registry"
)

// ReloadedEvent is broadcast after services were swapped in.
const ReloadedEvent = "config:reloaded"

// Loader reads a configuration file.
type Loader func(path string) (*config.Config, error)

// Service reloads the services section of the configuration file into the
// registry whenever the file changes. Commands already running keep the
// routing table they started with.
type Service struct {
	watcher     *Watcher
	path        string
	load        Loader
	registry    *registry.Registry
	broadcaster registry.Broadcaster
	hold        func() bool
	logger      zerolog.Logger

	mu      sync.Mutex
	current *config.Config
	reloads int
}

// NewService creates a config reload service for the file at path.
func NewService(path string, reg *registry.Registry, logger zerolog.Logger) (*Service, error) {
	watcher, err := New(DefaultConfig(), logger)
	if err != nil {
		return nil, err
	}

	s := &Service{
		watcher:  watcher,
		path:     path,
		load:     config.Load,
		registry: reg,
		logger:   logger.With().Str("component", "config-watcher").Logger(),
	}
	watcher.SetHandler(s.handleEvents)
	return s, nil
}

// SetBroadcaster sets the WebSocket broadcaster for reload notifications.
func (s *Service) SetBroadcaster(b registry.Broadcaster) {
	s.broadcaster = b
}

// SetHold installs a check consulted on every reload. While it reports true
// the new configuration is recorded but the registry keeps its services, so
// demo backends survive edits to the file.
func (s *Service) SetHold(hold func() bool) {
	s.hold = hold
}

// Start begins watching the configuration file.
func (s *Service) Start() error {
	if s.path == "" {
		return fmt.Errorf("no configuration file to watch")
	}
	if err := s.watcher.AddFile(s.path); err != nil {
		return err
	}
	s.watcher.Start()
	s.logger.Info().Str("path", s.path).Msg("Config watcher started")
	return nil
}

// Stop stops the watcher service.
func (s *Service) Stop() error {
	return s.watcher.Stop()
}

// Current returns the most recently applied configuration, nil before the
// first reload.
func (s *Service) Current() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reloads returns how many times services were swapped in.
func (s *Service) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// handleEvents processes batched file events.
func (s *Service) handleEvents(events []FileEvent) {
	for _, event := range events {
		// a removed file keeps the running configuration
		if event.Op == "create" || event.Op == "write" {
			s.logger.Debug().Str("path", event.Path).Str("op", event.Op).Msg("Config file changed")
			if err := s.Reload(context.Background()); err != nil {
				s.logger.Warn().Err(err).Str("path", s.path).Msg("Config reload rejected, keeping current services")
			}
			return
		}
	}
}

// Reload reads the file, validates it and replaces the registered services.
// An invalid file leaves the registry untouched.
func (s *Service) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg, err := s.load(s.path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	services, err := registry.FromConfig(cfg, cfg.Pipeline.BackendTimeout)
	if err != nil {
		return err
	}
	if s.hold != nil && s.hold() {
		s.mu.Lock()
		s.current = cfg
		s.mu.Unlock()
		s.logger.Info().Msg("Config reloaded while services are held, registry unchanged")
		return nil
	}
	if err := s.registry.Replace(services); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = cfg
	s.reloads++
	s.mu.Unlock()

	s.logger.Info().Int("services", len(services)).Strs("names", cfg.ServiceNames()).Msg("Services reloaded from config")
	if s.broadcaster != nil {
		_ = s.broadcaster.Broadcast(ReloadedEvent, s.registry.Services())
	}
	return nil
}
