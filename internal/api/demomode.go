package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arrmate/arrmate/internal/registry"
)

// DemoModeRequest is the body of PUT /api/v1/system/demo.
type DemoModeRequest struct {
	Enabled bool `json:"enabled"`
}

// setDemoMode swaps the configured services for in-memory demo backends and
// history for a throwaway database, or back.
// PUT /api/v1/system/demo
func (s *Server) setDemoMode(c echo.Context) error {
	var req DemoModeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := s.SwitchDemoMode(c.Request().Context(), req.Enabled); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"demoMode": req.Enabled,
		"services": s.opts.Registry.Services(),
	})
}

// SwitchDemoMode switches services and database together.
func (s *Server) SwitchDemoMode(ctx context.Context, enabled bool) error {
	services := registry.DemoServices()
	if !enabled {
		cfg := s.opts.Config()
		var err error
		services, err = registry.FromConfig(cfg, cfg.Pipeline.BackendTimeout)
		if err != nil {
			return fmt.Errorf("rebuild configured services: %w", err)
		}
	}

	if s.opts.Database != nil {
		if err := s.opts.Database.SetDemoMode(ctx, enabled); err != nil {
			return err
		}
	}
	if err := s.opts.Registry.Replace(services); err != nil {
		return err
	}

	s.logger.Info().Bool("demoMode", enabled).Int("services", len(services)).Msg("Demo mode switched")
	if s.opts.Hub != nil {
		_ = s.opts.Hub.Broadcast("system:demo", map[string]bool{"enabled": enabled})
	}
	return nil
}
