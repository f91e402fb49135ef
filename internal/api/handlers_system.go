package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arrmate/arrmate/internal/config"
)

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	response := map[string]interface{}{
		"version":   config.Version,
		"commit":    config.Commit,
		"devBuild":  config.IsDevBuild(),
		"startTime": s.startTime.Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
		"services":  len(s.opts.Registry.Services()),
	}
	if s.opts.Database != nil {
		response["demoMode"] = s.opts.Database.IsDemoMode()
	}
	if s.opts.Hub != nil {
		response["websocketClients"] = s.opts.Hub.ClientCount()
	}
	if cfg := s.opts.Config(); cfg != nil {
		response["llmProvider"] = cfg.LLM.Provider
	}
	return c.JSON(http.StatusOK, response)
}

// listServices returns configured services with their last known status.
// ?refresh=true tests every connection first.
// GET /api/v1/services
func (s *Server) listServices(c echo.Context) error {
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
	if !refresh {
		return c.JSON(http.StatusOK, s.opts.Registry.Services())
	}

	infos, err := s.opts.Registry.Refresh(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}
	return c.JSON(http.StatusOK, infos)
}

// getConfig returns the effective configuration with secrets masked.
// GET /api/v1/config
func (s *Server) getConfig(c echo.Context) error {
	cfg := s.opts.Config()
	if cfg == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no configuration loaded")
	}
	return c.JSON(http.StatusOK, cfg.Masked())
}
