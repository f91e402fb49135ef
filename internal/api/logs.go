package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/logger"
)

// LogsProvider provides access to log data. *logger.Logger implements it.
type LogsProvider interface {
	Recent(minLevel zerolog.Level, limit int) []logger.LogEntry
	FilePath() string
}

// LogsHandlers handles log-related HTTP endpoints.
type LogsHandlers struct {
	provider LogsProvider
}

// NewLogsHandlers creates a new logs handlers instance.
func NewLogsHandlers(provider LogsProvider) *LogsHandlers {
	return &LogsHandlers{provider: provider}
}

// RegisterRoutes registers log routes on the given group.
func (h *LogsHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetRecentLogs)
	g.GET("/download", h.DownloadLogFile)
}

// GetRecentLogs returns buffered log entries, optionally filtered with
// ?level=warn and capped with ?limit=100.
// GET /api/v1/system/logs
func (h *LogsHandlers) GetRecentLogs(c echo.Context) error {
	level := zerolog.TraceLevel
	if raw := c.QueryParam("level"); raw != "" {
		level = logger.ParseLevel(raw)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	logs := h.provider.Recent(level, limit)
	if logs == nil {
		logs = []logger.LogEntry{}
	}
	return c.JSON(http.StatusOK, logs)
}

// DownloadLogFile serves the current log file for download.
// GET /api/v1/system/logs/download
func (h *LogsHandlers) DownloadLogFile(c echo.Context) error {
	logPath := h.provider.FilePath()
	if logPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no log file configured")
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, "log file not found")
	}

	return c.Attachment(logPath, logger.FileName)
}
