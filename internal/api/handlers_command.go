package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/arrmate/arrmate/internal/history"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/parser"
	"github.com/arrmate/arrmate/internal/pipeline"
)

// CommandRequest is the body of POST /api/v1/command.
type CommandRequest struct {
	Command string `json:"command"`
	DryRun  bool   `json:"dryRun"`
}

// IntentRequest is the body of POST /api/v1/intent.
type IntentRequest struct {
	Intent *intent.Intent `json:"intent"`
}

// runCommand parses and runs a natural language command.
// POST /api/v1/command
func (s *Server) runCommand(c echo.Context) error {
	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Command) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "command is required")
	}

	resp := s.opts.Pipeline.Run(c.Request().Context(), pipeline.Command{
		Text:   req.Command,
		DryRun: req.DryRun,
		Source: history.SourceAPI,
	})
	return c.JSON(StatusFor(resp), resp)
}

// runIntent resolves and runs a structured intent, typically a
// disambiguation choice carrying resolved_id.
// POST /api/v1/intent
func (s *Server) runIntent(c echo.Context) error {
	var req IntentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Intent == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "intent is required")
	}

	resp := s.opts.Pipeline.RunIntent(c.Request().Context(), *req.Intent, history.SourceAPI)
	return c.JSON(StatusFor(resp), resp)
}

// StatusFor maps the stage a command reached to an HTTP status. Executed
// commands are 200 whatever their outcome; the status is in the body.
func StatusFor(resp *pipeline.Response) int {
	switch resp.Stage {
	case pipeline.StageExecuted, pipeline.StageParsed:
		return http.StatusOK
	case pipeline.StageAmbiguous:
		return http.StatusConflict
	case pipeline.StageRejected:
		return http.StatusUnprocessableEntity
	case pipeline.StageParseFailed:
		if resp.ParseErrorKind == parser.ProviderError {
			return http.StatusBadGateway
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
