package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/engine"
	"github.com/fyrsmithlabs/gatekeeper/internal/hooks"
	"github.com/fyrsmithlabs/gatekeeper/internal/orchestrator"
	"github.com/fyrsmithlabs/gatekeeper/internal/workflow"
)

// bind decodes the request body and logs failures.
func (s *Server) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid request body",
			zap.String("path", c.Path()),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// engineError maps engine and component errors to HTTP errors.
func engineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrShuttingDown):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, workflow.ErrUnknownPhase),
		errors.Is(err, hooks.ErrUnknownPhase):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrNoActiveWorkflow),
		errors.Is(err, workflow.ErrPhaseOutOfOrder),
		errors.Is(err, workflow.ErrWorkflowFinished):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, hooks.ErrHookNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return err
}

// decodeResult turns a raw JSON result into a string or a generic object.
func decodeResult(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func (s *Server) handleHealth(c echo.Context) error {
	status := "ok"
	if s.engine.Status().ShuttingDown {
		status = "shutting_down"
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: status, Version: s.config.Version})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) handleValidatePre(c echo.Context) error {
	var req ValidatePreRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	res, err := s.engine.ValidatePre(c.Request().Context(), req.Text)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleValidatePost(c echo.Context) error {
	var req ValidatePostRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if len(req.Result) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "result field is required")
	}
	res, err := s.engine.ValidatePost(c.Request().Context(), decodeResult(req.Result))
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleHookMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Hooks().Snapshot())
}

func (s *Server) handleRunPreHooks(c echo.Context) error {
	var req HookRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Tool == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tool field is required")
	}
	res, err := s.engine.RunPreHooks(c.Request().Context(), req.Tool, req.Params, req.Context)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleRunPostHooks(c echo.Context) error {
	var req HookRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Tool == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tool field is required")
	}
	res, err := s.engine.RunPostHooks(c.Request().Context(), req.Tool, req.Params, decodeResult(req.Result), req.Context)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleToggleHook(c echo.Context) error {
	var req HookToggleRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	var err error
	if req.Enabled {
		err = s.engine.Hooks().Enable(req.Phase, req.ID)
	} else {
		err = s.engine.Hooks().Disable(req.Phase, req.ID)
	}
	if err != nil {
		return engineError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleScore(c echo.Context) error {
	var req ScoreRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	rec, err := s.engine.Score(c.Request().Context(), req.Text)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// handleVerify scores without a rollback callback; rollback is a caller
// concern that HTTP clients handle on their side.
func (s *Server) handleVerify(c echo.Context) error {
	var req VerifyRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "threshold must be between 0 and 1")
	}
	res, err := s.engine.Verify(c.Request().Context(), req.Text, req.Threshold, nil)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleDashboard(c echo.Context) error {
	var period time.Duration
	if p := c.QueryParam("period"); p != "" {
		d, err := time.ParseDuration(p)
		if err != nil || d < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "period must be a positive duration such as 1h")
		}
		period = d
	}
	cfg := s.engine.Scoring().Config()
	return c.JSON(http.StatusOK, DashboardResponse{
		Dashboard: s.engine.Dashboard(period),
		Thresholds: Thresholds{
			Excellent: cfg.ExcellentThreshold,
			Warning:   cfg.WarningThreshold,
			Critical:  cfg.CriticalThreshold,
		},
	})
}

func (s *Server) handleCurrentWorkflow(c echo.Context) error {
	w, ok := s.engine.Workflow().Current()
	if !ok {
		return c.JSON(http.StatusOK, WorkflowResponse{})
	}
	return c.JSON(http.StatusOK, WorkflowResponse{Active: true, Workflow: &w})
}

func (s *Server) handleStartWorkflow(c echo.Context) error {
	var req WorkflowStartRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Task) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task field is required")
	}
	res, err := s.engine.StartWorkflow(c.Request().Context(), req.Task)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) handleValidatePhase(c echo.Context) error {
	var req PhaseRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	res, err := s.engine.ValidatePhase(c.Request().Context(), req.Phase, req.Outputs, nil)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleCompleteWorkflow(c echo.Context) error {
	sum, err := s.engine.CompleteWorkflow(c.Request().Context())
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) handleWorkflowHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Workflow().History())
}

func (s *Server) handleOrchestrate(c echo.Context) error {
	var req OrchestrateRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Task) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task field is required")
	}
	retries := s.engine.Orchestrator().Config().MaxRetries
	if req.MaxRetries != nil {
		retries = *req.MaxRetries
	}
	out, err := s.engine.Orchestrate(c.Request().Context(), orchestrator.Request{
		Task:       req.Task,
		MaxRetries: retries,
		Strategy:   req.Strategy,
		Priority:   req.Priority,
		MaxAgents:  req.MaxAgents,
	})
	if err != nil {
		if out != nil && out.FinalStatus == orchestrator.StatusCancelled {
			return c.JSON(http.StatusRequestTimeout, out)
		}
		return engineError(err)
	}
	return c.JSON(http.StatusOK, out)
}
