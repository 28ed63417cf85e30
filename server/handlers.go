package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/warren-social/warren/automation"
	"github.com/warren-social/warren/models"
)

const agentHeader = "X-Agent-Handle"

// requireAgent resolves the acting account from the request header. The
// header is populated upstream by the authentication layer, which is outside
// this service.
func (s *Server) requireAgent(c echo.Context) (*models.Account, error) {
	handle := c.Request().Header.Get(agentHeader)
	if handle == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing "+agentHeader+" header")
	}
	acc, err := s.store.GetAccountByHandle(c.Request().Context(), handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown agent handle")
		}
		return nil, err
	}
	return acc, nil
}

func (s *Server) handleListRules(c echo.Context) error {
	agent, err := s.requireAgent(c)
	if err != nil {
		return err
	}
	listings, err := s.rules.ListForAgent(c.Request().Context(), models.Uid(agent.ID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"rules": listings})
}

type ruleUpdateBody struct {
	Kind    string          `json:"kind,omitempty"`
	Enabled *bool           `json:"isEnabled,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

type ruleView struct {
	Kind            automation.RuleKind `json:"kind"`
	Enabled         bool                `json:"isEnabled"`
	Config          json.RawMessage     `json:"config"`
	TriggerCount    int64               `json:"triggerCount"`
	LastTriggeredAt *time.Time          `json:"lastTriggeredAt,omitempty"`
}

func viewOf(r *automation.Rule) ruleView {
	return ruleView{
		Kind:            r.Kind,
		Enabled:         r.Enabled,
		Config:          json.RawMessage(r.Config),
		TriggerCount:    r.TriggerCount,
		LastTriggeredAt: r.LastTriggeredAt,
	}
}

func (s *Server) handleUpsertRule(c echo.Context) error {
	agent, err := s.requireAgent(c)
	if err != nil {
		return err
	}
	kind, err := automation.ParseRuleKind(c.Param("kind"))
	if err != nil {
		return err
	}
	var body ruleUpdateBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	rule, err := s.rules.Upsert(c.Request().Context(), models.Uid(agent.ID), automation.RuleUpdate{
		Kind:    kind,
		Enabled: body.Enabled,
		Config:  body.Config,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewOf(rule))
}

type bulkUpsertBody struct {
	Rules []ruleUpdateBody `json:"rules"`
}

func (s *Server) handleBulkUpsertRules(c echo.Context) error {
	agent, err := s.requireAgent(c)
	if err != nil {
		return err
	}
	var body bulkUpsertBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if len(body.Rules) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no rules in request")
	}
	updates := make([]automation.RuleUpdate, 0, len(body.Rules))
	for _, rb := range body.Rules {
		kind, err := automation.ParseRuleKind(rb.Kind)
		if err != nil {
			return err
		}
		updates = append(updates, automation.RuleUpdate{
			Kind:    kind,
			Enabled: rb.Enabled,
			Config:  rb.Config,
		})
	}
	rules, err := s.rules.BulkUpsert(c.Request().Context(), models.Uid(agent.ID), updates)
	if err != nil {
		return err
	}
	views := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, viewOf(r))
	}
	return c.JSON(http.StatusOK, map[string]any{"rules": views})
}

func (s *Server) handleRemoveRule(c echo.Context) error {
	agent, err := s.requireAgent(c)
	if err != nil {
		return err
	}
	kind, err := automation.ParseRuleKind(c.Param("kind"))
	if err != nil {
		return err
	}
	if err := s.rules.Remove(c.Request().Context(), models.Uid(agent.ID), kind); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListLog(c echo.Context) error {
	agent, err := s.requireAgent(c)
	if err != nil {
		return err
	}
	var kind *automation.RuleKind
	if k := c.QueryParam("kind"); k != "" {
		parsed, err := automation.ParseRuleKind(k)
		if err != nil {
			return err
		}
		kind = &parsed
	}
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	entries, err := s.actions.ListForAgent(c.Request().Context(), models.Uid(agent.ID), kind, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleStats(c echo.Context) error {
	agent, err := s.requireAgent(c)
	if err != nil {
		return err
	}
	stats, err := s.rules.StatsForAgent(c.Request().Context(), models.Uid(agent.ID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListPending(c echo.Context) error {
	agent, err := s.requireAgent(c)
	if err != nil {
		return err
	}
	pending, err := s.actions.ListPendingActions(c.Request().Context(), models.Uid(agent.ID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"pending": pending})
}

func (s *Server) handleCompletePending(c echo.Context) error {
	agent, err := s.requireAgent(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid action id")
	}
	entry, err := s.actions.Complete(c.Request().Context(), uint(id), models.Uid(agent.ID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}
