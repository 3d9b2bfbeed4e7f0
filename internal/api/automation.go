package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/adpilot/internal/automation"
	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

var validTriggerTypes = map[models.TriggerType]bool{
	models.TriggerScheduled:            true,
	models.TriggerPerformanceThreshold: true,
	models.TriggerBudgetThreshold:      true,
	models.TriggerImportCompletion:     true,
	models.TriggerManual:               true,
}

var validActionTypes = map[models.AutomationAction]bool{
	models.ActionGenerateRecommendations:     true,
	models.ActionApplyRecommendations:        true,
	models.ActionAddNegativeKeywords:         true,
	models.ActionPauseLowPerformers:          true,
	models.ActionEnableHighPerformers:        true,
	models.ActionSyncPerformanceData:         true,
	models.ActionRefreshAdCopy:               true,
	models.ActionAdjustBudgets:               true,
	models.ActionDedupeKeywords:              true,
	models.ActionExportEditorCSV:             true,
	models.ActionCleanupStaleRecommendations: true,
}

type ruleRequest struct {
	Name          *string     `json:"name"`
	TriggerType   *string     `json:"trigger_type"`
	TriggerConfig models.JSON `json:"trigger_config"`
	ActionType    *string     `json:"action_type"`
	ActionConfig  models.JSON `json:"action_config"`
	Enabled       *bool       `json:"enabled"`
}

// handleListRules handles GET /api/v1/automation/rules
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	filter := storage.RuleFilter{
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("enabled"); raw != "" {
		enabled := raw == "true"
		filter.Enabled = &enabled
	}
	if raw := r.URL.Query().Get("action_type"); raw != "" {
		action := models.AutomationAction(raw)
		if !validActionTypes[action] {
			s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid action filter",
				map[string]string{"action_type": "unknown action"})
			return
		}
		filter.ActionType = &action
	}

	rules, err := s.repo.ListAutomationRules(r.Context(), filter)
	if err != nil {
		s.sendStorageError(w, err, "automation rules")
		return
	}
	s.sendList(w, rules, Meta{Count: len(rules), Limit: filter.Limit, Offset: filter.Offset})
}

// handleCreateRule handles POST /api/v1/automation/rules
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	problems := map[string]string{}
	rule := &models.AutomationRule{
		TriggerConfig: req.TriggerConfig,
		ActionConfig:  req.ActionConfig,
		Enabled:       true,
	}

	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		problems["name"] = "required"
	} else {
		rule.Name = strings.TrimSpace(*req.Name)
	}
	if req.TriggerType == nil {
		problems["trigger_type"] = "required"
	} else if !validTriggerTypes[models.TriggerType(*req.TriggerType)] {
		problems["trigger_type"] = "unknown trigger type"
	} else {
		rule.TriggerType = models.TriggerType(*req.TriggerType)
	}
	if req.ActionType == nil {
		problems["action_type"] = "required"
	} else if !validActionTypes[models.AutomationAction(*req.ActionType)] {
		problems["action_type"] = "unknown action type"
	} else {
		rule.ActionType = models.AutomationAction(*req.ActionType)
	}
	if len(problems) == 0 && rule.TriggerType == models.TriggerScheduled {
		next, err := automation.NextRun(rule, time.Now())
		if err != nil {
			problems["trigger_config"] = err.Error()
		} else {
			rule.NextRunAt = next
		}
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid automation rule", problems)
		return
	}

	if err := s.repo.CreateAutomationRule(r.Context(), rule); err != nil {
		s.sendStorageError(w, err, "automation rule")
		return
	}
	if req.Enabled != nil && !*req.Enabled {
		// The insert drops a false enabled flag in favor of the column
		// default, so persist it with a second write
		rule.Enabled = false
		if err := s.repo.UpdateAutomationRule(r.Context(), rule); err != nil {
			s.sendStorageError(w, err, "automation rule")
			return
		}
	}
	s.sendData(w, http.StatusCreated, rule)
}

// handleGetRule handles GET /api/v1/automation/rules/{id}
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.ruleFromPath(w, r)
	if !ok {
		return
	}
	s.sendData(w, http.StatusOK, rule)
}

// handleUpdateRule handles PUT /api/v1/automation/rules/{id}. The next
// run time is recomputed whenever the rule stays scheduled, so a cron
// edit takes effect without waiting for the old slot.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.ruleFromPath(w, r)
	if !ok {
		return
	}

	var req ruleRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	problems := map[string]string{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			problems["name"] = "must not be empty"
		} else {
			rule.Name = name
		}
	}
	if req.TriggerType != nil {
		if !validTriggerTypes[models.TriggerType(*req.TriggerType)] {
			problems["trigger_type"] = "unknown trigger type"
		} else {
			rule.TriggerType = models.TriggerType(*req.TriggerType)
		}
	}
	if req.TriggerConfig != nil {
		rule.TriggerConfig = req.TriggerConfig
	}
	if req.ActionType != nil {
		if !validActionTypes[models.AutomationAction(*req.ActionType)] {
			problems["action_type"] = "unknown action type"
		} else {
			rule.ActionType = models.AutomationAction(*req.ActionType)
		}
	}
	if req.ActionConfig != nil {
		rule.ActionConfig = req.ActionConfig
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if len(problems) == 0 {
		if rule.TriggerType == models.TriggerScheduled {
			next, err := automation.NextRun(rule, time.Now())
			if err != nil {
				problems["trigger_config"] = err.Error()
			} else {
				rule.NextRunAt = next
			}
		} else {
			rule.NextRunAt = nil
		}
	}
	if len(problems) > 0 {
		s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid automation rule", problems)
		return
	}

	if err := s.repo.UpdateAutomationRule(r.Context(), rule); err != nil {
		s.sendStorageError(w, err, "automation rule")
		return
	}
	s.sendData(w, http.StatusOK, rule)
}

// handleDeleteRule handles DELETE /api/v1/automation/rules/{id}
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.ruleFromPath(w, r)
	if !ok {
		return
	}

	if err := s.repo.DeleteAutomationRule(r.Context(), rule.ID); err != nil {
		s.sendStorageError(w, err, "automation rule")
		return
	}
	s.log.Info().Uint("rule_id", rule.ID).Msg("Automation rule deleted")
	s.sendData(w, http.StatusOK, nil)
}

// handleExecuteRule handles POST /api/v1/automation/rules/{id}/execute
func (s *Server) handleExecuteRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.ruleFromPath(w, r)
	if !ok {
		return
	}

	exec, err := s.orch.Execute(r.Context(), rule.ID, models.RunTypeManual)
	if err != nil {
		if errors.Is(err, automation.ErrRuleDisabled) {
			s.sendError(w, http.StatusBadRequest, codeRuleDisabled, "automation rule is disabled")
			return
		}
		s.sendStorageError(w, err, "automation rule")
		return
	}

	if s.metrics != nil {
		s.metrics.AutomationExecutionsTotal.WithLabelValues(string(rule.ActionType), string(exec.Status)).Inc()
	}
	s.sendData(w, http.StatusOK, exec)
}

// handleRuleHistory handles GET /api/v1/automation/rules/{id}/history
func (s *Server) handleRuleHistory(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.ruleFromPath(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	execs, err := s.orch.History(r.Context(), &rule.ID, limit, offset)
	if err != nil {
		s.sendStorageError(w, err, "executions")
		return
	}
	s.sendList(w, execs, Meta{Count: len(execs), Limit: limit, Offset: offset})
}

// handleHistory handles GET /api/v1/automation/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	execs, err := s.orch.History(r.Context(), nil, limit, offset)
	if err != nil {
		s.sendStorageError(w, err, "executions")
		return
	}
	s.sendList(w, execs, Meta{Count: len(execs), Limit: limit, Offset: offset})
}

// handleAutomationStats handles GET /api/v1/automation/stats
func (s *Server) handleAutomationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.orch.Stats(r.Context())
	if err != nil {
		s.sendStorageError(w, err, "automation stats")
		return
	}
	s.sendData(w, http.StatusOK, stats)
}

// handleTemplates handles GET /api/v1/automation/templates
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	templates := automation.Templates()
	s.sendList(w, templates, Meta{Count: len(templates)})
}

func (s *Server) ruleFromPath(w http.ResponseWriter, r *http.Request) (*models.AutomationRule, bool) {
	id, err := idParam(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return nil, false
	}
	rule, err := s.repo.GetAutomationRuleByID(r.Context(), id)
	if err != nil {
		s.sendStorageError(w, err, "automation rule")
		return nil, false
	}
	return rule, true
}
