package alerts

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/gateway/notify"
	"github.com/clauselens/core/internal/modules/personalization/profile"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	notifier *notify.Service

	compiledMu sync.RWMutex
	compiled   map[string]compiledRule
}

func NewService(db *gorm.DB, logger *zap.Logger, notifier *notify.Service) *Service {
	return &Service{
		db:       db,
		logger:   logger,
		notifier: notifier,
		compiled: make(map[string]compiledRule),
	}
}

func (s *Service) ListRules(userID string, q pagination.Query) ([]models.AlertRuleModel, response.Pagination, error) {
	tx := s.db.Model(&models.AlertRuleModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	var items []models.AlertRuleModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetRule(userID, id string) (*models.AlertRuleModel, error) {
	var rule models.AlertRuleModel
	if err := s.db.First(&rule, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// CreateRule compiles the source before saving so a broken rule never
// reaches the evaluator.
func (s *Service) CreateRule(userID string, dto *CreateRuleDTO) (*models.AlertRuleModel, error) {
	name := strings.TrimSpace(dto.Name)
	compiled, err := compileRuleSource(dto.Source, name)
	if err != nil {
		return nil, err
	}

	rule := models.AlertRuleModel{
		UserID:   userID,
		Name:     name,
		Comment:  strings.TrimSpace(dto.Comment),
		Source:   dto.Source,
		Compiled: compiled,
		Enable:   true,
	}
	if dto.Enable != nil {
		rule.Enable = *dto.Enable
	}
	if err := s.db.Create(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Service) UpdateRule(userID, id string, dto *UpdateRuleDTO) (*models.AlertRuleModel, error) {
	rule, err := s.GetRule(userID, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, errRuleNotFound
	}
	if rule.BuiltIn && (dto.Name != nil || dto.Source != nil) {
		return nil, errBuiltInRule
	}

	updates := map[string]interface{}{}
	if dto.Name != nil && strings.TrimSpace(*dto.Name) != "" {
		updates["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Comment != nil {
		updates["comment"] = strings.TrimSpace(*dto.Comment)
	}
	if dto.Enable != nil {
		updates["enable"] = *dto.Enable
	}
	if dto.Source != nil {
		name := rule.Name
		if n, ok := updates["name"].(string); ok {
			name = n
		}
		compiled, err := compileRuleSource(*dto.Source, name)
		if err != nil {
			return nil, err
		}
		updates["source"] = *dto.Source
		updates["compiled"] = compiled
		updates["last_error"] = ""
	}
	if len(updates) == 0 {
		return rule, nil
	}

	if err := s.db.Model(rule).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.invalidateCompiled(id)
	return s.GetRule(userID, id)
}

func (s *Service) DeleteRule(userID, id string) error {
	rule, err := s.GetRule(userID, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return errRuleNotFound
	}
	if rule.BuiltIn {
		return errBuiltInRule
	}

	if err := s.db.Delete(&models.AlertRuleModel{}, "id = ?", id).Error; err != nil {
		return err
	}
	s.invalidateCompiled(id)
	return nil
}

func (s *Service) invalidateCompiled(id string) {
	s.compiledMu.Lock()
	delete(s.compiled, id)
	s.compiledMu.Unlock()
}

func (s *Service) ListEvents(userID string, q pagination.Query, analysisID, category string) ([]models.AlertEventModel, response.Pagination, error) {
	tx := s.db.Model(&models.AlertEventModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if analysisID != "" {
		tx = tx.Where("analysis_id = ?", analysisID)
	}
	if category != "" {
		tx = tx.Where("category = ?", category)
	}
	var items []models.AlertEventModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// EvaluateAnalysis records alert events for a completed analysis: first the
// threshold flags the aggregator raised, then every enabled custom rule.
// Re-evaluating the same analysis replaces its prior event set. Rule failures
// are stored on the rule row and never fail the analysis.
func (s *Service) EvaluateAnalysis(a *models.AnalysisModel, prof *profile.ComputedProfile, doc *models.DocumentModel) ([]models.AlertEventModel, error) {
	if a == nil || a.Result == nil {
		return nil, nil
	}

	if err := s.db.Where("analysis_id = ?", a.ID).Delete(&models.AlertEventModel{}).Error; err != nil {
		return nil, err
	}

	events := builtinEvents(a, prof)
	ruleNames := map[string]string{}

	rules, err := s.enabledRules(a.UserID)
	if err != nil {
		s.logError("load alert rules", err)
	} else if len(rules) > 0 {
		ctxJSON, err := ruleContextJSON(a, prof, doc)
		if err != nil {
			s.logError("build rule context", err)
		} else {
			for i := range rules {
				rule := &rules[i]
				ev := s.runRule(rule, a, ctxJSON)
				if ev == nil {
					continue
				}
				ruleNames[rule.ID] = rule.Name
				events = append(events, *ev)
			}
		}
	}

	recorded := make([]models.AlertEventModel, 0, len(events))
	for i := range events {
		if err := s.db.Create(&events[i]).Error; err != nil {
			s.logError("record alert event", err)
			continue
		}
		recorded = append(recorded, events[i])
		if s.notifier != nil {
			s.notifier.OnAlertTriggered(&events[i], ruleNames[events[i].RuleID])
		}
	}
	return recorded, nil
}

func (s *Service) enabledRules(userID string) ([]models.AlertRuleModel, error) {
	var rules []models.AlertRuleModel
	err := s.db.
		Where("user_id = ? AND enable = ?", userID, true).
		Order("created_at ASC").
		Find(&rules).Error
	return rules, err
}

// runRule evaluates one rule and returns the event to record, or nil when the
// rule did not match or failed. Bookkeeping columns are updated in place.
func (s *Service) runRule(rule *models.AlertRuleModel, a *models.AnalysisModel, ctxJSON string) *models.AlertEventModel {
	outcome, err := s.evaluateRule(rule, ctxJSON)
	if err != nil {
		s.logError("evaluate rule "+rule.Name, err)
		_ = s.db.Model(rule).Update("last_error", err.Error()).Error
		return nil
	}
	if rule.LastError != "" {
		_ = s.db.Model(rule).Update("last_error", "").Error
	}
	if !outcome.Match {
		return nil
	}

	now := time.Now()
	_ = s.db.Model(rule).Update("last_matched_at", &now).Error

	return &models.AlertEventModel{
		UserID:     a.UserID,
		AnalysisID: a.ID,
		RuleID:     rule.ID,
		Category:   rule.Name,
		Score:      a.Result.OverallRiskScore,
		Message:    ruleMessage(outcome, rule.Name),
	}
}

// builtinEvents maps the aggregator's alert flags onto event rows. Flags only
// exist when a profile was supplied, so a nil profile yields none.
func builtinEvents(a *models.AnalysisModel, prof *profile.ComputedProfile) []models.AlertEventModel {
	res := a.Result
	if res == nil || prof == nil {
		return nil
	}

	flagged := make([]string, 0, len(res.Alerts))
	for name, raised := range res.Alerts {
		if raised {
			flagged = append(flagged, name)
		}
	}
	sort.Strings(flagged)

	out := make([]models.AlertEventModel, 0, len(flagged)+1)
	for _, name := range flagged {
		out = append(out, models.AlertEventModel{
			UserID:     a.UserID,
			AnalysisID: a.ID,
			Category:   name,
			Score:      res.Categories[name].Score,
			Threshold:  prof.AlertThresholds.ThresholdFor(name),
		})
	}
	if res.OverallAlert {
		out = append(out, models.AlertEventModel{
			UserID:     a.UserID,
			AnalysisID: a.ID,
			Category:   "overall",
			Score:      res.OverallRiskScore,
			Threshold:  prof.AlertThresholds.Overall,
		})
	}
	return out
}

func ruleMessage(outcome RuleOutcome, ruleName string) string {
	title := outcome.Title
	if title == "" {
		title = ruleName
	}
	if outcome.Detail == "" {
		return title
	}
	return title + ": " + outcome.Detail
}

// TestRule dry-runs a rule source against a stored analysis. Compile errors
// are returned as errors; evaluation errors land in the result so the editor
// can show them inline.
// TestSavedRule dry-runs an already stored rule against an analysis.
func (s *Service) TestSavedRule(userID, ruleID, analysisID string) (*TestRuleResult, error) {
	rule, err := s.GetRule(userID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, errRuleNotFound
	}
	return s.TestRule(userID, &TestRuleDTO{Source: rule.Source, AnalysisID: analysisID})
}

func (s *Service) TestRule(userID string, dto *TestRuleDTO) (*TestRuleResult, error) {
	if _, err := compileRuleSource(dto.Source, "test"); err != nil {
		return nil, err
	}

	a, err := s.analysisForTest(userID, dto.AnalysisID)
	if err != nil {
		return nil, err
	}

	prof, doc := s.loadRuleInputs(userID, a.DocumentID)
	ctxJSON, err := ruleContextJSON(a, prof, doc)
	if err != nil {
		return nil, err
	}

	rule := models.AlertRuleModel{Name: "test", Source: dto.Source}
	start := time.Now()
	outcome, evalErr := s.evaluateRule(&rule, ctxJSON)

	result := &TestRuleResult{
		RuleOutcome: outcome,
		ElapsedMS:   time.Since(start).Milliseconds(),
	}
	if evalErr != nil {
		result.Error = evalErr.Error()
	}
	return result, nil
}

func (s *Service) analysisForTest(userID, analysisID string) (*models.AnalysisModel, error) {
	var a models.AnalysisModel
	tx := s.db.Where("user_id = ? AND status = ?", userID, models.AnalysisStatusDone)
	if analysisID != "" {
		tx = tx.Where("id = ?", analysisID)
	}
	if err := tx.Order("created_at DESC").First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoAnalysisForTest
		}
		return nil, err
	}
	if a.Result == nil {
		return nil, errNoAnalysisForTest
	}
	return &a, nil
}

// loadRuleInputs fetches the profile and document for the rule context. Both
// are optional; rules must handle their absence.
func (s *Service) loadRuleInputs(userID, documentID string) (*profile.ComputedProfile, *models.DocumentModel) {
	var prof *profile.ComputedProfile
	var pm models.PersonalizationProfileModel
	if err := s.db.First(&pm, "user_id = ?", userID).Error; err == nil {
		prof = pm.Computed()
	}

	var doc *models.DocumentModel
	var dm models.DocumentModel
	if err := s.db.First(&dm, "id = ? AND user_id = ?", documentID, userID).Error; err == nil {
		doc = &dm
	}
	return prof, doc
}

func (s *Service) logError(what string, err error) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.Error("alerts: "+what, zap.Error(err))
}
