package reports

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/analysis/passes"
	"github.com/clauselens/core/internal/modules/gateway/notify"
	"github.com/clauselens/core/internal/modules/personalization/profile"
	appconfigs "github.com/clauselens/core/internal/modules/system/core/configs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errAnalysisNotFound = errors.New("analysis not found")
	errAnalysisNotDone  = errors.New("analysis is not finished")
)

type Service struct {
	db       *gorm.DB
	cfgSvc   *appconfigs.Service
	notifier *notify.Service
	logger   *zap.Logger

	// call overrides the provider-backed narrative caller when set.
	call passes.Caller
}

func NewService(db *gorm.DB, cfgSvc *appconfigs.Service, notifier *notify.Service, logger *zap.Logger) *Service {
	return &Service{db: db, cfgSvc: cfgSvc, notifier: notifier, logger: logger}
}

// Get returns the report for a finished analysis, generating and storing it
// on first access. regenerate forces a rebuild.
func (s *Service) Get(ctx context.Context, userID, analysisID string, regenerate bool) (*models.AnalysisModel, error) {
	var a models.AnalysisModel
	if err := s.db.First(&a, "id = ? AND user_id = ?", analysisID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errAnalysisNotFound
		}
		return nil, err
	}
	if a.Status != models.AnalysisStatusDone || a.Result == nil {
		return nil, errAnalysisNotDone
	}
	if a.ReportMarkdown != "" && !regenerate {
		return &a, nil
	}

	doc := s.loadDocument(userID, a.DocumentID)
	pctx := passes.BuildPassContext(s.loadProfile(userID))

	markdown := BuildMarkdown(&a, doc, s.narrative(ctx, &a, pctx))
	html := RenderHTML(markdown)

	if err := s.db.Model(&a).Updates(map[string]interface{}{
		"report_markdown": markdown,
		"report_html":     html,
	}).Error; err != nil {
		return nil, err
	}
	a.ReportMarkdown = markdown
	a.ReportHTML = html

	if s.notifier != nil {
		s.notifier.OnReportGenerated(&a, "markdown")
	}
	return &a, nil
}

// narrative asks the configured report model for a written assessment. Any
// failure degrades to the skeleton-only report.
func (s *Service) narrative(ctx context.Context, a *models.AnalysisModel, pctx *passes.PassContext) string {
	cfg, err := s.cfgSvc.Get()
	if err != nil || !cfg.AI.EnableReports {
		return ""
	}

	call := s.call
	if call == nil {
		provider := passes.SelectProvider(cfg.AI, cfg.AI.ReportModel)
		if provider == nil {
			return ""
		}
		call = passes.ProviderCaller(provider, passes.ReportMaxOutputTokens)
	}

	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return ""
	}
	systemPrompt, prompt := passes.BuildReportPrompt(cfg.AI.ReportTargetLanguage, string(resultJSON), pctx)

	out, err := call(ctx, systemPrompt, prompt)
	if err != nil {
		s.logError("generate narrative", err)
		return ""
	}
	return strings.TrimSpace(out)
}

func (s *Service) loadDocument(userID, documentID string) *models.DocumentModel {
	var doc models.DocumentModel
	if err := s.db.First(&doc, "id = ? AND user_id = ?", documentID, userID).Error; err != nil {
		return nil
	}
	return &doc
}

func (s *Service) loadProfile(userID string) *profile.ComputedProfile {
	var row models.PersonalizationProfileModel
	if err := s.db.First(&row, "user_id = ?", userID).Error; err != nil {
		return nil
	}
	return row.Computed()
}

func (s *Service) logError(what string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Error("reports: "+what, zap.Error(err))
}
