package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	appcfg "github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/alerts"
	"github.com/clauselens/core/internal/modules/analysis/aggregate"
	"github.com/clauselens/core/internal/modules/analysis/passes"
	"github.com/clauselens/core/internal/modules/document"
	"github.com/clauselens/core/internal/modules/gateway/notify"
	"github.com/clauselens/core/internal/modules/personalization/profile"
	appconfigs "github.com/clauselens/core/internal/modules/system/core/configs"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/clauselens/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	cfgSvc   *appconfigs.Service
	taskSvc  *taskqueue.Service
	docSvc   *document.Service
	alertSvc *alerts.Service
	notifier *notify.Service
	logger   *zap.Logger

	// call overrides the provider-backed pass caller when set.
	call passes.Caller
}

func NewService(db *gorm.DB, cfgSvc *appconfigs.Service, taskSvc *taskqueue.Service, docSvc *document.Service, alertSvc *alerts.Service, notifier *notify.Service, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		cfgSvc:   cfgSvc,
		taskSvc:  taskSvc,
		docSvc:   docSvc,
		alertSvc: alertSvc,
		notifier: notifier,
		logger:   logger,
	}
}

// Create starts an analysis run for a document. A cached done run is returned
// as-is when result reuse is on, and a run already in flight for the document
// is returned instead of starting a second one. Otherwise a fresh row is
// created and either executed inline (Wait) or handed to the task queue; the
// returned task is non-nil only on the queued path.
func (s *Service) Create(ctx context.Context, userID string, dto *CreateAnalysisDTO) (*models.AnalysisModel, *taskqueue.Task, error) {
	doc, err := s.docSvc.GetByID(userID, dto.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, errDocumentNotFound
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return nil, nil, err
	}

	if cfg.AnalysisOpts.ReuseCachedResults && !dto.Force {
		cached, err := s.latestDone(userID, doc.ID)
		if err != nil {
			return nil, nil, err
		}
		if cached != nil {
			return cached, nil, nil
		}
	}

	running, err := s.inFlight(userID, doc.ID)
	if err != nil {
		return nil, nil, err
	}
	if running != nil {
		return running, nil, nil
	}

	assignment := resolveAssignment(cfg, dto)
	provider := passes.SelectProvider(cfg.AI, assignment)
	if provider == nil {
		return nil, nil, errNoProvider
	}

	a := models.AnalysisModel{
		UserID:          userID,
		DocumentID:      doc.ID,
		Status:          models.AnalysisStatusPending,
		Provider:        providerLabel(provider),
		RequestedPasses: clampPasses(dto.Passes, cfg.AnalysisOpts),
	}
	if err := s.db.Create(&a).Error; err != nil {
		return nil, nil, err
	}

	if dto.Wait {
		if err := s.execute(ctx, &a, doc, cfg, provider); err != nil {
			return &a, nil, err
		}
		return &a, nil, nil
	}

	payload := runPayload{AnalysisID: a.ID, UserID: userID}
	if assignment != nil {
		payload.ProviderID = assignment.ProviderID
		payload.Model = assignment.Model
	}
	task, err := s.taskSvc.Enqueue(ctx, TaskTypeAnalysis, payload, a.ID, doc.ID)
	if err != nil {
		s.markFailed(&a, "task queue unavailable")
		return nil, nil, err
	}
	if task.Status == taskqueue.TaskPending {
		go s.executeTask(context.Background(), task.ID, payload)
	}
	return &a, task, nil
}

// Rerun starts a fresh run over the same document as a previous analysis,
// bypassing the cached-result shortcut.
func (s *Service) Rerun(ctx context.Context, userID, id string, wait bool) (*models.AnalysisModel, *taskqueue.Task, error) {
	prev, err := s.Get(userID, id)
	if err != nil {
		return nil, nil, err
	}
	if prev == nil {
		return nil, nil, errAnalysisNotFound
	}
	return s.Create(ctx, userID, &CreateAnalysisDTO{
		DocumentID: prev.DocumentID,
		Passes:     prev.RequestedPasses,
		Wait:       wait,
		Force:      true,
	})
}

func (s *Service) Get(userID, id string) (*models.AnalysisModel, error) {
	var a models.AnalysisModel
	if err := s.db.First(&a, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) List(userID string, q pagination.Query, documentID, status string) ([]models.AnalysisModel, response.Pagination, error) {
	tx := s.db.Model(&models.AnalysisModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if documentID != "" {
		tx = tx.Where("document_id = ?", documentID)
	}
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var items []models.AnalysisModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// Delete removes the analysis and the alert events it produced.
func (s *Service) Delete(userID, id string) error {
	a, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	if a == nil {
		return errAnalysisNotFound
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("analysis_id = ?", id).Delete(&models.AlertEventModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AnalysisModel{}, "id = ?", id).Error
	})
}

// execute drives the passes for one analysis row and persists the outcome.
// All passes failing marks the row failed with "analysis unavailable".
func (s *Service) execute(ctx context.Context, a *models.AnalysisModel, doc *models.DocumentModel, cfg *appcfg.FullConfig, provider *appcfg.AIProvider) error {
	s.markRunning(a)
	if s.notifier != nil {
		s.notifier.OnAnalysisStarted(a)
	}

	prof := s.loadProfile(a.UserID)

	req := passes.Request{
		Provider: provider,
		Passes:   a.RequestedPasses,
		Timeout:  time.Duration(cfg.AnalysisOpts.PassTimeoutSeconds) * time.Second,
		Kind:     doc.Kind,
		Title:    doc.Title,
		Text:     doc.Text,
		Context:  passes.BuildPassContext(prof),
		Call:     s.call,
		OnPass: func(done, total int) {
			if s.notifier != nil {
				s.notifier.OnAnalysisPassCompleted(a, done, total)
			}
		},
	}
	settled, err := passes.Run(ctx, req)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, passes.ErrAllPassesFailed) {
			reason = "analysis unavailable"
			err = errAnalysisUnavailable
		}
		s.markFailed(a, reason)
		if s.notifier != nil {
			s.notifier.OnAnalysisFailed(a, reason)
		}
		return err
	}

	result, err := aggregate.Aggregate(settled, prof)
	if err != nil {
		s.markFailed(a, "analysis unavailable")
		if s.notifier != nil {
			s.notifier.OnAnalysisFailed(a, "analysis unavailable")
		}
		return errAnalysisUnavailable
	}

	now := time.Now()
	a.Passes = settled
	a.Result = result
	a.OverallScore = result.OverallRiskScore
	a.RiskLevel = string(result.RiskLevel)
	a.Status = models.AnalysisStatusDone
	a.Error = ""
	a.FinishedAt = &now
	if err := s.db.Save(a).Error; err != nil {
		return err
	}

	if s.alertSvc != nil {
		if _, err := s.alertSvc.EvaluateAnalysis(a, prof, doc); err != nil {
			s.logError("evaluate alerts", err)
		}
	}
	if s.notifier != nil {
		s.notifier.OnAnalysisCompleted(a)
	}
	return nil
}

// executeTask runs one queued analysis and mirrors its outcome onto the task.
func (s *Service) executeTask(ctx context.Context, taskID string, payload runPayload) {
	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	a, err := s.Get(payload.UserID, payload.AnalysisID)
	if err != nil || a == nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, "analysis not found")
		return
	}
	if a.Status == models.AnalysisStatusCanceled {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCancelled, nil, "cancelled by user")
		return
	}

	doc, err := s.docSvc.GetByID(a.UserID, a.DocumentID)
	if err != nil || doc == nil {
		s.markFailed(a, "document not found")
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, "document not found")
		return
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil {
		s.markFailed(a, err.Error())
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	assignment := payloadAssignment(payload)
	if assignment == nil {
		assignment = cfg.AI.AnalysisModel
	}
	provider := passes.SelectProvider(cfg.AI, assignment)
	if provider == nil {
		s.markFailed(a, errNoProvider.Error())
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, errNoProvider.Error())
		return
	}

	if err := s.execute(ctx, a, doc, cfg, provider); err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, a.Error)
		return
	}

	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, map[string]interface{}{
		"analysis_id":   a.ID,
		"overall_score": a.OverallScore,
		"risk_level":    a.RiskLevel,
	}, "")
}

// requeue re-enqueues a failed or cancelled run against its existing row.
func (s *Service) requeue(ctx context.Context, payload runPayload) (*taskqueue.Task, error) {
	a, err := s.Get(payload.UserID, payload.AnalysisID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errAnalysisNotFound
	}

	if err := s.db.Model(a).Updates(map[string]interface{}{
		"status": models.AnalysisStatusPending,
		"error":  "",
	}).Error; err != nil {
		return nil, err
	}
	a.Status = models.AnalysisStatusPending
	a.Error = ""

	task, err := s.taskSvc.Enqueue(ctx, TaskTypeAnalysis, payload, a.ID, a.DocumentID)
	if err != nil {
		return nil, err
	}
	if task.Status == taskqueue.TaskPending {
		go s.executeTask(context.Background(), task.ID, payload)
	}
	return task, nil
}

// markTaskAnalysisCanceled flips a queued run's analysis row to canceled so it
// does not linger as pending. Rows already running are left to the executor.
func (s *Service) markTaskAnalysisCanceled(task *taskqueue.Task) {
	var payload runPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return
	}
	if payload.AnalysisID == "" {
		return
	}
	s.db.Model(&models.AnalysisModel{}).
		Where("id = ? AND user_id = ? AND status = ?", payload.AnalysisID, payload.UserID, models.AnalysisStatusPending).
		Update("status", models.AnalysisStatusCanceled)
}

func (s *Service) latestDone(userID, documentID string) (*models.AnalysisModel, error) {
	var a models.AnalysisModel
	err := s.db.Where("user_id = ? AND document_id = ? AND status = ?", userID, documentID, models.AnalysisStatusDone).
		Order("created_at DESC").
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) inFlight(userID, documentID string) (*models.AnalysisModel, error) {
	var a models.AnalysisModel
	err := s.db.Where("user_id = ? AND document_id = ? AND status IN ?",
		userID, documentID, []string{models.AnalysisStatusPending, models.AnalysisStatusRunning}).
		Order("created_at DESC").
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) loadProfile(userID string) *profile.ComputedProfile {
	var row models.PersonalizationProfileModel
	if err := s.db.First(&row, "user_id = ?", userID).Error; err != nil {
		return nil
	}
	return row.Computed()
}

func (s *Service) markRunning(a *models.AnalysisModel) {
	if err := s.db.Model(a).Update("status", models.AnalysisStatusRunning).Error; err != nil {
		s.logError("mark analysis running", err)
	}
	a.Status = models.AnalysisStatusRunning
}

func (s *Service) markFailed(a *models.AnalysisModel, reason string) {
	now := time.Now()
	if err := s.db.Model(a).Updates(map[string]interface{}{
		"status":      models.AnalysisStatusFailed,
		"error":       reason,
		"finished_at": now,
	}).Error; err != nil {
		s.logError("mark analysis failed", err)
	}
	a.Status = models.AnalysisStatusFailed
	a.Error = reason
	a.FinishedAt = &now
}

func (s *Service) logError(what string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Error("analysis: "+what, zap.Error(err))
}

// clampPasses resolves a requested pass count against configured bounds.
func clampPasses(requested int, opts appcfg.AnalysisOptions) int {
	n := requested
	if n <= 0 {
		n = opts.DefaultPasses
	}
	if n <= 0 {
		n = 1
	}
	if opts.MaxPasses > 0 && n > opts.MaxPasses {
		n = opts.MaxPasses
	}
	return n
}

// resolveAssignment prefers the request's provider/model override over the
// configured analysis assignment.
func resolveAssignment(cfg *appcfg.FullConfig, dto *CreateAnalysisDTO) *appcfg.AIModelAssignment {
	if dto != nil {
		providerID := strings.TrimSpace(dto.ProviderID)
		model := strings.TrimSpace(dto.Model)
		if providerID != "" || model != "" {
			return &appcfg.AIModelAssignment{ProviderID: providerID, Model: model}
		}
	}
	return cfg.AI.AnalysisModel
}

func payloadAssignment(payload runPayload) *appcfg.AIModelAssignment {
	providerID := strings.TrimSpace(payload.ProviderID)
	model := strings.TrimSpace(payload.Model)
	if providerID == "" && model == "" {
		return nil
	}
	return &appcfg.AIModelAssignment{ProviderID: providerID, Model: model}
}

func providerLabel(p *appcfg.AIProvider) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(p.Type)
	}
	if model := strings.TrimSpace(p.DefaultModel); model != "" {
		if name == "" {
			return model
		}
		return name + "/" + model
	}
	return name
}
