package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/gateway/gateway"
	"github.com/clauselens/core/internal/modules/gateway/webhook"
	appconfigs "github.com/clauselens/core/internal/modules/system/core/configs"
	"github.com/clauselens/core/internal/pkg/bark"
	pkgmail "github.com/clauselens/core/internal/pkg/mail"
	"gorm.io/gorm"
)

// Service fans one domain event out to every configured channel: socket push
// to the owning user, webhooks, email, and Bark. Channel failures are
// swallowed so a dead SMTP server never blocks an analysis.
type Service struct {
	db         *gorm.DB
	cfgSvc     *appconfigs.Service
	webhookSvc *webhook.Service
	barkSvc    *bark.Service
	hub        *gateway.Hub
}

func New(db *gorm.DB, cfgSvc *appconfigs.Service, webhookSvc *webhook.Service, barkSvc *bark.Service, hub *gateway.Hub) *Service {
	return &Service{
		db:         db,
		cfgSvc:     cfgSvc,
		webhookSvc: webhookSvc,
		barkSvc:    barkSvc,
		hub:        hub,
	}
}

// OnAnalysisStarted pushes the lifecycle event to the user's devices and
// dispatches webhooks.
func (s *Service) OnAnalysisStarted(a *models.AnalysisModel) {
	if a == nil {
		return
	}
	s.emitUser(a.UserID, "ANALYSIS_STARTED", analysisEventPayload(a))
	s.dispatch("ANALYSIS_STARTED", a)
}

// OnAnalysisPassCompleted reports per-pass progress to the user's devices.
// Webhooks are skipped; external consumers only care about terminal states.
func (s *Service) OnAnalysisPassCompleted(a *models.AnalysisModel, passNumber, totalPasses int) {
	if a == nil {
		return
	}
	payload := analysisEventPayload(a)
	payload["pass"] = passNumber
	payload["totalPasses"] = totalPasses
	s.emitUser(a.UserID, "ANALYSIS_PASS_COMPLETED", payload)
}

// OnAnalysisCompleted pushes the final result event and dispatches webhooks.
func (s *Service) OnAnalysisCompleted(a *models.AnalysisModel) {
	if a == nil {
		return
	}
	payload := analysisEventPayload(a)
	payload["overallScore"] = a.OverallScore
	payload["riskLevel"] = a.RiskLevel
	s.emitUser(a.UserID, "ANALYSIS_COMPLETED", payload)
	s.dispatch("ANALYSIS_COMPLETED", a)
	s.recordActivity("analysis_completed", map[string]interface{}{
		"user_id":     a.UserID,
		"analysis_id": a.ID,
		"document_id": a.DocumentID,
		"risk_level":  a.RiskLevel,
		"score":       a.OverallScore,
	})
}

// OnAnalysisFailed pushes the failure event and dispatches webhooks.
func (s *Service) OnAnalysisFailed(a *models.AnalysisModel, reason string) {
	if a == nil {
		return
	}
	payload := analysisEventPayload(a)
	payload["reason"] = reason
	s.emitUser(a.UserID, "ANALYSIS_FAILED", payload)
	s.dispatch("ANALYSIS_FAILED", a)
	s.recordActivity("analysis_failed", map[string]interface{}{
		"user_id":     a.UserID,
		"analysis_id": a.ID,
		"document_id": a.DocumentID,
		"reason":      reason,
	})
}

// OnReportGenerated announces a rendered report to the user's devices.
func (s *Service) OnReportGenerated(a *models.AnalysisModel, format string) {
	if a == nil {
		return
	}
	payload := analysisEventPayload(a)
	payload["format"] = format
	s.emitUser(a.UserID, "REPORT_GENERATED", payload)
	s.dispatch("REPORT_GENERATED", payload)
}

// OnAlertTriggered is called when an alert event has been recorded. It pushes
// the event over the socket, dispatches webhooks, notifies the operator via
// Bark, and emails the user, honoring quiet hours and the daily mail cap.
func (s *Service) OnAlertTriggered(ev *models.AlertEventModel, ruleName string) {
	if ev == nil {
		return
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil || cfg == nil {
		return
	}

	s.dispatch("ALERT_TRIGGERED", ev)
	s.recordActivity("alert_triggered", map[string]interface{}{
		"user_id":     ev.UserID,
		"analysis_id": ev.AnalysisID,
		"rule":        ruleName,
		"category":    ev.Category,
		"score":       ev.Score,
	})

	if cfg.AlertOptions.EnableSocket && s.hub != nil {
		s.hub.BroadcastUser(ev.UserID, "ALERT_TRIGGERED", alertEventPayload(ev, ruleName))
	}

	if s.barkSvc != nil && cfg.BarkOptions.Enable && cfg.BarkOptions.EnableAlert {
		title := fmt.Sprintf("Alert: %s", firstNonEmpty(ruleName, ev.Category))
		body := ev.Message
		if body == "" {
			body = fmt.Sprintf("%s scored %s (threshold %s)", ev.Category,
				strconv.FormatFloat(ev.Score, 'f', 1, 64),
				strconv.FormatFloat(ev.Threshold, 'f', 1, 64))
		}
		_ = s.barkSvc.Push(title, body)
	}

	if s.shouldMail(cfg, ev) {
		if s.sendAlertMail(cfg, ev) {
			s.db.Model(ev).Update("notified", true)
		}
	}
}

func (s *Service) shouldMail(cfg *config.FullConfig, ev *models.AlertEventModel) bool {
	if !cfg.AlertOptions.EnableMail || !cfg.MailOptions.Enable {
		return false
	}
	if inQuietHours(time.Now(), cfg.AlertOptions.QuietHoursStart, cfg.AlertOptions.QuietHoursEnd) {
		return false
	}
	return s.mailBudgetLeft(ev.UserID, cfg.AlertOptions.MaxPerDay)
}

// mailBudgetLeft reports whether the user is still under today's alert mail
// cap. A cap of zero or less means unlimited.
func (s *Service) mailBudgetLeft(userID string, maxPerDay int) bool {
	if maxPerDay <= 0 {
		return true
	}
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var sent int64
	err := s.db.Model(&models.AlertEventModel{}).
		Where("user_id = ? AND notified = ? AND created_at >= ?", userID, true, dayStart).
		Count(&sent).Error
	if err != nil {
		return false
	}
	return sent < int64(maxPerDay)
}

func (s *Service) sendAlertMail(cfg *config.FullConfig, ev *models.AlertEventModel) bool {
	var user models.UserModel
	if err := s.db.Select("mail").First(&user, "id = ?", ev.UserID).Error; err != nil {
		return false
	}
	to := strings.TrimSpace(user.Mail)
	if to == "" {
		return false
	}

	docTitle, summary, keyPoints, riskLevel := s.analysisContext(ev.AnalysisID)

	sender := pkgmail.New(pkgmail.BuildMailConfig(cfg))
	sender.Overrides = s.cfgSvc.EmailTemplateOverride
	err := sender.SendRiskAlert(to, pkgmail.RiskAlertData{
		ProductName:   cfg.Extension.ProductName,
		DocumentTitle: docTitle,
		Category:      ev.Category,
		Score:         ev.Score,
		Threshold:     ev.Threshold,
		RiskLevel:     riskLevel,
		Summary:       firstNonEmpty(ev.Message, summary),
		KeyPoints:     keyPoints,
		DetailURL:     analysisDetailURL(cfg, ev.AnalysisID),
	})
	return err == nil
}

// analysisContext pulls the document title and aggregated extras for the
// alert mail. Missing rows degrade to empty fields rather than blocking.
func (s *Service) analysisContext(analysisID string) (docTitle, summary string, keyPoints []string, riskLevel string) {
	var a models.AnalysisModel
	if err := s.db.First(&a, "id = ?", analysisID).Error; err != nil {
		return "", "", nil, ""
	}
	riskLevel = a.RiskLevel
	if a.Result != nil {
		if len(a.Result.Summaries) > 0 {
			summary = a.Result.Summaries[0]
		}
		keyPoints = a.Result.KeyPoints
		if len(keyPoints) > 5 {
			keyPoints = keyPoints[:5]
		}
	}

	var doc models.DocumentModel
	if err := s.db.Select("title").First(&doc, "id = ?", a.DocumentID).Error; err == nil {
		docTitle = doc.Title
	}
	return docTitle, summary, keyPoints, riskLevel
}

func (s *Service) emitUser(userID, event string, payload map[string]interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastUser(userID, event, payload)
}

func (s *Service) dispatch(event string, payload interface{}) {
	if s.webhookSvc == nil {
		return
	}
	s.webhookSvc.Dispatch(event, payload)
}

// recordActivity appends one row to the dashboard activity feed.
func (s *Service) recordActivity(activityType string, payload map[string]interface{}) {
	if s.db == nil {
		return
	}
	_ = s.db.Create(&models.ActivityModel{
		Type:    activityType,
		Payload: payload,
	}).Error
}

func analysisEventPayload(a *models.AnalysisModel) map[string]interface{} {
	return map[string]interface{}{
		"analysisId": a.ID,
		"documentId": a.DocumentID,
		"status":     a.Status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func alertEventPayload(ev *models.AlertEventModel, ruleName string) map[string]interface{} {
	payload := map[string]interface{}{
		"alertId":    ev.ID,
		"analysisId": ev.AnalysisID,
		"category":   ev.Category,
		"score":      ev.Score,
		"threshold":  ev.Threshold,
		"message":    ev.Message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if ruleName != "" {
		payload["rule"] = ruleName
	}
	return payload
}

func analysisDetailURL(cfg *config.FullConfig, analysisID string) string {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL.WebURL), "/")
	if base == "" {
		return ""
	}
	return base + "/analyses/" + analysisID
}

// inQuietHours reports whether now falls inside the configured window.
// Times are "HH:MM"; a window may wrap midnight. Empty bounds disable it.
func inQuietHours(now time.Time, start, end string) bool {
	startMin, okStart := parseClock(start)
	endMin, okEnd := parseClock(end)
	if !okStart || !okEnd || startMin == endMin {
		return false
	}

	nowMin := now.Hour()*60 + now.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	return nowMin >= startMin || nowMin < endMin
}

func parseClock(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
