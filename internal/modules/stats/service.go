package stats

import (
	"time"

	"gorm.io/gorm"

	"github.com/clauselens/core/internal/models"
)

// OnlineCounter exposes live connection counts from the socket gateway.
type OnlineCounter interface {
	ClientCount(room string) int
	OnlineUserCount() int
}

type Service struct {
	db  *gorm.DB
	hub OnlineCounter
}

func NewService(db *gorm.DB, hub OnlineCounter) *Service {
	return &Service{db: db, hub: hub}
}

// Totals are the all-time entity counts shown on the dashboard.
type Totals struct {
	Users     int64 `json:"users"`
	Documents int64 `json:"documents"`
	Analyses  int64 `json:"analyses"`
	Profiles  int64 `json:"profiles"`
	Alerts    int64 `json:"alerts"`
	Rules     int64 `json:"rules"`
}

// WindowCounts are counts scoped to a recent time window.
type WindowCounts struct {
	Documents int64 `json:"documents"`
	Analyses  int64 `json:"analyses"`
	Alerts    int64 `json:"alerts"`
	Requests  int64 `json:"requests"`
}

// Online reports live gateway connections.
type Online struct {
	Clients    int `json:"clients"`
	Extensions int `json:"extensions"`
	Users      int `json:"users"`
}

// Overview is the full dashboard stats payload.
type Overview struct {
	Totals      Totals           `json:"totals"`
	Today       WindowCounts     `json:"today"`
	Week        WindowCounts     `json:"week"`
	RiskLevels  map[string]int64 `json:"risk_levels"`
	Online      Online           `json:"online"`
	GeneratedAt time.Time        `json:"generated_at"`
}

func (s *Service) Overview(now time.Time) (*Overview, error) {
	overview := &Overview{
		RiskLevels:  map[string]int64{},
		GeneratedAt: now.UTC(),
	}

	type totalQuery struct {
		model interface{}
		dest  *int64
	}
	totals := []totalQuery{
		{&models.UserModel{}, &overview.Totals.Users},
		{&models.DocumentModel{}, &overview.Totals.Documents},
		{&models.AnalysisModel{}, &overview.Totals.Analyses},
		{&models.PersonalizationProfileModel{}, &overview.Totals.Profiles},
		{&models.AlertEventModel{}, &overview.Totals.Alerts},
		{&models.AlertRuleModel{}, &overview.Totals.Rules},
	}
	for _, q := range totals {
		if err := s.db.Model(q.model).Count(q.dest).Error; err != nil {
			return nil, err
		}
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -6)
	var err error
	if overview.Today, err = s.windowCounts(dayStart); err != nil {
		return nil, err
	}
	if overview.Week, err = s.windowCounts(weekStart); err != nil {
		return nil, err
	}

	type riskRow struct {
		RiskLevel string
		Count     int64
	}
	var riskRows []riskRow
	if err := s.db.Model(&models.AnalysisModel{}).
		Select("risk_level, COUNT(*) as count").
		Where("status = ? AND risk_level <> ''", models.AnalysisStatusDone).
		Group("risk_level").
		Find(&riskRows).Error; err != nil {
		return nil, err
	}
	for _, row := range riskRows {
		overview.RiskLevels[row.RiskLevel] = row.Count
	}

	if s.hub != nil {
		overview.Online = Online{
			Clients:    s.hub.ClientCount(""),
			Extensions: s.hub.ClientCount("extension"),
			Users:      s.hub.OnlineUserCount(),
		}
	}
	return overview, nil
}

func (s *Service) windowCounts(since time.Time) (WindowCounts, error) {
	var w WindowCounts

	type sinceQuery struct {
		model  interface{}
		column string
		dest   *int64
	}
	queries := []sinceQuery{
		{&models.DocumentModel{}, "created_at", &w.Documents},
		{&models.AnalysisModel{}, "created_at", &w.Analyses},
		{&models.AlertEventModel{}, "created_at", &w.Alerts},
		{&models.RequestLogModel{}, "timestamp", &w.Requests},
	}
	for _, q := range queries {
		if err := s.db.Model(q.model).Where(q.column+" >= ?", since).Count(q.dest).Error; err != nil {
			return WindowCounts{}, err
		}
	}
	return w, nil
}

// PathCount is one row of the top-paths breakdown.
type PathCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// TopPaths returns the most requested API paths since the given time.
func (s *Service) TopPaths(since time.Time, limit int) ([]PathCount, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	rows := make([]PathCount, 0, limit)
	err := s.db.Model(&models.RequestLogModel{}).
		Select("path, COUNT(*) as count").
		Where("timestamp >= ?", since).
		Group("path").
		Order("count DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
