package personalization

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/personalization/profile"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Submit validates a questionnaire response, computes the profile from it
// and stores both. A user has at most one profile; resubmitting replaces it.
func (s *Service) Submit(userID string, r profile.RawPersonalizationResponse) (*models.PersonalizationProfileModel, error) {
	computed, err := profile.Compute(r, time.Now())
	if err != nil {
		return nil, err
	}
	return s.store(userID, r, computed)
}

func (s *Service) GetByUser(userID string) (*models.PersonalizationProfileModel, error) {
	var m models.PersonalizationProfileModel
	if err := s.db.First(&m, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// UpdateSection replaces one section of the stored response and recomputes
// the whole profile from the result. Computed fields are never patched on
// their own; they only ever change together, derived from a full response.
func (s *Service) UpdateSection(userID, section string, body json.RawMessage) (*models.PersonalizationProfileModel, error) {
	m, err := s.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, gorm.ErrRecordNotFound
	}

	r, err := applySection(m.Response, section, body)
	if err != nil {
		return nil, err
	}

	computed, err := profile.Compute(r, time.Now())
	if err != nil {
		return nil, err
	}
	return s.store(userID, r, computed)
}

// applySection returns a copy of r with one section swapped out for the
// decoded body. Fields the body omits end up zero, so an incomplete
// replacement fails the subsequent validation instead of silently keeping
// stale answers.
func applySection(r profile.RawPersonalizationResponse, section string, body json.RawMessage) (profile.RawPersonalizationResponse, error) {
	switch section {
	case SectionDemographics:
		var v profile.Demographics
		if err := json.Unmarshal(body, &v); err != nil {
			return r, fmt.Errorf("%w: %v", errBadSectionBody, err)
		}
		r.Demographics = v
	case SectionDigitalBehavior:
		var v profile.DigitalBehavior
		if err := json.Unmarshal(body, &v); err != nil {
			return r, fmt.Errorf("%w: %v", errBadSectionBody, err)
		}
		r.DigitalBehavior = v
	case SectionRiskPreferences:
		var v profile.RiskPreferences
		if err := json.Unmarshal(body, &v); err != nil {
			return r, fmt.Errorf("%w: %v", errBadSectionBody, err)
		}
		r.RiskPreferences = v
	case SectionContextualFactors:
		var v profile.ContextualFactors
		if err := json.Unmarshal(body, &v); err != nil {
			return r, fmt.Errorf("%w: %v", errBadSectionBody, err)
		}
		r.ContextualFactors = v
	default:
		return r, fmt.Errorf("%w %q", errUnknownSection, section)
	}
	return r, nil
}

// Delete removes the profile for good. The row holds questionnaire answers,
// and the unique index on user_id must free up for a future resubmission, so
// this bypasses the soft delete.
func (s *Service) Delete(userID string) error {
	m, err := s.GetByUser(userID)
	if err != nil {
		return err
	}
	if m == nil {
		return gorm.ErrRecordNotFound
	}
	return s.db.Unscoped().Delete(&models.PersonalizationProfileModel{}, "id = ?", m.ID).Error
}

func (s *Service) AdminList(q pagination.Query) ([]models.PersonalizationProfileModel, response.Pagination, error) {
	tx := s.db.Model(&models.PersonalizationProfileModel{}).Order("computed_at DESC")
	var items []models.PersonalizationProfileModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// RecomputeStale re-runs the computation for every profile whose stored
// version differs from the current one. Stored responses that no longer
// validate are counted as failed and left untouched.
func (s *Service) RecomputeStale() (recomputeReport, error) {
	var stale []models.PersonalizationProfileModel
	if err := s.db.Where("computation_version <> ?", profile.ComputationVersion).Find(&stale).Error; err != nil {
		return recomputeReport{}, err
	}

	report := recomputeReport{Checked: len(stale)}
	now := time.Now()
	for i := range stale {
		m := &stale[i]
		computed, err := profile.Compute(m.Response, now)
		if err != nil {
			report.Failed++
			continue
		}
		m.ApplyComputed(computed)
		if err := s.db.Save(m).Error; err != nil {
			report.Failed++
			continue
		}
		report.Recomputed++
	}
	return report, nil
}

func (s *Service) store(userID string, r profile.RawPersonalizationResponse, computed *profile.ComputedProfile) (*models.PersonalizationProfileModel, error) {
	var m models.PersonalizationProfileModel
	err := s.db.First(&m, "user_id = ?", userID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		m = models.PersonalizationProfileModel{UserID: userID}
	}

	m.Response = r
	m.ApplyComputed(computed)

	if m.ID == "" {
		err = s.db.Create(&m).Error
	} else {
		err = s.db.Save(&m).Error
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
