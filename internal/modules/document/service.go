package document

import (
	"errors"
	"strings"

	"github.com/clauselens/core/internal/models"
	appconfigs "github.com/clauselens/core/internal/modules/system/core/configs"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	cfgSvc *appconfigs.Service
}

func NewService(db *gorm.DB, cfgSvc *appconfigs.Service) *Service {
	return &Service{db: db, cfgSvc: cfgSvc}
}

// Capture stores a submitted document for a user, extracting text from HTML
// when no plain text was provided. Resubmitting the same text returns the
// existing row; the bool reports whether a new row was created.
func (s *Service) Capture(userID string, dto *CaptureDocumentDTO) (*models.DocumentModel, bool, error) {
	text := strings.TrimSpace(dto.Text)
	if text == "" && strings.TrimSpace(dto.HTML) != "" {
		text = ExtractText(dto.HTML)
	}
	text = NormalizeText(text)
	if text == "" {
		return nil, false, errEmptyDocument
	}

	maxKB := 0
	if s.cfgSvc != nil {
		if cfg, err := s.cfgSvc.Get(); err == nil && cfg != nil {
			maxKB = cfg.AnalysisOpts.MaxDocumentKB
		}
	}
	if maxKB > 0 && len(text) > maxKB*1024 {
		return nil, false, errDocumentTooLarge
	}

	hash := HashText(text)
	var existing models.DocumentModel
	err := s.db.Where("user_id = ? AND hash = ?", userID, hash).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	doc := models.DocumentModel{
		UserID:    userID,
		Hash:      hash,
		Title:     strings.TrimSpace(dto.Title),
		SourceURL: strings.TrimSpace(dto.SourceURL),
		Kind:      normalizeKind(dto.Kind),
		Text:      text,
		WordCount: CountWords(text),
	}
	if err := s.db.Create(&doc).Error; err != nil {
		return nil, false, err
	}
	return &doc, true, nil
}

func (s *Service) GetByID(userID, id string) (*models.DocumentModel, error) {
	var doc models.DocumentModel
	if err := s.db.First(&doc, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (s *Service) List(userID string, q pagination.Query, kind string) ([]models.DocumentModel, response.Pagination, error) {
	tx := s.db.Model(&models.DocumentModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if kind != "" {
		tx = tx.Where("kind = ?", kind)
	}
	var items []models.DocumentModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) Update(userID, id string, dto *UpdateDocumentDTO) (*models.DocumentModel, error) {
	doc, err := s.GetByID(userID, id)
	if err != nil || doc == nil {
		return doc, err
	}

	updates := map[string]interface{}{}
	if dto.Title != nil && strings.TrimSpace(*dto.Title) != "" {
		updates["title"] = strings.TrimSpace(*dto.Title)
	}
	if dto.Kind != nil {
		updates["kind"] = normalizeKind(*dto.Kind)
	}
	if len(updates) == 0 {
		return doc, nil
	}
	if err := s.db.Model(doc).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(userID, id)
}

// Delete removes the document and every analysis that referenced it.
func (s *Service) Delete(userID, id string) error {
	doc, err := s.GetByID(userID, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return gorm.ErrRecordNotFound
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.AnalysisModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DocumentModel{}, "id = ?", id).Error
	})
}
