package user

import (
	"errors"

	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) Update(id string, dto *UpdateUserDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}

	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
		u.Name = *dto.Name
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
		u.Avatar = *dto.Avatar
	}
	if dto.Mail != nil {
		updates["mail"] = *dto.Mail
		u.Mail = *dto.Mail
	}
	if len(updates) == 0 {
		return u, nil
	}
	return u, s.db.Model(u).Updates(updates).Error
}

func (s *Service) ChangePassword(id, oldPwd, newPwd string) error {
	var u models.UserModel
	if err := s.db.Select("id, password").First(&u, "id = ?", id).Error; err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPwd)); err != nil {
		return errWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(newPwd)); err == nil {
		return errPasswordSameAsOld
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Model(&u).Update("password", string(hash)).Error
}

func (s *Service) ListIdentities(userID string) ([]models.UserIdentity, error) {
	var links []models.UserIdentity
	return links, s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&links).Error
}

func (s *Service) UnlinkIdentity(userID, provider string) error {
	result := s.db.Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&models.UserIdentity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errIdentityNotFound
	}
	return nil
}

func (s *Service) List(q pagination.Query) ([]models.UserModel, response.Pagination, error) {
	var users []models.UserModel
	tx := s.db.Model(&models.UserModel{}).Order("created_at ASC")
	p, err := pagination.Paginate(tx, q, &users)
	return users, p, err
}

// Delete removes an account and everything it owns. The owner account is
// the anchor of the installation and cannot be removed.
func (s *Service) Delete(id string) error {
	u, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if u == nil {
		return errUserNotFound
	}
	if u.Role == models.RoleOwner {
		return errOwnerImmutable
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		owned := []interface{}{
			&models.UserSession{},
			&models.APIToken{},
			&models.UserIdentity{},
			&models.PasskeyCredential{},
			&models.PersonalizationProfileModel{},
			&models.AlertEventModel{},
			&models.AlertRuleModel{},
			&models.AnalysisModel{},
			&models.DocumentModel{},
		}
		for _, model := range owned {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(u).Error
	})
}
