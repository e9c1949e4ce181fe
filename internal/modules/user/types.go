package user

import (
	"errors"
	"time"

	"github.com/clauselens/core/internal/models"
)

type UpdateUserDTO struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Mail   *string `json:"mail"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type userResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar,omitempty"`
	Mail          string     `json:"mail,omitempty"`
	Role          string     `json:"role"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip,omitempty"`
	Created       time.Time  `json:"created"`
}

type identityResponse struct {
	ID       string     `json:"id"`
	Provider string     `json:"provider"`
	Email    string     `json:"email,omitempty"`
	LastUsed *time.Time `json:"last_used"`
	Created  time.Time  `json:"created"`
}

var (
	errUserNotFound      = errors.New("user not found")
	errWrongPassword     = errors.New("wrong password")
	errPasswordSameAsOld = errors.New("password same as old")
	errIdentityNotFound  = errors.New("identity not found")
	errOwnerImmutable    = errors.New("the owner account cannot be deleted")
)

func toResponse(u *models.UserModel) userResponse {
	name := u.Name
	if name == "" {
		name = u.Username
	}
	return userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Name:          name,
		Avatar:        u.Avatar,
		Mail:          u.Mail,
		Role:          u.Role,
		LastLoginTime: u.LastLoginTime,
		LastLoginIP:   u.LastLoginIP,
		Created:       u.CreatedAt,
	}
}

func toIdentityResponse(link models.UserIdentity) identityResponse {
	return identityResponse{
		ID:       link.ID,
		Provider: link.Provider,
		Email:    link.Email,
		LastUsed: link.LastUsed,
		Created:  link.CreatedAt,
	}
}
