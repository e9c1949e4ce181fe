package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/clauselens/core/internal/models"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ExternalLoginDTO struct {
	Credential string `json:"credential" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
	Mail     string `json:"mail"`
}

type CreateTokenDTO struct {
	Name      string     `json:"name"       binding:"required"`
	ExpiredAt *time.Time `json:"expired_at"`
}

type userInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Mail     string `json:"mail,omitempty"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userInfo `json:"user"`
}

type tokenResponse struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Token   string     `json:"token"`
	Expired *time.Time `json:"expired"`
	Created time.Time  `json:"created"`
}

var (
	errUserNotFound  = errors.New("user not found")
	errWrongPassword = errors.New("wrong password")
	errUsernameTaken = errors.New("username already taken")
	errTokenNotFound = errors.New("token not found")
)

func toUserInfo(u *models.UserModel) userInfo {
	return userInfo{
		ID:       u.ID,
		Username: u.Username,
		Name:     displayName(u.Name, u.Username),
		Avatar:   u.Avatar,
		Mail:     u.Mail,
		Role:     u.Role,
	}
}

func displayName(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}
