package services

import (
	"strings"
	"time"

	"github.com/cruiselens/payments-backend/internal/auth"
)

const RoleAdmin = "admin"

// AdminService authenticates the single operator account configured through
// ADMIN_EMAIL and ADMIN_PASSWORD_HASH.
type AdminService struct {
	tm           *auth.TokenManager
	email        string
	passwordHash string
}

func NewAdminService(tm *auth.TokenManager, email, passwordHash string) *AdminService {
	return &AdminService{tm: tm, email: strings.TrimSpace(email), passwordHash: passwordHash}
}

func (s *AdminService) Login(email, password string) (string, time.Time, error) {
	if s.email == "" || s.passwordHash == "" {
		return "", time.Time{}, ErrUnauthorized
	}
	if !strings.EqualFold(strings.TrimSpace(email), s.email) {
		return "", time.Time{}, ErrUnauthorized
	}
	if err := auth.VerifyPassword(password, s.passwordHash); err != nil {
		return "", time.Time{}, ErrUnauthorized
	}
	return s.tm.Generate(s.email, RoleAdmin)
}
