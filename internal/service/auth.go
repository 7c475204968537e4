package service

import (
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// AuthService checks presented admin bearer tokens against the one
// configured for this deployment. Stateless: the console keeps the token
// client-side and sends it on every request.
type AuthService struct {
	log        *zap.Logger
	adminToken string
}

func NewAuthService(log *zap.Logger, adminToken string) (*AuthService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	adminToken = strings.TrimSpace(adminToken)
	if adminToken == "" {
		return nil, errors.New("admin token must be configured")
	}
	return &AuthService{log: log.Named("auth"), adminToken: adminToken}, nil
}

// Verify reports whether token matches the configured admin token.
// Constant-time compare; the token is the sole credential.
func (s *AuthService) Verify(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}
