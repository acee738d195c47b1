package service

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid token")
	ErrAdminDisabled   = errors.New("admin password not configured")
)

// AuthService verifies bearer tokens issued by the plant's identity service and
// the admin password that guards catalog deletes.
type AuthService struct {
	signingKey []byte
	adminHash  []byte
}

func NewAuthService(signingKey, adminPasswordHash string) *AuthService {
	return &AuthService{signingKey: []byte(signingKey), adminHash: []byte(adminPasswordHash)}
}

// Claims defines the JWT claims the supervisor reads.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// AuthEnabled is false when no signing key is configured; control routes are then open.
func (s *AuthService) AuthEnabled() bool { return len(s.signingKey) > 0 }

// ParseToken validates the token and returns its subject.
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// VerifyAdmin checks password against the configured bcrypt hash.
func (s *AuthService) VerifyAdmin(password string) error {
	if len(s.adminHash) == 0 {
		return ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}
