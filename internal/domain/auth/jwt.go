// Package auth verifies the bearer tokens issued by the GC Spends identity
// service for the gateway's own API surface.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "refbook/internal/core/context"
	"refbook/internal/domain/dictionary"
)

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret string
	Issuer string
}

// Claims are the token claims the contour issues.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"uid"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	CurrentRole string   `json:"crole,omitempty"`
	SessionID   string   `json:"sid,omitempty"`
}

// JWTService validates bearer tokens and, in tests, mints them.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a token service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateToken mints a signed token. The gateway itself never issues
// tokens in production; this exists for tests and local tooling.
func (s *JWTService) GenerateToken(userID, email string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
		Roles:  roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, expiry and issuer and returns the
// user context carried by the token.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if s.config.Issuer != "" && claims.Issuer != s.config.Issuer {
		return nil, fmt.Errorf("unexpected issuer: %q", claims.Issuer)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	return &appctx.UserContext{
		UserID:      userID,
		Email:       claims.Email,
		Roles:       claims.Roles,
		CurrentRole: claims.CurrentRole,
		SessionID:   claims.SessionID,
	}, nil
}

// IsAdmin reports whether the user carries the admin role. The admin-only
// endpoints (cache, mode, import) gate on this.
func IsAdmin(user *appctx.UserContext) bool {
	if user == nil {
		return false
	}
	for _, role := range user.Roles {
		if role == string(dictionary.RoleAdmin) {
			return true
		}
	}
	return false
}
