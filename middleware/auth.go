package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

var (
	ErrInvalidToken = errors.New("JWT token is invalid")
	ErrExpiredToken = errors.New("JWT token is expired")
)

// Claims carries the caller identity. Tokens that only set "sub" are
// accepted as well.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 bearer tokens.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Issue signs a token for p that expires after ttl.
func (m *TokenManager) Issue(p models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:   p.UserID,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Validate parses tokenString and returns the caller it identifies.
func (m *TokenManager) Validate(tokenString string) (models.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Principal{}, ErrExpiredToken
		}
		return models.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := claims.ID
	if userID == "" {
		userID = claims.Subject
	}
	if !token.Valid || userID == "" || len(userID) > models.MaxUserIDLength {
		return models.Principal{}, ErrInvalidToken
	}

	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	return models.Principal{UserID: userID, Role: role}, nil
}

// Protect requires a valid bearer token and stores the caller in the
// request locals.
func Protect(tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, tokenString, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			return shared.NewUnauthorizedError("Not authorized, no token")
		}

		principal, err := tokens.Validate(strings.TrimSpace(tokenString))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "auth",
				"path":      c.Path(),
				"error":     err,
			}).Debug("Rejected bearer token")
			return shared.NewUnauthorizedError("Not authorized, token failed")
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// Authorize allows only callers whose role is one of roles. It must run
// after Protect.
func Authorize(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			return shared.NewUnauthorizedError("Not authorized, no token")
		}
		for _, role := range roles {
			if principal.Role == role {
				return c.Next()
			}
		}
		return shared.NewForbiddenError(fmt.Sprintf("User role %s is not authorized to access this route", principal.Role))
	}
}

// CurrentPrincipal returns the caller stored by Protect.
func CurrentPrincipal(c *fiber.Ctx) (models.Principal, bool) {
	principal, ok := c.Locals(principalKey).(models.Principal)
	return principal, ok
}
