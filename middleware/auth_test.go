package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var (
	alice = models.Principal{UserID: "user-alice", Role: models.RoleUser}
	admin = models.Principal{UserID: "user-admin", Role: models.RoleAdmin}
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tokens := NewTokenManager(testSecret)

	token, err := tokens.Issue(admin, time.Hour)
	require.NoError(t, err)

	principal, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, admin, principal)
	assert.True(t, principal.IsAdmin())
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	tokens := NewTokenManager(testSecret)
	token, err := tokens.Issue(alice, -time.Minute)
	require.NoError(t, err)

	_, err = tokens.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_RejectsForeignSignatures(t *testing.T) {
	tokens := NewTokenManager(testSecret)

	foreign, err := NewTokenManager("another-secret").Issue(alice, time.Hour)
	require.NoError(t, err)
	_, err = tokens.Validate(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{ID: alice.UserID, Role: alice.Role}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = tokens.Validate(otherAlg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_SubjectOnlyToken(t *testing.T) {
	tokens := NewTokenManager(testSecret)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-carol",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	principal, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, models.Principal{UserID: "user-carol", Role: models.RoleUser}, principal)
}

func TestTokenManager_RejectsOverlongIdentity(t *testing.T) {
	tokens := NewTokenManager(testSecret)
	token, err := tokens.Issue(models.Principal{UserID: strings.Repeat("u", models.MaxUserIDLength+1)}, time.Hour)
	require.NoError(t, err)

	_, err = tokens.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err = tokens.Issue(models.Principal{UserID: strings.Repeat("u", models.MaxUserIDLength)}, time.Hour)
	require.NoError(t, err)
	_, err = tokens.Validate(token)
	assert.NoError(t, err)
}

func TestTokenManager_RejectsTokenWithoutIdentity(t *testing.T) {
	tokens := NewTokenManager(testSecret)
	token, err := tokens.Issue(models.Principal{Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	_, err = tokens.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// newProtectedApp mounts a user route and an admin route behind the auth
// middleware and echoes the caller back.
func newProtectedApp(tokens *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(shared.HTTPStatusForError(err)).JSON(fiber.Map{
				"success": false,
				"message": shared.PublicMessage(err),
			})
		},
	})
	echo := func(c *fiber.Ctx) error {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.JSON(principal)
	}
	app.Get("/me", Protect(tokens), echo)
	app.Get("/admin", Protect(tokens), Authorize(models.RoleAdmin), echo)
	return app
}

func call(t *testing.T, app *fiber.App, path, authorization string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestProtect(t *testing.T) {
	tokens := NewTokenManager(testSecret)
	app := newProtectedApp(tokens)
	token, err := tokens.Issue(alice, time.Hour)
	require.NoError(t, err)

	status, body := call(t, app, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Not authorized, no token", body["message"])

	status, body = call(t, app, "/me", "Basic "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Not authorized, no token", body["message"])

	status, body = call(t, app, "/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Not authorized, token failed", body["message"])

	status, body = call(t, app, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-alice", body["id"])
	assert.Equal(t, models.RoleUser, body["role"])
}

func TestAuthorize(t *testing.T) {
	tokens := NewTokenManager(testSecret)
	app := newProtectedApp(tokens)
	userToken, err := tokens.Issue(alice, time.Hour)
	require.NoError(t, err)
	adminToken, err := tokens.Issue(admin, time.Hour)
	require.NoError(t, err)

	status, body := call(t, app, "/admin", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "User role user is not authorized to access this route", body["message"])

	status, body = call(t, app, "/admin", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-admin", body["id"])
}

func TestAuthorize_WithoutProtect(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(shared.HTTPStatusForError(err))
		},
	})
	app.Get("/", Authorize(models.RoleAdmin), func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
