package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-service/internal/domain"
	apperrors "github.com/spec-kit/sla-service/pkg/util/errorutil"
)

func TestTokenRoundTripCarriesSector(t *testing.T) {
	tm := NewTokenManager("secret", "helpdesk", 5)
	sector := "support"

	token, expiresAt, err := tm.GenerateToken("staff-1", domain.StaffRoleAgent, &sector)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	actor := claims.Actor()
	assert.Equal(t, "staff-1", actor.ID)
	assert.Equal(t, domain.StaffRoleAgent, actor.Role)
	require.NotNil(t, actor.SectorID)
	assert.Equal(t, "support", *actor.SectorID)
}

func TestParseTokenRejectsWrongIssuerAndSecret(t *testing.T) {
	issued, _, err := NewTokenManager("secret", "other", 5).GenerateToken("staff-1", domain.StaffRoleAdmin, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "helpdesk", 5).ParseToken(issued)
	assert.Error(t, err)

	_, err = NewTokenManager("another", "", 5).ParseToken(issued)
	assert.Error(t, err)

	_, err = NewTokenManager("secret", "", 5).ParseToken(issued)
	assert.NoError(t, err)
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	claims := &Claims{SubjectID: "x", Role: "customer", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "", 5).ParseToken(signed)
	assert.Error(t, err)
}

func newAuthApp(tm *TokenManager, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": domainErr.Code}})
	}})
	app.Get("/guarded", NewAuthMiddleware(tm).Handle, guard, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(principal.ID)
	})
	return app
}

func TestMiddlewareAndRoleGuard(t *testing.T) {
	tm := NewTokenManager("secret", "", 5)
	app := newAuthApp(tm, RequirePolicyManager())
	adminToken, _, err := tm.GenerateToken("admin-1", domain.StaffRoleAdmin, nil)
	require.NoError(t, err)
	agentToken, _, err := tm.GenerateToken("agent-1", domain.StaffRoleAgent, nil)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "malformed header", header: "Token abc", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "agent", header: "Bearer " + agentToken, status: http.StatusForbidden},
		{name: "admin", header: "Bearer " + adminToken, status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRequireStaffRoleWithoutRolesAcceptsAnyStaff(t *testing.T) {
	tm := NewTokenManager("secret", "", 5)
	app := newAuthApp(tm, RequireStaffRole())
	token, _, err := tm.GenerateToken("agent-1", domain.StaffRoleAgent, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
