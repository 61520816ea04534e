package utils

import (
	"net/http/httptest"
	"testing"

	"carabin/backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret"}
}

// extract runs ExtractClaims inside a handler and reports the outcome.
func extract(t *testing.T, cfg *config.Config, token string) (*Claims, int) {
	t.Helper()

	var claims *Claims
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		var err error
		claims, err = ExtractClaims(c, cfg)
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return claims, resp.StatusCode
}

func TestGenerateAndExtract(t *testing.T) {
	cfg := testConfig()
	token, tokenID, err := GenerateJWTToken(42, "maintainer", cfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, tokenID)

	claims, status := extract(t, cfg, token)
	assert.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, claims)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "maintainer", claims.Role)
	assert.Equal(t, tokenID, claims.TokenID)
}

func TestTokenIDsAreUnique(t *testing.T) {
	cfg := testConfig()
	_, first, err := GenerateJWTToken(1, "student", cfg)
	require.NoError(t, err)
	_, second, err := GenerateJWTToken(1, "student", cfg)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestExtractRejectsMissingToken(t *testing.T) {
	_, status := extract(t, testConfig(), "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestExtractRejectsWrongSecret(t *testing.T) {
	token, _, err := GenerateJWTToken(1, "student", &config.Config{JWTSecret: "other-secret"})
	require.NoError(t, err)

	_, status := extract(t, testConfig(), token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, status := extract(t, testConfig(), "not.a.token")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
