package utils

import (
	"time"

	"carabin/backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const TokenLifetime = 72 * time.Hour

// Claims carried by every access token. TokenID matches a UserSession row
// so individual sessions can be revoked.
type Claims struct {
	UserID  uint
	Role    string
	TokenID string
}

func GenerateJWTToken(userID uint, role string, cfg *config.Config) (token string, tokenID string, err error) {
	tokenID = uuid.NewString()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"jti":     tokenID,
		"exp":     time.Now().Add(TokenLifetime).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString([]byte(cfg.JWTSecret))
	return token, tokenID, err
}

// ExtractClaims parses and verifies the Authorization token of a request.
func ExtractClaims(c *fiber.Ctx, cfg *config.Config) (*Claims, error) {
	tokenString := c.Get("Authorization")
	if tokenString == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}
	role, _ := claims["role"].(string)
	tokenID, _ := claims["jti"].(string)

	return &Claims{UserID: uint(userIDFloat), Role: role, TokenID: tokenID}, nil
}
