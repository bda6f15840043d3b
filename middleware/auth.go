// middleware/auth.go
package middleware

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the JWT payload minted at sign-in and required on every
// secured route. Fid is the only identity the handlers trust.
type SessionClaims struct {
	Fid      int64  `json:"fid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

const sessionTTL = 7 * 24 * time.Hour

func sessionSecret() []byte {
	secret := os.Getenv("SESSION_JWT_SECRET")
	if secret == "" {
		log.Fatal("❌ SESSION_JWT_SECRET is not set — cannot sign or verify sessions")
	}
	return []byte(secret)
}

// IssueSessionToken mints a signed session JWT for a verified identity.
func IssueSessionToken(fid int64, username string) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		Fid:      fid,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rewards-service",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sessionSecret())
}

// ParseSessionToken verifies a session JWT and returns its claims.
func ParseSessionToken(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return sessionSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// SessionMiddleware extracts the verified Farcaster identity from the
// session JWT and attaches it to the request context. Secured routes read
// c.Locals("fid") and never a client-supplied fid.
func SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" || token == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer session token",
			})
		}

		claims, err := ParseSessionToken(token)
		if err != nil {
			log.Printf("❌ [SESSION] Invalid token for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired session token",
			})
		}

		c.Locals("fid", claims.Fid)
		c.Locals("username", claims.Username)
		return c.Next()
	}
}
