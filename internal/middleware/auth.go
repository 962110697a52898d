// Package middleware provides HTTP middleware for the fiber app:
// bearer token authentication and capability-based authorization.
package middleware

import (
	"strings"

	"custodia/internal/config"
	"custodia/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Authorizer decides whether resolved claims may perform an operation.
// Handlers never branch on deployment environment; policy lives behind
// this interface.
type Authorizer interface {
	Allow(claims *models.UserClaims, capability string) bool
}

// CapabilityAuthorizer grants an operation when the claims carry the
// capability, with admins implicitly holding every capability.
type CapabilityAuthorizer struct{}

func (CapabilityAuthorizer) Allow(claims *models.UserClaims, capability string) bool {
	if claims == nil {
		return false
	}
	if claims.Role == "admin" {
		return true
	}
	return claims.HasCapability(capability)
}

// AuthMiddleware validates bearer tokens and loads claims into the
// request context.
type AuthMiddleware struct {
	secret     []byte
	authorizer Authorizer
	log        *logrus.Entry
}

func NewAuthMiddleware(authorizer Authorizer) *AuthMiddleware {
	if authorizer == nil {
		authorizer = CapabilityAuthorizer{}
	}
	return &AuthMiddleware{
		secret:     []byte(config.GetEnv("JWT_SECRET", "your-secret-key")),
		authorizer: authorizer,
		log:        logrus.WithField("component", "auth"),
	}
}

// Handler validates the Authorization header and stores the claims in
// c.Locals("claims").
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "invalid authorization format"})
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		m.log.WithError(err).Debug("token validation failed")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "invalid token"})
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || claims.UserID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "invalid claims"})
	}
	if len(claims.Capabilities) == 0 {
		claims.Capabilities = models.DefaultCapabilities(claims.Role)
	}

	c.Locals("claims", claims)
	c.Locals("user_id", claims.UserID)
	return c.Next()
}

// Require returns a handler that rejects requests whose claims the
// authorizer does not grant the capability.
func (m *AuthMiddleware) Require(capability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromContext(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "unauthorized"})
		}
		if !m.authorizer.Allow(claims, capability) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "insufficient permissions"})
		}
		return c.Next()
	}
}

// AdminOnly rejects any request whose claims lack the admin role.
func (m *AuthMiddleware) AdminOnly(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "unauthorized"})
	}
	if claims.Role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "admin access required"})
	}
	return c.Next()
}

// ClaimsFromContext returns the claims stored by Handler, or nil.
func ClaimsFromContext(c *fiber.Ctx) *models.UserClaims {
	claims, _ := c.Locals("claims").(*models.UserClaims)
	return claims
}
