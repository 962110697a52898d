package models

import "github.com/golang-jwt/jwt/v5"

// Application capabilities
const (
	CapabilityWalletRead  = "wallet:read"
	CapabilityWalletWrite = "wallet:write"
	CapabilityAdminRead   = "admin:read"
	CapabilityAdminWrite  = "admin:write"
)

// UserClaims carries the upstream-resolved identity. The core trusts the
// user id; authorization decisions go through the injected Authorizer,
// never through a deployment-environment branch.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID       string   `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
}

// HasCapability checks if the claims include a specific capability
func (c *UserClaims) HasCapability(capability string) bool {
	for _, p := range c.Capabilities {
		if p == capability {
			return true
		}
	}
	return false
}

// DefaultCapabilities returns default capabilities based on role
func DefaultCapabilities(role string) []string {
	switch role {
	case "admin":
		return []string{
			CapabilityWalletRead,
			CapabilityWalletWrite,
			CapabilityAdminRead,
			CapabilityAdminWrite,
		}
	case "user":
		return []string{
			CapabilityWalletRead,
			CapabilityWalletWrite,
		}
	default:
		return []string{}
	}
}
