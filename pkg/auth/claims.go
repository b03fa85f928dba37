package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AdminTokenPayload captures the data available when minting an admin JWT.
type AdminTokenPayload struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	JTI            string
}

// AdminTokenClaims represents the typed JWT issued to organization admins.
type AdminTokenClaims struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	jwt.RegisteredClaims
}
