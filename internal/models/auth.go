package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type UserClaimKey struct{}

type UserClaims struct {
	Email      string    `json:"email"`
	OperatorID uuid.UUID `json:"operator_id"`
	HostUserID uint      `json:"host_user_id,omitempty"`
	Role       Role      `json:"role"`
	Aud        string    `json:"aud"`
	Issuer     string    `json:"iss"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller sees every course of the site.
func (c UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type AuthLoginBody struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type AuthLoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
