package models

import "time"

// TokenResponse is the bearer token pair handed to a signed-in identity.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	IdentityID   string    `json:"identity_id"`
	Role         string    `json:"role"`
	TenantID     string    `json:"tenant_id,omitempty"`
	TokenID      string    `json:"token_id"`
	IssuedAt     time.Time `json:"issued_at"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest optionally names the refresh token to revoke along with the
// presented access token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}
