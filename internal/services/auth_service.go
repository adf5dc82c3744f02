package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"talentdesk/internal/caching"
	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tokenIssuer   = "talentdesk-auth"
	tokenAudience = "talentdesk-api"
)

// AuthService issues and validates bearer tokens.
type AuthService interface {
	GenerateTokens(ctx context.Context, identity *models.Identity) (*models.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	RevokeToken(ctx context.Context, token string, tokenType *string) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type authService struct {
	cacheSvc     caching.CacheService
	identityRepo repositories.IdentityRepository
	jwtSecret    []byte
	tokenTTL     time.Duration
	refreshTTL   time.Duration
	logger       *zap.Logger
}

// TokenClaims are the JWT claims; a verified token decodes to an Actor.
type TokenClaims struct {
	IdentityID string `json:"identity_id"`
	Role       string `json:"role"`
	TenantID   string `json:"tenant_id,omitempty"`
	TokenID    string `json:"token_id"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the request principal.
func (c *TokenClaims) Actor() (common.Actor, error) {
	identityID, err := uuid.Parse(c.IdentityID)
	if err != nil {
		return common.Actor{}, fmt.Errorf("invalid identity id in token: %w", err)
	}
	actor := common.Actor{IdentityID: identityID, Role: c.Role}
	if c.TenantID != "" {
		tenantID, err := uuid.Parse(c.TenantID)
		if err != nil {
			return common.Actor{}, fmt.Errorf("invalid tenant id in token: %w", err)
		}
		actor.TenantID = &tenantID
	}
	return actor, nil
}

func NewAuthService(cacheSvc caching.CacheService, identityRepo repositories.IdentityRepository, jwtSecret string,
	tokenTTL, refreshTTL time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		cacheSvc:     cacheSvc,
		identityRepo: identityRepo,
		jwtSecret:    []byte(jwtSecret),
		tokenTTL:     tokenTTL,
		refreshTTL:   refreshTTL,
		logger:       logger,
	}
}

func refreshKey(hash string) string {
	return "talentdesk:refresh_token:" + hash
}

func blacklistKey(tokenID string) string {
	return "talentdesk:token_blacklist:" + tokenID
}

func (s *authService) GenerateTokens(ctx context.Context, identity *models.Identity) (*models.TokenResponse, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	claims := TokenClaims{
		IdentityID: identity.ID.String(),
		Role:       identity.Role,
		TokenID:    tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   identity.ID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}
	if identity.TenantID != nil {
		claims.TenantID = identity.TenantID.String()
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %w", err)
	}

	refreshToken, err := generateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.cacheSvc.SetString(ctx, refreshKey(hashToken(refreshToken)), identity.ID.String(), s.refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenTTL.Seconds()),
		RefreshToken: refreshToken,
		IdentityID:   identity.ID.String(),
		Role:         identity.Role,
		TenantID:     claims.TenantID,
		TokenID:      tokenID,
		IssuedAt:     now,
	}, nil
}

// RefreshToken rotates a refresh token. The identity is reloaded so a
// deactivated account cannot keep refreshing.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	key := refreshKey(hashToken(refreshToken))
	// Only one caller can take the token; concurrent refreshes see it gone.
	identityIDStr, err := s.cacheSvc.TakeString(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if identityIDStr == "" {
		return nil, common.ErrInvalidCredentials
	}

	identityID, err := uuid.Parse(identityIDStr)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}
	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !identity.IsActive {
		return nil, common.ErrInvalidCredentials
	}
	return s.GenerateTokens(ctx, identity)
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	jwtToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil || !jwtToken.Valid {
		return nil, fmt.Errorf("token validation failed: %w", common.ErrInvalidCredentials)
	}

	revoked, err := s.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("token revoked: %w", common.ErrInvalidCredentials)
	}
	return claims, nil
}

func (s *authService) RevokeToken(ctx context.Context, token string, tokenType *string) error {
	if tokenType != nil && *tokenType == "refresh_token" {
		return s.cacheSvc.Delete(ctx, refreshKey(hashToken(token)))
	}

	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return fmt.Errorf("cannot revoke invalid token: %w", err)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.cacheSvc.SetString(ctx, blacklistKey(claims.TokenID), "revoked", ttl)
}

func (s *authService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.cacheSvc.GetString(ctx, blacklistKey(tokenID))
	if err != nil {
		return false, fmt.Errorf("read token blacklist: %w", err)
	}
	return val != "", nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
