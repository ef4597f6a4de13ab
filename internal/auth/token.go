package auth

import (
	"time"

	"registrar/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshTokenType = "refresh"

// Claims are the identity claims carried by access and refresh tokens.
// Refresh tokens only carry the id and type.
type Claims struct {
	UserID    int64       `json:"id"`
	Username  string      `json:"username,omitempty"`
	Role      models.Role `json:"role,omitempty"`
	FirstName string      `json:"first_name,omitempty"`
	LastName  string      `json:"last_name,omitempty"`
	Type      string      `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 bearer tokens
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec creates a codec signing with secret
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL is the lifetime of access tokens
func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

// IssueAccessToken signs a short-lived token with the user's identity claims
func (c *TokenCodec) IssueAccessToken(user *models.User) (string, error) {
	token, _, err := c.sign(Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, c.accessTTL)
	return token, err
}

// IssueRefreshToken signs a long-lived refresh token and returns its expiry
func (c *TokenCodec) IssueRefreshToken(user *models.User) (string, time.Time, error) {
	return c.sign(Claims{UserID: user.ID, Type: refreshTokenType}, c.refreshTTL)
}

func (c *TokenCodec) sign(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify returns the claims of a valid access token, or nil. Refresh tokens
// are rejected.
func (c *TokenCodec) Verify(token string) *Claims {
	claims := c.parse(token)
	if claims == nil || claims.Type == refreshTokenType {
		return nil
	}
	return claims
}

// VerifyRefresh returns the claims of a valid refresh token, or nil
func (c *TokenCodec) VerifyRefresh(token string) *Claims {
	claims := c.parse(token)
	if claims == nil || claims.Type != refreshTokenType {
		return nil
	}
	return claims
}

func (c *TokenCodec) parse(token string) *Claims {
	if token == "" {
		return nil
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid || claims.UserID <= 0 {
		return nil
	}
	return claims
}
