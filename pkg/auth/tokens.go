package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth"
)

// Claim names carried by issued tokens
const (
	ClaimUserID = "user_id"
	ClaimRole   = "role"
)

// Tokens issues and verifies HS256 bearer tokens
type Tokens struct {
	ja  *jwtauth.JWTAuth
	ttl time.Duration
}

// Claims are the identity fields read back from a verified token
type Claims struct {
	UserID string
	Role   Role
}

// NewTokens creates a token issuer signing with secret
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tokens{
		ja:  jwtauth.New("HS256", []byte(secret), nil),
		ttl: ttl,
	}, nil
}

// JWTAuth exposes the verifier for router middleware
func (t *Tokens) JWTAuth() *jwtauth.JWTAuth {
	return t.ja
}

// Issue signs a token for user
func (t *Tokens) Issue(user *User) (string, error) {
	claims := map[string]interface{}{
		ClaimUserID: user.ID.String(),
		ClaimRole:   string(user.Role),
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, t.ttl)

	_, token, err := t.ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Parse verifies a token's signature and expiry and returns its claims
func (t *Tokens) Parse(token string) (Claims, error) {
	tok, err := jwtauth.VerifyToken(t.ja, token)
	if err != nil {
		return Claims{}, err
	}
	return ClaimsFromMap(tok.PrivateClaims())
}

// ClaimsFromMap extracts Claims from a decoded claim set
func ClaimsFromMap(m map[string]interface{}) (Claims, error) {
	userID, _ := m[ClaimUserID].(string)
	if userID == "" {
		return Claims{}, errors.New("token has no user id")
	}
	role, _ := m[ClaimRole].(string)
	return Claims{UserID: userID, Role: Role(role)}, nil
}
