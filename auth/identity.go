// Package auth issue and verify the api tokens, hash the passwords and gate
// the private routes.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/saba2003/devcamper-api/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Identity issue and verify credentials of a principal
type Identity interface {
	Verify(ctx context.Context, credential string) (*Claims, error)
	Issue(ctx context.Context, principal *Principal) (string, error)
}

// Claims holds JWT claims, the subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Revoker remember revoked token ids until they expire
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// JWT the HS256 identity
type JWT struct {
	secret  []byte
	expire  time.Duration
	revoker Revoker
}

// NewJWT the identity, revoker may be nil when there is no shared store.
func NewJWT(secret string, expire time.Duration, revoker Revoker) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if expire <= 0 {
		expire = 30 * 24 * time.Hour
	}
	return &JWT{secret: []byte(secret), expire: expire, revoker: revoker}, nil
}

// Issue a token for the principal
func (j *JWT) Issue(_ context.Context, principal *Principal) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expire)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", status.Errorf(codes.Internal, "sign token: %v", err)
	}
	return token, nil
}

// Verify the signature, the expiry and the revocation of credential
func (j *JWT) Verify(ctx context.Context, credential string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errNotAuthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errNotAuthorized
	}
	if j.revoker != nil && claims.ID != "" {
		revoked, err := j.revoker.Revoked(ctx, claims.ID)
		if err != nil {
			log.Extract(ctx).Action("auth.Verify").Warn("revocation check failed: %v", err)
		}
		if revoked {
			return nil, errNotAuthorized
		}
	}
	return claims, nil
}

// Revoke the token until it expires, a no-op without a revoker.
func (j *JWT) Revoke(ctx context.Context, claims *Claims) error {
	if j.revoker == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return j.revoker.Revoke(ctx, claims.ID, ttl)
}

// Expire the lifetime of the issued tokens
func (j *JWT) Expire() time.Duration {
	return j.expire
}
