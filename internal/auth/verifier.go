// Package auth verifies Firebase ID tokens presented by marketplace users.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
)

const issuerPrefix = "https://securetoken.google.com/"

// Identity is the verified caller.
type Identity struct {
	UserID string
	Email  string
}

// Claims are the ID token claims we read.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AuthTime      int64  `json:"auth_time"`
	jwt.RegisteredClaims
}

// KeySource resolves a signing key by key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Verifier checks signature, issuer, audience and expiry of ID tokens
// issued for a single project.
type Verifier struct {
	projectID string
	keys      KeySource
	leeway    time.Duration
	now       func() time.Time
}

func NewVerifier(projectID string, keys KeySource) *Verifier {
	return &Verifier{
		projectID: projectID,
		keys:      keys,
		leeway:    30 * time.Second,
		now:       time.Now,
	}
}

// Verify parses the raw token and returns the identity it carries. Every
// failure is apperr.Unauthenticated.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.E(apperr.Unauthenticated, "missing identity token")
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(issuerPrefix+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)

	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid identity token", err)
	}

	if claims.Subject == "" || len(claims.Subject) > 128 {
		return nil, apperr.E(apperr.Unauthenticated, "identity token has no valid subject")
	}
	if claims.AuthTime > 0 && time.Unix(claims.AuthTime, 0).After(v.now().Add(v.leeway)) {
		return nil, apperr.E(apperr.Unauthenticated, "identity token auth_time is in the future")
	}

	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// StaticKeys is a fixed kid → key map.
type StaticKeys map[string]*rsa.PublicKey

func (s StaticKeys) Key(_ context.Context, kid string) (*rsa.PublicKey, error) {
	k, ok := s[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return k, nil
}
