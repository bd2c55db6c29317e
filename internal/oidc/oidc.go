// Package oidc verifies federated identity assertions (RS256 JWTs) against a
// configured issuer, audience, and JWKS endpoint.
package oidc

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentmint-dev/agentmint/internal/errors"
	"github.com/agentmint-dev/agentmint/internal/logger"
)

// jwksCacheTTL bounds how long fetched signing keys are trusted before a
// refresh.
const jwksCacheTTL = time.Hour

// IdentityClaims are the assertion claims the mint pipeline consumes.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// PrincipalID returns the identity the assertion binds to: email when
// present, subject otherwise.
func (c *IdentityClaims) PrincipalID() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// Verifier validates assertions against one identity provider.
type Verifier struct {
	issuer   string
	audience string
	jwksURI  string
	client   *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// New creates a verifier for the given provider configuration.
func New(issuer, audience, jwksURI string) *Verifier {
	return &Verifier{
		issuer:   issuer,
		audience: audience,
		jwksURI:  jwksURI,
		client:   &http.Client{Timeout: 10 * time.Second},
		keys:     map[string]*rsa.PublicKey{},
	}
}

// FromEnv builds a verifier from OIDC_ISSUER, OIDC_AUDIENCE, and
// OIDC_JWKS_URI. All three are required; otherwise identity verification is
// disabled and nil is returned.
func FromEnv() *Verifier {
	issuer := os.Getenv("OIDC_ISSUER")
	audience := os.Getenv("OIDC_AUDIENCE")
	jwksURI := os.Getenv("OIDC_JWKS_URI")
	if issuer == "" || audience == "" || jwksURI == "" {
		return nil
	}
	logger.Security().Info().Str("issuer", issuer).Msg("OIDC enabled")
	return New(issuer, audience, jwksURI)
}

// Verify validates an assertion and returns its claims. All failures map to
// the unauthorized category; the internal detail names the cause.
//
// SECURITY: the accepted algorithm is pinned to RS256. Tokens claiming any
// other method, including "none", are rejected before key lookup.
func (v *Verifier) Verify(assertion string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(assertion, claims, v.keyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Unauthorized(fmt.Sprintf("assertion validation failed: %v", err))
	}
	return claims, nil
}

// keyFor resolves the RSA key named by the token header's kid through the
// JWKS cache.
func (v *Verifier) keyFor(token *jwt.Token) (interface{}, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("missing kid in assertion header")
	}

	v.mu.RLock()
	fresh := !v.fetchedAt.IsZero() && time.Since(v.fetchedAt) < jwksCacheTTL
	key, hit := v.keys[kid]
	v.mu.RUnlock()

	if fresh && hit {
		return key, nil
	}

	if err := v.refreshJWKS(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	key, hit = v.keys[kid]
	v.mu.RUnlock()
	if !hit {
		return nil, fmt.Errorf("signing key %q not found", kid)
	}
	return key, nil
}

type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// refreshJWKS fetches the key set and replaces the cache.
func (v *Verifier) refreshJWKS() error {
	resp, err := v.client.Get(v.jwksURI)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" || k.N == "" || k.E == "" {
			continue
		}
		pub, err := rsaKeyFromComponents(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()

	logger.Security().Info().Int("keys", len(keys)).Msg("JWKS refreshed")
	return nil
}

// rsaKeyFromComponents builds a public key from base64url modulus and
// exponent.
func rsaKeyFromComponents(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
