package token

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/agentmint-dev/agentmint/internal/errors"
)

// MaxTokenLen bounds the accepted wire form.
const MaxTokenLen = 2048

// Verify parses and verifies a wire token, returning the claims.
//
// The step order is security-critical: the signature is verified against the
// base64 payload segment before the payload is decoded or parsed, so
// untrusted claim bytes are never deserialized until signed provenance is
// established.
func Verify(tok string, key ed25519.PublicKey) (*Claims, error) {
	if len(tok) > MaxTokenLen {
		return nil, errors.InvalidToken("token exceeds maximum length")
	}

	payloadB64, sigB64, found := strings.Cut(tok, ".")
	if !found {
		return nil, errors.InvalidToken("missing separator")
	}

	if !validSegment(payloadB64) || !validSegment(sigB64) {
		return nil, errors.InvalidToken("invalid character in token")
	}

	sigBytes, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, errors.InvalidToken("malformed signature encoding")
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return nil, errors.InvalidToken("malformed signature")
	}

	if !ed25519.Verify(key, []byte(payloadB64), sigBytes) {
		return nil, errors.InvalidSignature()
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, errors.Base64(err)
	}

	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, errors.Serialization(err)
	}

	if claims.IsExpired() {
		return nil, errors.TokenExpired()
	}

	return &claims, nil
}

// validSegment whitelists base64url characters. Padding is tolerated here so
// the reject reason for padded-but-otherwise-valid input is the decode step.
func validSegment(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '=':
		default:
			return false
		}
	}
	return true
}
