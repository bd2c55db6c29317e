// Package token implements the capability token format: claims model,
// Ed25519 signing, and bounded verification.
package token

import (
	"time"

	"github.com/google/uuid"
)

// Claims is the signed payload attesting that a principal authorized an
// action. The field order fixes the canonical JSON encoding; timestamps
// marshal as RFC3339 UTC.
type Claims struct {
	JTI    string    `json:"jti"`
	Sub    string    `json:"sub"`
	Action string    `json:"action"`
	IAT    time.Time `json:"iat"`
	EXP    time.Time `json:"exp"`
}

// NewClaims builds claims for a fresh token. The JTI is a random UUID v4
// drawn from crypto/rand. Callers clamp ttlSeconds to [1, 300].
func NewClaims(sub, action string, ttlSeconds int64) Claims {
	now := time.Now().UTC()
	return Claims{
		JTI:    uuid.NewString(),
		Sub:    sub,
		Action: action,
		IAT:    now,
		EXP:    now.Add(time.Duration(ttlSeconds) * time.Second),
	}
}

// IsExpired compares the expiry against the current instant with no slack.
func (c *Claims) IsExpired() bool {
	return time.Now().After(c.EXP)
}
