package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/agentmint-dev/agentmint/internal/errors"
)

// Sign encodes the claims and returns the wire token
// b64url(payload_json) "." b64url(signature). The signature covers the ASCII
// bytes of the encoded payload segment, not the raw JSON, so verifiers never
// decode untrusted bytes before checking provenance.
func Sign(claims *Claims, key ed25519.PrivateKey) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", errors.Serialization(err)
	}
	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	signature := ed25519.Sign(key, []byte(encodedPayload))
	encodedSignature := base64.RawURLEncoding.EncodeToString(signature)
	return fmt.Sprintf("%s.%s", encodedPayload, encodedSignature), nil
}

// GenerateKeypair creates a fresh Ed25519 keypair from the system CSPRNG.
// Keys live for the process lifetime only.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, errors.Signing(err.Error())
	}
	return pub, priv, nil
}
