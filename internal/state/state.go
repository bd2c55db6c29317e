// Package state holds the process-wide composition root.
package state

import (
	"crypto/ed25519"
	"os"
	"sync/atomic"

	"github.com/agentmint-dev/agentmint/internal/audit"
	"github.com/agentmint-dev/agentmint/internal/jti"
	"github.com/agentmint-dev/agentmint/internal/logger"
	"github.com/agentmint-dev/agentmint/internal/oidc"
	"github.com/agentmint-dev/agentmint/internal/policy"
	"github.com/agentmint-dev/agentmint/internal/ratelimit"
	"github.com/agentmint-dev/agentmint/internal/telemetry"
	"github.com/agentmint-dev/agentmint/internal/token"
	"github.com/agentmint-dev/agentmint/internal/webauthn"
)

// AppState exclusively owns every mutable store. Handlers receive a shared
// reference only. The signing key never leaves this struct; key material is
// generated fresh on each process start and never logged.
type AppState struct {
	SigningKey   ed25519.PrivateKey
	VerifyingKey ed25519.PublicKey

	JTIStore    *jti.Store
	AuditLog    *audit.Log
	Metrics     *telemetry.Metrics
	Policy      *policy.Engine
	OIDC        *oidc.Verifier
	WebAuthn    *webauthn.State
	RateLimiter *ratelimit.Limiter

	RequireOIDC bool

	requestCount atomic.Uint64
}

// IncrementRequests bumps the monotonic request counter and warns every 1000
// requests.
func (s *AppState) IncrementRequests() {
	n := s.requestCount.Add(1)
	if n%1000 == 0 {
		logger.Log.Warn().Uint64("count", n).Msg("high request volume")
	}
}

type builder struct {
	auditLog *audit.Log
	policy   *policy.Engine
	oidc     *oidc.Verifier
	webAuthn *webauthn.State
}

func (b builder) build() (*AppState, error) {
	pub, priv, err := token.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	requireOIDC := os.Getenv("REQUIRE_OIDC") == "true"
	if requireOIDC && b.oidc == nil {
		logger.Log.Warn().Msg("REQUIRE_OIDC=true but no OIDC configured")
	}

	return &AppState{
		SigningKey:   priv,
		VerifyingKey: pub,
		JTIStore:     jti.New(),
		AuditLog:     b.auditLog,
		Metrics:      telemetry.New(),
		Policy:       b.policy,
		OIDC:         b.oidc,
		WebAuthn:     b.webAuthn,
		RateLimiter:  ratelimit.New(ratelimit.DefaultConfig()),
		RequireOIDC:  requireOIDC,
	}, nil
}

// Build composes the production state from a database path and the
// environment.
func Build(dbPath string) (*AppState, error) {
	auditLog, err := audit.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return builder{
		auditLog: auditLog,
		policy:   policy.FromDefaultFile(),
		oidc:     oidc.FromEnv(),
		webAuthn: webauthn.FromEnv(),
	}.build()
}

// BuildTest composes an isolated state for tests: in-memory audit database,
// empty policy, no identity or WebAuthn components.
func BuildTest() (*AppState, error) {
	auditLog, err := audit.OpenInMemory()
	if err != nil {
		return nil, err
	}
	return builder{
		auditLog: auditLog,
		policy:   policy.New(nil),
	}.build()
}
