// Package telemetry tracks service counters with lock-free atomics.
package telemetry

import (
	"sync/atomic"
	"time"
)

// Metrics holds the event counters. Each counter is updated with an
// independent atomic add; the snapshot is a point-in-time view, not a
// consistent cut.
type Metrics struct {
	startedAt time.Time

	tokensMinted     atomic.Uint64
	tokensVerified   atomic.Uint64
	tokensRejected   atomic.Uint64
	replaysBlocked   atomic.Uint64
	policyDenials    atomic.Uint64
	identityFailures atomic.Uint64
	rateLimited      atomic.Uint64

	webauthnRegistrations atomic.Uint64
	webauthnSuccesses     atomic.Uint64
	webauthnFailures      atomic.Uint64
	webauthnLockouts      atomic.Uint64

	verifyLatencyTotalUs atomic.Uint64
}

// New creates a metrics set with the startup instant captured for uptime.
func New() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

func (m *Metrics) RecordMint()            { m.tokensMinted.Add(1) }
func (m *Metrics) RecordReject()          { m.tokensRejected.Add(1) }
func (m *Metrics) RecordReplay()          { m.replaysBlocked.Add(1) }
func (m *Metrics) RecordPolicyDenial()    { m.policyDenials.Add(1) }
func (m *Metrics) RecordIdentityFailure() { m.identityFailures.Add(1) }
func (m *Metrics) RecordRateLimited()     { m.rateLimited.Add(1) }

func (m *Metrics) RecordWebauthnRegistration() { m.webauthnRegistrations.Add(1) }
func (m *Metrics) RecordWebauthnSuccess()      { m.webauthnSuccesses.Add(1) }
func (m *Metrics) RecordWebauthnFailure()      { m.webauthnFailures.Add(1) }
func (m *Metrics) RecordWebauthnLockout()      { m.webauthnLockouts.Add(1) }

// RecordVerify counts a successful redemption and accumulates its latency.
func (m *Metrics) RecordVerify(latencyUs uint64) {
	m.tokensVerified.Add(1)
	m.verifyLatencyTotalUs.Add(latencyUs)
}

// Snapshot is an immutable view of the counters.
type Snapshot struct {
	TokensMinted     uint64 `json:"tokens_minted"`
	TokensVerified   uint64 `json:"tokens_verified"`
	TokensRejected   uint64 `json:"tokens_rejected"`
	ReplaysBlocked   uint64 `json:"replays_blocked"`
	PolicyDenials    uint64 `json:"policy_denials"`
	IdentityFailures uint64 `json:"identity_failures"`
	RateLimited      uint64 `json:"rate_limited"`

	WebauthnRegistrations uint64 `json:"webauthn_registrations"`
	WebauthnSuccesses     uint64 `json:"webauthn_successes"`
	WebauthnFailures      uint64 `json:"webauthn_failures"`
	WebauthnLockouts      uint64 `json:"webauthn_lockouts"`

	AvgVerifyUs   uint64 `json:"avg_verify_us"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
}

// Snapshot reads each counter and derives the average verify latency.
func (m *Metrics) Snapshot() Snapshot {
	verified := m.tokensVerified.Load()
	var avg uint64
	if verified > 0 {
		avg = m.verifyLatencyTotalUs.Load() / verified
	}
	return Snapshot{
		TokensMinted:          m.tokensMinted.Load(),
		TokensVerified:        verified,
		TokensRejected:        m.tokensRejected.Load(),
		ReplaysBlocked:        m.replaysBlocked.Load(),
		PolicyDenials:         m.policyDenials.Load(),
		IdentityFailures:      m.identityFailures.Load(),
		RateLimited:           m.rateLimited.Load(),
		WebauthnRegistrations: m.webauthnRegistrations.Load(),
		WebauthnSuccesses:     m.webauthnSuccesses.Load(),
		WebauthnFailures:      m.webauthnFailures.Load(),
		WebauthnLockouts:      m.webauthnLockouts.Load(),
		AvgVerifyUs:           avg,
		UptimeSeconds:         uint64(time.Since(m.startedAt).Seconds()),
	}
}
