// Package webauthn wraps the external WebAuthn library with the service's
// challenge lifecycle, per-user lockout, and credential registry.
package webauthn

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/agentmint-dev/agentmint/internal/errors"
	"github.com/agentmint-dev/agentmint/internal/logger"
)

// Hardening constants
const (
	maxChallenges    = 10_000
	challengeTTL     = 300 * time.Second
	lockoutThreshold = 5
	lockoutDuration  = 15 * time.Minute
)

// State holds the per-user WebAuthn machinery. The four maps are independent
// owners, each behind its own lock; registration and authentication states
// never share a critical section.
type State struct {
	core *webauthn.WebAuthn

	regMu         sync.Mutex
	regChallenges map[string]challengeEntry

	authMu         sync.Mutex
	authChallenges map[string]challengeEntry

	credMu      sync.RWMutex
	credentials map[string]webauthn.Credential

	failMu   sync.Mutex
	failures map[string]failureRecord
}

type challengeEntry struct {
	session *webauthn.SessionData
	created time.Time
}

type failureRecord struct {
	count       int
	lastFailure time.Time
}

// user adapts a principal name to the library's user model. Credentials are
// snapshotted at construction.
type user struct {
	id    string
	creds []webauthn.Credential
}

func (u *user) WebAuthnID() []byte                         { return []byte(u.id) }
func (u *user) WebAuthnIcon() string                       { return "" }
func (u *user) WebAuthnName() string                       { return u.id }
func (u *user) WebAuthnDisplayName() string                { return u.id }
func (u *user) WebAuthnCredentials() []webauthn.Credential { return u.creds }

// New creates the state around a configured relying party.
func New(rpID, rpOrigin string) (*State, error) {
	core, err := webauthn.New(&webauthn.Config{
		RPID:          rpID,
		RPDisplayName: "AgentMint",
		RPOrigins:     []string{rpOrigin},
	})
	if err != nil {
		return nil, err
	}
	return &State{
		core:           core,
		regChallenges:  make(map[string]challengeEntry),
		authChallenges: make(map[string]challengeEntry),
		credentials:    make(map[string]webauthn.Credential),
		failures:       make(map[string]failureRecord),
	}, nil
}

// FromEnv builds the state from WEBAUTHN_RP_ID and WEBAUTHN_RP_ORIGIN. Both
// are required; otherwise WebAuthn is disabled and nil is returned.
func FromEnv() *State {
	rpID := os.Getenv("WEBAUTHN_RP_ID")
	rpOrigin := os.Getenv("WEBAUTHN_RP_ORIGIN")
	if rpID == "" || rpOrigin == "" {
		return nil
	}
	s, err := New(rpID, rpOrigin)
	if err != nil {
		logger.Security().Warn().Err(err).Msg("WebAuthn config failed")
		return nil
	}
	logger.Security().Info().Str("rp_id", rpID).Msg("WebAuthn enabled")
	return s
}

// IsLockedOut reports whether the user's recent failures meet the threshold.
func (s *State) IsLockedOut(userID string) bool {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	record, ok := s.failures[userID]
	if !ok || record.count < lockoutThreshold {
		return false
	}
	return time.Since(record.lastFailure) < lockoutDuration
}

// recordFailure bumps the user's failure count and reports whether this
// failure crossed the lockout threshold.
func (s *State) recordFailure(userID string) bool {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	record := s.failures[userID]
	record.count++
	record.lastFailure = time.Now()
	s.failures[userID] = record
	return record.count == lockoutThreshold
}

func (s *State) clearFailures(userID string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	delete(s.failures, userID)
}

// storeChallenge inserts a challenge entry after an opportunistic eviction
// pass. A full store rejects with the service-unavailable category.
func storeChallenge(mu *sync.Mutex, m map[string]challengeEntry, userID string, session *webauthn.SessionData) error {
	mu.Lock()
	defer mu.Unlock()
	for id, entry := range m {
		if time.Since(entry.created) >= challengeTTL {
			delete(m, id)
		}
	}
	if len(m) >= maxChallenges {
		return errors.ServiceUnavailable("challenge store at capacity")
	}
	m[userID] = challengeEntry{session: session, created: time.Now()}
	return nil
}

// takeChallenge atomically removes and returns the user's challenge entry.
// Challenge entries are single-use: a concurrent second finish races to find
// the entry gone.
func takeChallenge(mu *sync.Mutex, m map[string]challengeEntry, userID string) (*webauthn.SessionData, bool) {
	mu.Lock()
	defer mu.Unlock()
	entry, ok := m[userID]
	if !ok {
		return nil, false
	}
	delete(m, userID)
	if time.Since(entry.created) >= challengeTTL {
		return nil, false
	}
	return entry.session, true
}

// BeginRegistration starts a registration ceremony for the user.
func (s *State) BeginRegistration(userID string) (*protocol.CredentialCreation, error) {
	creation, session, err := s.core.BeginRegistration(&user{id: userID})
	if err != nil {
		return nil, errors.Unauthorized("registration start failed: " + err.Error())
	}
	if err := storeChallenge(&s.regMu, s.regChallenges, userID, session); err != nil {
		return nil, err
	}
	return creation, nil
}

// FinishRegistration consumes the registration challenge and stores the new
// credential.
func (s *State) FinishRegistration(userID string, body io.Reader) error {
	session, ok := takeChallenge(&s.regMu, s.regChallenges, userID)
	if !ok {
		return errors.Unauthorized("no pending registration challenge")
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(body)
	if err != nil {
		return errors.Unauthorized("malformed registration response: " + err.Error())
	}

	credential, err := s.core.CreateCredential(&user{id: userID}, *session, parsed)
	if err != nil {
		return errors.Unauthorized("registration verification failed: " + err.Error())
	}

	s.credMu.Lock()
	s.credentials[userID] = *credential
	s.credMu.Unlock()
	return nil
}

// BeginLogin starts an authentication ceremony for a registered user.
func (s *State) BeginLogin(userID string) (*protocol.CredentialAssertion, error) {
	if s.IsLockedOut(userID) {
		return nil, errors.Unauthorized("user locked out")
	}

	s.credMu.RLock()
	credential, registered := s.credentials[userID]
	s.credMu.RUnlock()
	if !registered {
		return nil, errors.Unauthorized("no credential registered")
	}

	assertion, session, err := s.core.BeginLogin(&user{id: userID, creds: []webauthn.Credential{credential}})
	if err != nil {
		return nil, errors.Unauthorized("authentication start failed: " + err.Error())
	}
	if err := storeChallenge(&s.authMu, s.authChallenges, userID, session); err != nil {
		return nil, err
	}
	return assertion, nil
}

// LoginResult reports the outcome of FinishLogin for telemetry.
type LoginResult struct {
	// LockedOut is set when this failure crossed the lockout threshold.
	LockedOut bool
}

// FinishLogin consumes the authentication challenge and validates the
// assertion. A failed validation counts toward lockout; success clears the
// failure record.
func (s *State) FinishLogin(userID string, body io.Reader) (*LoginResult, error) {
	if s.IsLockedOut(userID) {
		return nil, errors.Unauthorized("user locked out")
	}

	session, ok := takeChallenge(&s.authMu, s.authChallenges, userID)
	if !ok {
		return nil, errors.Unauthorized("no pending authentication challenge")
	}

	s.credMu.RLock()
	credential, registered := s.credentials[userID]
	s.credMu.RUnlock()
	if !registered {
		return nil, errors.Unauthorized("no credential registered")
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(body)
	if err != nil {
		locked := s.recordFailure(userID)
		return &LoginResult{LockedOut: locked}, errors.Unauthorized("malformed authentication response: " + err.Error())
	}

	waUser := &user{id: userID, creds: []webauthn.Credential{credential}}
	if _, err := s.core.ValidateLogin(waUser, *session, parsed); err != nil {
		locked := s.recordFailure(userID)
		return &LoginResult{LockedOut: locked}, errors.Unauthorized("authentication verification failed: " + err.Error())
	}

	s.clearFailures(userID)
	return &LoginResult{}, nil
}

// ChallengeCounts reports pending challenge cardinality, for tests.
func (s *State) ChallengeCounts() (reg, auth int) {
	s.regMu.Lock()
	reg = len(s.regChallenges)
	s.regMu.Unlock()
	s.authMu.Lock()
	auth = len(s.authChallenges)
	s.authMu.Unlock()
	return reg, auth
}
