package webauthn

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := New("localhost", "http://localhost:3000")
	require.NoError(t, err)
	return s
}

func TestBeginRegistrationIssuesChallenge(t *testing.T) {
	s := newTestState(t)
	creation, err := s.BeginRegistration("alice")
	require.NoError(t, err)
	assert.NotNil(t, creation)

	reg, auth := s.ChallengeCounts()
	assert.Equal(t, 1, reg)
	assert.Equal(t, 0, auth)
}

func TestFinishRegistrationWithoutChallengeFails(t *testing.T) {
	s := newTestState(t)
	err := s.FinishRegistration("alice", strings.NewReader("{}"))
	assert.Error(t, err)
}

func TestChallengeIsSingleUse(t *testing.T) {
	s := newTestState(t)
	_, err := s.BeginRegistration("alice")
	require.NoError(t, err)

	// First finish consumes the challenge even though the body is garbage;
	// the second must fail on the missing entry, not on parsing.
	_ = s.FinishRegistration("alice", strings.NewReader("not json"))

	reg, _ := s.ChallengeCounts()
	assert.Equal(t, 0, reg, "challenge should be consumed")

	err = s.FinishRegistration("alice", strings.NewReader("not json"))
	assert.ErrorContains(t, err, "no pending registration challenge")
}

func TestConcurrentFinishExactlyOneTakesChallenge(t *testing.T) {
	s := newTestState(t)
	_, err := s.BeginRegistration("alice")
	require.NoError(t, err)

	const goroutines = 20
	var wg sync.WaitGroup
	missing := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.FinishRegistration("alice", strings.NewReader("x"))
			missing <- strings.Contains(err.Error(), "no pending registration challenge")
		}()
	}
	wg.Wait()
	close(missing)

	var tookChallenge int
	for wasMissing := range missing {
		if !wasMissing {
			tookChallenge++
		}
	}
	assert.Equal(t, 1, tookChallenge, "exactly one finish should observe the challenge")
}

func TestBeginLoginRequiresCredential(t *testing.T) {
	s := newTestState(t)
	_, err := s.BeginLogin("alice")
	assert.ErrorContains(t, err, "no credential registered")
}

func TestLockoutAfterThresholdFailures(t *testing.T) {
	s := newTestState(t)

	var crossed bool
	for i := 0; i < lockoutThreshold; i++ {
		if s.recordFailure("alice") {
			crossed = true
		}
	}
	assert.True(t, crossed, "threshold crossing should be reported once")
	assert.True(t, s.IsLockedOut("alice"))

	_, err := s.BeginLogin("alice")
	assert.ErrorContains(t, err, "locked out")
}

func TestLockoutExpiresAfterWindow(t *testing.T) {
	s := newTestState(t)
	for i := 0; i < lockoutThreshold; i++ {
		s.recordFailure("alice")
	}
	require.True(t, s.IsLockedOut("alice"))

	s.failMu.Lock()
	record := s.failures["alice"]
	record.lastFailure = time.Now().Add(-lockoutDuration - time.Second)
	s.failures["alice"] = record
	s.failMu.Unlock()

	assert.False(t, s.IsLockedOut("alice"))
}

func TestClearFailuresResetsLockout(t *testing.T) {
	s := newTestState(t)
	for i := 0; i < lockoutThreshold; i++ {
		s.recordFailure("alice")
	}
	s.clearFailures("alice")
	assert.False(t, s.IsLockedOut("alice"))
}

func TestFailuresAreIsolatedPerUser(t *testing.T) {
	s := newTestState(t)
	for i := 0; i < lockoutThreshold; i++ {
		s.recordFailure("alice")
	}
	assert.True(t, s.IsLockedOut("alice"))
	assert.False(t, s.IsLockedOut("bob"))
}

func TestChallengeStoreCapacity(t *testing.T) {
	s := newTestState(t)
	// Fill the registration challenge map directly to the cap with live
	// entries; the next begin must be refused.
	s.regMu.Lock()
	for i := 0; i < maxChallenges; i++ {
		s.regChallenges[strings.Repeat("u", 3)+string(rune(i))] = challengeEntry{created: time.Now()}
	}
	s.regMu.Unlock()

	_, err := s.BeginRegistration("overflow-user")
	assert.ErrorContains(t, err, "at capacity")
}

func TestExpiredChallengeEvictedOnWrite(t *testing.T) {
	s := newTestState(t)
	s.regMu.Lock()
	s.regChallenges["stale"] = challengeEntry{created: time.Now().Add(-challengeTTL - time.Second)}
	s.regMu.Unlock()

	_, err := s.BeginRegistration("alice")
	require.NoError(t, err)

	s.regMu.Lock()
	_, staleExists := s.regChallenges["stale"]
	s.regMu.Unlock()
	assert.False(t, staleExists, "stale challenge should be evicted on write")
}

func TestExpiredChallengeNotTakeable(t *testing.T) {
	s := newTestState(t)
	s.regMu.Lock()
	s.regChallenges["alice"] = challengeEntry{created: time.Now().Add(-challengeTTL - time.Second)}
	s.regMu.Unlock()

	err := s.FinishRegistration("alice", strings.NewReader("{}"))
	assert.ErrorContains(t, err, "no pending registration challenge")
}
