package errors

import (
	"net/http"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{TokenExpired(), http.StatusUnauthorized},
		{InvalidSignature(), http.StatusUnauthorized},
		{InvalidToken("missing separator"), http.StatusUnauthorized},
		{Unauthorized("no assertion"), http.StatusUnauthorized},
		{ReplayDetected("jti-1"), http.StatusConflict},
		{PolicyViolation("refund over limit"), http.StatusForbidden},
		{RateLimited("per-ip"), http.StatusTooManyRequests},
		{Validation("sub is empty"), http.StatusBadRequest},
		{ServiceUnavailable("JTI store at capacity"), http.StatusServiceUnavailable},
		{Database(nil), http.StatusInternalServerError},
		{Serialization(nil), http.StatusInternalServerError},
		{Signing("key error"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if tc.err.StatusCode != tc.status {
			t.Errorf("%s: expected status %d, got %d", tc.err.Code, tc.status, tc.err.StatusCode)
		}
	}
}

func TestNoInternalLeak(t *testing.T) {
	// 500-class and crypto-adjacent errors must collapse to the generic
	// string regardless of what the detail contains.
	secrets := []*AppError{
		Signing("ed25519 private key 0xdeadbeef"),
		Database(New(CodeDatabase, "UNIQUE constraint failed: audit_log.jti")),
		Serialization(nil),
		Base64(nil),
		LockPoisoned("jti"),
	}

	for _, e := range secrets {
		if e.ClientMessage() != "internal error" {
			t.Errorf("%s: client message leaked: %q", e.Code, e.ClientMessage())
		}
	}
}

func TestClientMessagesAreCategorical(t *testing.T) {
	if got := ReplayDetected("super-secret-jti").ClientMessage(); got != "token already used" {
		t.Errorf("replay message = %q", got)
	}
	if got := PolicyViolation("refund limit 50 requested 75").ClientMessage(); got != "policy violation" {
		t.Errorf("policy message = %q", got)
	}
	if got := InvalidToken("payload is 4096 bytes").ClientMessage(); got != "invalid token" {
		t.Errorf("invalid token message = %q", got)
	}
}

func TestFromPassesThroughAppError(t *testing.T) {
	orig := ReplayDetected("jti-9")
	if From(orig) != orig {
		t.Error("From should return the same *AppError")
	}
}

func TestLockPoisonedDetail(t *testing.T) {
	e := LockPoisoned("audit")
	if e.Detail != "audit lock poisoned" {
		t.Errorf("detail = %q", e.Detail)
	}
	if e.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", e.StatusCode)
	}
}
