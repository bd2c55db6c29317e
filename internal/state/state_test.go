package state

import (
	"os"
	"testing"
)

func TestBuildTestState(t *testing.T) {
	st, err := BuildTest()
	if err != nil {
		t.Fatalf("BuildTest: %v", err)
	}
	defer st.AuditLog.Close()

	if st.SigningKey == nil || st.VerifyingKey == nil {
		t.Error("key material missing")
	}
	if st.JTIStore == nil || st.Metrics == nil || st.Policy == nil || st.RateLimiter == nil {
		t.Error("stores missing")
	}
	if st.OIDC != nil || st.WebAuthn != nil {
		t.Error("test state should not configure optional components")
	}
}

func TestFreshKeysPerBuild(t *testing.T) {
	a, err := BuildTest()
	if err != nil {
		t.Fatal(err)
	}
	defer a.AuditLog.Close()
	b, err := BuildTest()
	if err != nil {
		t.Fatal(err)
	}
	defer b.AuditLog.Close()

	if a.VerifyingKey.Equal(b.VerifyingKey) {
		t.Error("two builds produced the same keypair")
	}
}

func TestRequireOIDCFromEnv(t *testing.T) {
	os.Setenv("REQUIRE_OIDC", "true")
	defer os.Unsetenv("REQUIRE_OIDC")

	st, err := BuildTest()
	if err != nil {
		t.Fatal(err)
	}
	defer st.AuditLog.Close()
	if !st.RequireOIDC {
		t.Error("REQUIRE_OIDC=true not honored")
	}
}

func TestIncrementRequests(t *testing.T) {
	st, err := BuildTest()
	if err != nil {
		t.Fatal(err)
	}
	defer st.AuditLog.Close()

	for i := 0; i < 1500; i++ {
		st.IncrementRequests()
	}
	if got := st.requestCount.Load(); got != 1500 {
		t.Errorf("request count = %d, want 1500", got)
	}
}
