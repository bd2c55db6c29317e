package validator

import (
	"strings"
	"testing"
)

type mintShape struct {
	Sub    string `json:"sub" validate:"subject"`
	Action string `json:"action" validate:"action"`
}

func TestValidRequestPasses(t *testing.T) {
	req := mintShape{Sub: "alice", Action: "deploy"}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestEmptySubRejected(t *testing.T) {
	req := mintShape{Sub: "", Action: "deploy"}
	if ValidateStruct(&req) == nil {
		t.Error("empty sub accepted")
	}
}

func TestOversizedSubRejected(t *testing.T) {
	req := mintShape{Sub: strings.Repeat("a", 257), Action: "deploy"}
	if ValidateStruct(&req) == nil {
		t.Error("257-char sub accepted")
	}
	req.Sub = strings.Repeat("a", 256)
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("256-char sub rejected: %v", err)
	}
}

func TestControlCharactersInSubRejected(t *testing.T) {
	for _, sub := range []string{"ali\x00ce", "ali\nce", "\talice"} {
		req := mintShape{Sub: sub, Action: "deploy"}
		if ValidateStruct(&req) == nil {
			t.Errorf("sub %q accepted", sub)
		}
	}
}

func TestActionCharset(t *testing.T) {
	ok := []string{"deploy", "refund:amount:50", "a-b_c:1", "X"}
	for _, action := range ok {
		req := mintShape{Sub: "alice", Action: action}
		if err := ValidateStruct(&req); err != nil {
			t.Errorf("action %q rejected: %v", action, err)
		}
	}

	bad := []string{"", "has space", "emoji🔥", "semi;colon", strings.Repeat("x", 65)}
	for _, action := range bad {
		req := mintShape{Sub: "alice", Action: action}
		if ValidateStruct(&req) == nil {
			t.Errorf("action %q accepted", action)
		}
	}
}

func TestActionAtMaxLength(t *testing.T) {
	req := mintShape{Sub: "alice", Action: strings.Repeat("x", 64)}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("64-char action rejected: %v", err)
	}
}
