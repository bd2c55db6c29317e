// Package policy enforces per-action-type numeric limits parsed from a
// structured action string.
package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/agentmint-dev/agentmint/internal/logger"
)

// DefaultPath is the policy file read at startup.
const DefaultPath = "policies.json"

// Limit bounds one action type.
type Limit struct {
	MaxAmount uint64 `json:"max_amount"`
}

// Violation describes a rejected action.
type Violation struct {
	ActionType string
	Limit      uint64
	Requested  uint64
}

func (v *Violation) Error() string {
	return fmt.Sprintf("action %q exceeds limit: requested %d, max %d", v.ActionType, v.Requested, v.Limit)
}

// Engine maps action types to limits. An empty engine passes everything.
type Engine struct {
	limits map[string]Limit
}

// New creates an engine from an explicit limit map.
func New(limits map[string]Limit) *Engine {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Engine{limits: limits}
}

// FromFile loads limits from a JSON file of the shape
// {"<action_type>": {"max_amount": N}, ...}.
func FromFile(path string) (*Engine, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var limits map[string]Limit
	if err := json.Unmarshal(content, &limits); err != nil {
		return nil, err
	}
	return New(limits), nil
}

// FromDefaultFile loads DefaultPath; a missing or unreadable file yields an
// empty engine (all actions pass).
func FromDefaultFile() *Engine {
	engine, err := FromFile(DefaultPath)
	if err != nil {
		logger.Log.Debug().Err(err).Str("path", DefaultPath).Msg("no policy file loaded")
		return New(nil)
	}
	logger.Log.Info().Int("policies", len(engine.limits)).Msg("policy file loaded")
	return engine
}

// Check validates an action against the configured limits.
//
// The action type is the prefix up to the first ':' (or the whole string).
// The requested amount is the segment following an "amount" segment; an
// absent or unparseable amount passes. This is a best-effort structural
// check: enforcement depends on the downstream honoring the semantic.
func (e *Engine) Check(action string) error {
	actionType := parseActionType(action)

	limit, ok := e.limits[actionType]
	if !ok {
		return nil
	}

	amount, ok := parseAmount(action)
	if !ok {
		return nil
	}

	if amount > limit.MaxAmount {
		return &Violation{
			ActionType: actionType,
			Limit:      limit.MaxAmount,
			Requested:  amount,
		}
	}
	return nil
}

func parseActionType(action string) string {
	if i := strings.IndexByte(action, ':'); i >= 0 {
		return action[:i]
	}
	return action
}

func parseAmount(action string) (uint64, bool) {
	parts := strings.Split(action, ":")
	for i, part := range parts {
		if part == "amount" && i+1 < len(parts) {
			n, err := strconv.ParseUint(parts[i+1], 10, 64)
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}
