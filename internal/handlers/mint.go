// Package handlers implements the HTTP endpoints for the token lifecycle.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentmint-dev/agentmint/internal/console"
	"github.com/agentmint-dev/agentmint/internal/errors"
	"github.com/agentmint-dev/agentmint/internal/logger"
	"github.com/agentmint-dev/agentmint/internal/state"
	"github.com/agentmint-dev/agentmint/internal/token"
	"github.com/agentmint-dev/agentmint/internal/validator"
)

const (
	defaultTTLSeconds = 60
	minTTLSeconds     = 1
	maxTTLSeconds     = 300
)

// MintRequest is the mint endpoint payload.
type MintRequest struct {
	Sub        string `json:"sub" validate:"subject"`
	Action     string `json:"action" validate:"action"`
	TTLSeconds int64  `json:"ttl_seconds"`
	IDToken    string `json:"id_token"`
}

// MintResponse carries the issued token.
type MintResponse struct {
	Token string `json:"token"`
	JTI   string `json:"jti"`
	Exp   string `json:"exp"`
}

// Mint validates the request, optionally checks the federated identity
// assertion, enforces policy, and returns a signed token. Any failure aborts
// immediately with the mapped error; neither the token nor key material is
// ever logged.
func Mint(st *state.AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.IncrementRequests()

		var req MintRequest
		if appErr := validator.BindAndValidate(c, &req); appErr != nil {
			errors.Respond(c, appErr)
			return
		}

		if err := st.RateLimiter.CheckUser(req.Sub); err != nil {
			st.Metrics.RecordRateLimited()
			errors.Respond(c, errors.RateLimited(err.Error()))
			return
		}

		if st.OIDC != nil {
			if req.IDToken == "" {
				if st.RequireOIDC {
					st.Metrics.RecordIdentityFailure()
					errors.Respond(c, errors.Unauthorized("id_token required"))
					return
				}
			} else {
				identity, err := st.OIDC.Verify(req.IDToken)
				if err != nil {
					st.Metrics.RecordIdentityFailure()
					errors.Respond(c, err)
					return
				}
				if identity.PrincipalID() != req.Sub {
					st.Metrics.RecordIdentityFailure()
					errors.Respond(c, errors.Unauthorized("assertion subject does not match request sub"))
					return
				}
			}
		}

		if err := st.Policy.Check(req.Action); err != nil {
			st.Metrics.RecordPolicyDenial()
			errors.Respond(c, errors.PolicyViolation(err.Error()))
			return
		}

		ttl := req.TTLSeconds
		if ttl == 0 {
			ttl = defaultTTLSeconds
		}
		if ttl < minTTLSeconds {
			ttl = minTTLSeconds
		}
		if ttl > maxTTLSeconds {
			ttl = maxTTLSeconds
		}

		claims := token.NewClaims(req.Sub, req.Action, ttl)
		signed, err := token.Sign(&claims, st.SigningKey)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		st.Metrics.RecordMint()
		logger.Log.Info().
			Str("sub", req.Sub).
			Str("action", req.Action).
			Str("jti", claims.JTI).
			Int64("ttl_seconds", ttl).
			Msg("token minted")
		console.Mint(req.Sub, req.Action, claims.JTI)

		c.JSON(http.StatusOK, MintResponse{
			Token: signed,
			JTI:   claims.JTI,
			Exp:   claims.EXP.Format(time.RFC3339),
		})
	}
}
