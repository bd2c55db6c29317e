package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentmint-dev/agentmint/internal/errors"
	"github.com/agentmint-dev/agentmint/internal/state"
	"github.com/agentmint-dev/agentmint/internal/validator"
)

// WebauthnStartRequest opens a registration or authentication ceremony.
type WebauthnStartRequest struct {
	UserID string `json:"user_id" validate:"subject"`
}

// WebauthnFinishRequest completes a ceremony. Credential is the raw
// authenticator response, passed through to the WebAuthn library.
type WebauthnFinishRequest struct {
	UserID     string          `json:"user_id" validate:"subject"`
	Credential json.RawMessage `json:"credential"`
}

// WebauthnRegisterStart begins credential registration for a user.
func WebauthnRegisterStart(st *state.AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WebauthnStartRequest
		if appErr := validator.BindAndValidate(c, &req); appErr != nil {
			errors.Respond(c, appErr)
			return
		}
		creation, err := st.WebAuthn.BeginRegistration(req.UserID)
		if err != nil {
			errors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, creation)
	}
}

// WebauthnRegisterFinish completes credential registration.
func WebauthnRegisterFinish(st *state.AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WebauthnFinishRequest
		if appErr := validator.BindAndValidate(c, &req); appErr != nil {
			errors.Respond(c, appErr)
			return
		}
		if err := st.WebAuthn.FinishRegistration(req.UserID, bytes.NewReader(req.Credential)); err != nil {
			errors.Respond(c, err)
			return
		}
		st.Metrics.RecordWebauthnRegistration()
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// WebauthnAuthStart begins an authentication ceremony.
func WebauthnAuthStart(st *state.AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WebauthnStartRequest
		if appErr := validator.BindAndValidate(c, &req); appErr != nil {
			errors.Respond(c, appErr)
			return
		}
		assertion, err := st.WebAuthn.BeginLogin(req.UserID)
		if err != nil {
			errors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, assertion)
	}
}

// WebauthnAuthFinish completes an authentication ceremony. Failures count
// toward the per-user lockout.
func WebauthnAuthFinish(st *state.AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WebauthnFinishRequest
		if appErr := validator.BindAndValidate(c, &req); appErr != nil {
			errors.Respond(c, appErr)
			return
		}
		result, err := st.WebAuthn.FinishLogin(req.UserID, bytes.NewReader(req.Credential))
		if err != nil {
			st.Metrics.RecordWebauthnFailure()
			if result != nil && result.LockedOut {
				st.Metrics.RecordWebauthnLockout()
			}
			errors.Respond(c, err)
			return
		}
		st.Metrics.RecordWebauthnSuccess()
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
