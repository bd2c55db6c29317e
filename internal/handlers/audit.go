package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentmint-dev/agentmint/internal/errors"
	"github.com/agentmint-dev/agentmint/internal/state"
)

// auditQueryLimit caps the audit listing.
const auditQueryLimit = 100

// Audit returns the most recent redemptions, newest first.
func Audit(st *state.AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := st.AuditLog.Recent(auditQueryLimit)
		if err != nil {
			errors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}
