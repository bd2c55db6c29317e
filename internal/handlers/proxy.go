package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentmint-dev/agentmint/internal/audit"
	"github.com/agentmint-dev/agentmint/internal/console"
	"github.com/agentmint-dev/agentmint/internal/errors"
	"github.com/agentmint-dev/agentmint/internal/logger"
	"github.com/agentmint-dev/agentmint/internal/state"
	"github.com/agentmint-dev/agentmint/internal/token"
)

// VerifyTimeHeader reports the redemption latency in microseconds.
const VerifyTimeHeader = "X-Verify-Time-Us"

// ProxyRequest is the redemption payload.
type ProxyRequest struct {
	Token string `json:"token"`
}

// ProxyResponse echoes the redeemed claims.
type ProxyResponse struct {
	Sub    string `json:"sub"`
	Action string `json:"action"`
	JTI    string `json:"jti"`
}

// Proxy verifies a token, burns its jti, and appends the audit row. Each
// step's latency is measured; the total is returned in the response header.
func Proxy(st *state.AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.IncrementRequests()
		totalStart := time.Now()

		var req ProxyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			st.Metrics.RecordReject()
			errors.Respond(c, errors.InvalidToken("malformed request body"))
			return
		}

		verifyStart := time.Now()
		claims, err := token.Verify(req.Token, st.VerifyingKey)
		if err != nil {
			st.Metrics.RecordReject()
			errors.Respond(c, err)
			return
		}
		verifyUs := time.Since(verifyStart).Microseconds()

		jtiStart := time.Now()
		if err := st.JTIStore.CheckAndInsert(claims.JTI, claims.EXP.Unix()); err != nil {
			if appErr := errors.From(err); appErr.Code == errors.CodeReplayDetected {
				st.Metrics.RecordReplay()
				logger.Security().Warn().Str("jti", claims.JTI).Msg("replay blocked")
			}
			errors.Respond(c, err)
			return
		}
		jtiUs := time.Since(jtiStart).Microseconds()

		auditStart := time.Now()
		if err := st.AuditLog.Append(claims.JTI, claims.Sub, claims.Action, time.Now()); err != nil {
			// A restart clears the replay set; the primary key then catches
			// in-flight tokens redeemed before it. Any other write failure
			// leaves the jti consumed but unaudited.
			if audit.IsDuplicate(err) {
				st.Metrics.RecordReplay()
				errors.Respond(c, errors.ReplayDetected(claims.JTI))
				return
			}
			errors.Respond(c, err)
			return
		}
		auditUs := time.Since(auditStart).Microseconds()

		totalUs := time.Since(totalStart).Microseconds()
		st.Metrics.RecordVerify(uint64(totalUs))

		logger.Log.Info().
			Str("jti", claims.JTI).
			Int64("verify_us", verifyUs).
			Int64("jti_us", jtiUs).
			Int64("audit_us", auditUs).
			Int64("total_us", totalUs).
			Msg("token redeemed")
		console.Redeem(claims.Sub, claims.Action, totalUs)

		c.Header(VerifyTimeHeader, strconv.FormatInt(totalUs, 10))
		c.JSON(http.StatusOK, ProxyResponse{
			Sub:    claims.Sub,
			Action: claims.Action,
			JTI:    claims.JTI,
		})
	}
}
