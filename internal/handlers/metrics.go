package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentmint-dev/agentmint/internal/state"
)

// Metrics returns a point-in-time counter snapshot.
func Metrics(st *state.AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, st.Metrics.Snapshot())
	}
}
