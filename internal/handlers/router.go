package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agentmint-dev/agentmint/internal/middleware"
	"github.com/agentmint-dev/agentmint/internal/state"
)

// NewRouter builds the gin engine with the middleware chain and all routes.
// WebAuthn routes are registered only when the component is configured.
func NewRouter(st *state.AppState) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	rateLimited := middleware.RateLimit(st.RateLimiter, st.Metrics)

	router.GET("/health", Health)
	router.POST("/mint", rateLimited, Mint(st))
	router.POST("/proxy", Proxy(st))
	router.GET("/audit", Audit(st))
	router.GET("/metrics", Metrics(st))

	if st.WebAuthn != nil {
		wa := router.Group("/webauthn")
		wa.Use(rateLimited)
		wa.POST("/register/start", WebauthnRegisterStart(st))
		wa.POST("/register/finish", WebauthnRegisterFinish(st))
		wa.POST("/auth/start", WebauthnAuthStart(st))
		wa.POST("/auth/finish", WebauthnAuthFinish(st))
	}

	return router
}
