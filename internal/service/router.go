package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tallyup/tallyup/internal/auth"
	"github.com/tallyup/tallyup/internal/middleware"
)

// NewRouter assembles the gin engine: middleware chain, public auth
// routes, and the authenticated API under /api/v1.
func NewRouter(authSvc *AuthService, billSvc *BillService, contactSvc *ContactService, jwtManager *auth.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authSvc.Register)
		authRoutes.POST("/login", authSvc.Login)
		authRoutes.GET("/me", middleware.RequireAuth(jwtManager), authSvc.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(jwtManager))
	{
		protected.POST("/split/preview", billSvc.Preview)

		protected.POST("/bills", billSvc.Create)
		protected.GET("/bills", billSvc.List)
		protected.GET("/bills/:billID", billSvc.Get)
		protected.PUT("/bills/:billID", billSvc.Update)
		protected.DELETE("/bills/:billID", billSvc.Delete)
		protected.POST("/bills/:billID/settle", billSvc.Settle)
		protected.POST("/bills/:billID/participants/:participantID/pay", billSvc.MarkPaid)

		protected.GET("/contacts", contactSvc.List)
		protected.POST("/contacts", contactSvc.Create)
		protected.DELETE("/contacts/:contactID", contactSvc.Delete)
	}

	return r
}
