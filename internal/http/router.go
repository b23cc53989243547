package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/hivecrm/contactbook/internal/config"
	"github.com/hivecrm/contactbook/internal/domain"
	"github.com/hivecrm/contactbook/internal/http/handler"
	httpmiddleware "github.com/hivecrm/contactbook/internal/http/middleware"
	"github.com/hivecrm/contactbook/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, contactsHandler *handler.ContactsHandler, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Contact Book API"})
	})
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.GET("/verify-email", authHandler.VerifyEmail)
		authGroup.POST("/token", authHandler.Token)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.GET("/me", authMiddleware.ValidateJWT, authHandler.Me)
		authGroup.PATCH("/avatar", authMiddleware.ValidateJWT, authHandler.Avatar)
	}

	contacts := r.Group("/contacts", authMiddleware.ValidateJWT)
	{
		contacts.POST("/", contactsHandler.Create)
		contacts.GET("/", contactsHandler.List)
		contacts.GET("/all/", authMiddleware.RequireRoles(domain.RoleAdmin), contactsHandler.ListAll)
		contacts.GET("/search/", contactsHandler.Search)
		contacts.GET("/upcoming_birthdays/", contactsHandler.UpcomingBirthdays)
		contacts.PUT("/:identifier", contactsHandler.Update)
		contacts.DELETE("/:contact_id", authMiddleware.RequireRoles(domain.RoleAdmin), contactsHandler.Delete)
	}

	return r
}
