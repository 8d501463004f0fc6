package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eagleapps/user-service/internal/container"
	handlers "github.com/eagleapps/user-service/internal/interface/http"
	"github.com/eagleapps/user-service/internal/interface/middleware"
)

// UserModule wires the user CRUD routes and the internal routes consumed by
// the authentication service. Every route sits behind the API key gate the
// registry applies; rate limits differ per route class.

type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	writeLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIP(), nil)
	readLimiter := middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), nil)
	// Internal routes are called service-to-service; private networks bypass the limit.
	internalLimiter := middleware.RateLimit(container.GetRedis(), 600, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())

	users := rg.Group("/users")
	{
		users.POST("", writeLimiter, m.Handler.Create)
		users.GET("", readLimiter, m.Handler.GetAll)
		users.GET("/search", readLimiter, m.Handler.Search)
		users.GET("/:id", readLimiter, m.Handler.GetByID)
		users.PUT("/:id", writeLimiter, m.Handler.Update)
		users.DELETE("/:id", writeLimiter, m.Handler.Delete)
	}

	internal := rg.Group("/internal/users")
	{
		internal.GET("/:username", internalLimiter, m.Handler.GetByUsername)
		internal.PUT("/:username/password", internalLimiter, m.Handler.UpdatePassword)
	}
}
