package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eagleapps/user-service/internal/container"
	"github.com/eagleapps/user-service/internal/interface/middleware"
)

// DebugModule exposes the Go runtime counters (expvar) for scraping.
// Private callers bypass the limit the same way the internal user routes do.
type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
