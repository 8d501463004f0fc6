package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eagleapps/user-service/pkg/response"
)

// APIKeyHeader is the header the calling services send their shared key in.
const APIKeyHeader = "eagle-api-key"

// APIKeyAuth rejects any request that does not carry the shared static API
// key. Authentication of end users lives in the collaborating auth service;
// this gate only keeps strangers off the wire.
func APIKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(APIKeyHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			resp := response.Error[any](c, http.StatusUnauthorized, "invalid api key", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Next()
	}
}
