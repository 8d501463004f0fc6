package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP resolves the originating client address behind the edge proxies and
// stores it under "real_ip" for the rate limiter and access logs.
// CF-Connecting-IP wins over X-Forwarded-For (left-most entry); anything
// unparseable falls back to the socket peer via ClientIP.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ip := parseAddr(c.GetHeader("CF-Connecting-IP")); ip != "" {
			c.Set("real_ip", ip)
			c.Next()
			return
		}
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := parseAddr(first); ip != "" {
				c.Set("real_ip", ip)
				c.Next()
				return
			}
		}
		c.Set("real_ip", c.ClientIP())
		c.Next()
	}
}

func parseAddr(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
