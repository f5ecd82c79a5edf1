package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/adonai404/imperial-fiscal/internal/access"
	"github.com/adonai404/imperial-fiscal/internal/api/responses"
	fiscalhandler "github.com/adonai404/imperial-fiscal/internal/domain/fiscal/handler"
	"github.com/adonai404/imperial-fiscal/pkg/metrics"
)

// accessHeader carries the caller's company access tokens, comma
// separated. Invalid or expired tokens are ignored, they never fail the
// request.
const accessHeader = "X-Company-Access"

func accessMiddleware(tokens *access.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(accessHeader)
		if header != "" {
			parts := strings.Split(header, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			c.Set(fiscalhandler.AccessSetKey, access.FromTokens(tokens, parts))
		}
		c.Next()
	}
}

func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			responses.Error(c, http.StatusTooManyRequests, "Muitas requisições, tente novamente em instantes")
			c.Abort()
			return
		}
		c.Next()
	}
}
