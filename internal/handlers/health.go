package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/logger"
	"github.com/charlesng35/teamseats/pkg/response"
)

const healthCheckTimeout = 2 * time.Second

var errUnhealthy = errors.NewKind(errors.KindDependency, "SERVICE_UNAVAILABLE", "One or more dependencies are unavailable", http.StatusServiceUnavailable)

// Pinger is a dependency whose liveness is reported by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Health returns the liveness of every named dependency. Any failing
// dependency turns the response into a 503.
func Health(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				logger.WithModule("health").Warn("dependency unhealthy", zap.String("component", name), zap.Error(err))
				components[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "up"
		}

		if status != http.StatusOK {
			response.ErrorWithData(c, errUnhealthy, gin.H{"status": "degraded", "components": components}, nil)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "components": components})
	}
}
