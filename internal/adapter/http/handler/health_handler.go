package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// healthCheckTimeout bounds each dependency ping.
const healthCheckTimeout = 2 * time.Second

type dependencyHealth struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthCheck handles GET /health. Dependencies are pinged in parallel; any
// failure turns the response into a 503 "degraded".
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := make([]dependencyHealth, len(checkers))

		var wg sync.WaitGroup
		for i, checker := range checkers {
			wg.Add(1)
			go func(i int, checker ports.HealthChecker) {
				defer wg.Done()
				results[i] = ping(c.Request.Context(), checker)
			}(i, checker)
		}
		wg.Wait()

		code, overall := http.StatusOK, "healthy"
		deps := make(map[string]dependencyHealth, len(checkers))
		for i, checker := range checkers {
			if results[i].Status != "healthy" {
				code, overall = http.StatusServiceUnavailable, "degraded"
			}
			deps[checker.Name()] = results[i]
		}

		c.JSON(code, gin.H{"status": overall, "dependencies": deps})
	}
}

func ping(ctx context.Context, checker ports.HealthChecker) dependencyHealth {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := checker.Ping(ctx)
	res := dependencyHealth{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status, res.Error = "unhealthy", err.Error()
	}
	return res
}
