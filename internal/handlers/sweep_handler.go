package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bundlewatch/go-restock-sweep/internal/state"
	"github.com/bundlewatch/go-restock-sweep/internal/sweep"
)

// SweepConfig groups dependencies for the sweep trigger endpoint.
type SweepConfig struct {
	Runner *sweep.Runner
	// Secret, when set, must match the request's bearer token.
	Secret string
	// MaxDuration bounds the whole sweep's wall clock.
	MaxDuration time.Duration
}

// RegisterSweepRoutes registers the cron trigger endpoint.
func RegisterSweepRoutes(r *gin.Engine, cfg SweepConfig) {
	r.POST("/sweep", func(c *gin.Context) {
		if cfg.Secret != "" {
			if c.GetHeader("Authorization") != "Bearer "+cfg.Secret {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}

		ctx := c.Request.Context()
		if cfg.MaxDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.MaxDuration)
			defer cancel()
		}

		summary, err := cfg.Runner.Run(ctx)
		if err != nil {
			if errors.Is(err, state.ErrLockHeld) {
				c.JSON(http.StatusConflict, gin.H{"error": "already_running"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep_failed", "detail": err.Error()})
			return
		}

		c.JSON(http.StatusOK, summary)
	})
}
