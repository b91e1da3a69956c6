package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness, readiness and in-process job stats.
// ping may be nil when the queue is in memory.
func (w *Worker) HealthHandler(ping Pinger) http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/readyz", func(c *gin.Context) {
		w.readyMu.RLock()
		ready := w.ready
		w.readyMu.RUnlock()

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if err := ping.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "queue_unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/stats", func(c *gin.Context) {
		s := w.metrics.Snapshot()
		pending, _ := w.queue.Len(c.Request.Context())

		c.JSON(http.StatusOK, gin.H{
			"totals":  s.JobCounts,
			"byType":  s.ByType,
			"avgMs":   s.AverageDuration.Milliseconds(),
			"maxMs":   s.MaxDuration.Milliseconds(),
			"pending": pending,
		})
	})

	return r
}
