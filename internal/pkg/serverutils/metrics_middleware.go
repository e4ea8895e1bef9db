package serverutils

import (
	"strconv"
	"time"

	"multimodal-rag-be/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// MetricsMiddleware labels requests by route pattern, not raw path.
func MetricsMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			status = StatusOf(err)
		}
		path := ctx.Route().Path

		metrics.HTTPRequestsTotal.WithLabelValues(ctx.Method(), path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(ctx.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}
