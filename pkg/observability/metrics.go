package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/prperemyshlev/otp-auth-service"

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// AuthMetrics counts auth operations by outcome.
// A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	operations otelmetric.Int64Counter
}

// NewAuthMetrics registers the auth instruments on the given provider
func NewAuthMetrics(provider otelmetric.MeterProvider) (*AuthMetrics, error) {
	meter := provider.Meter(meterName)

	operations, err := meter.Int64Counter("auth_operations",
		otelmetric.WithDescription("Number of auth operations by outcome"),
		otelmetric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_operations counter: %w", err)
	}

	return &AuthMetrics{operations: operations}, nil
}

// Record counts one operation. outcome is "success" or an error kind.
func (m *AuthMetrics) Record(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
