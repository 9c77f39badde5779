package gateway

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Instrumentation records request counts and latency/size histograms per
// route. Register it once; the collectors are package-global to prometheus.
func Instrumentation() fiber.Handler {
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scholarseek",
		Subsystem: "request",
		Name:      "requests_count",
		Help:      "Number of requests per each endpoint",
	}, []string{"code", "method", "path"})

	resTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scholarseek",
		Subsystem: "response",
		Name:      "response_time_hist",
		Help:      "response duration in milliseconds",
	})

	resSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scholarseek",
		Subsystem: "response",
		Name:      "size_histogram",
		Help:      "response size",
	})

	reqSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scholarseek",
		Subsystem: "request",
		Name:      "size_hist",
		Help:      "request size",
	})

	colls := []prometheus.Collector{counterVec, resTime, resSize, reqSize}
	for _, v := range colls {
		if err := prometheus.Register(v); err != nil {
			panic(err)
		}
	}

	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		duration := float64(time.Since(start)) * 1e-6 // to millisecond

		routePath := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			routePath = r.Path
		}
		status := strconv.Itoa(c.Response().StatusCode())

		counterVec.WithLabelValues(status, c.Method(), routePath).Inc()
		resTime.Observe(duration)
		resSize.Observe(float64(len(c.Response().Body())))
		reqSize.Observe(float64(len(c.Body())))

		return err
	}
}
