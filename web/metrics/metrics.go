package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service's collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elitehub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "elitehub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	referralEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elitehub",
			Subsystem: "referrals",
			Name:      "events_total",
			Help:      "Referral ledger events by kind.",
		},
		[]string{"event"},
	)

	rewardsCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "elitehub",
			Subsystem: "referrals",
			Name:      "rewards_kobo_total",
			Help:      "Referral rewards credited, in kobo.",
		},
	)

	payoutDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elitehub",
			Subsystem: "payouts",
			Name:      "decisions_total",
			Help:      "Payout requests decided, by outcome.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		referralEvents,
		rewardsCredited,
		payoutDecisions,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ReferralEvent counts signup_applied, signup_ignored, approved,
// rejected and similar ledger outcomes.
func ReferralEvent(event string) {
	referralEvents.WithLabelValues(event).Inc()
}

func RewardCredited(kobo int64) {
	if kobo > 0 {
		rewardsCredited.Add(float64(kobo))
	}
}

func PayoutDecided(status string) {
	payoutDecisions.WithLabelValues(status).Inc()
}
