package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "otravers"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// AuthOperations counts login/refresh/logout calls by outcome ("success" or an error kind).
	AuthOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "auth_operations_total", Help: "Authentication operations by outcome."},
		[]string{"operation", "outcome"},
	)
	SessionRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "session_rejections_total", Help: "Requests rejected by the session middleware, by reason."},
		[]string{"reason"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthOperations)
	reg.MustRegister(SessionRejections)
}
