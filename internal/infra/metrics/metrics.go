package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthMetrics counts authentication and reset-flow outcomes. A nil
// *AuthMetrics is valid and records nothing, so callers never need to guard.
type AuthMetrics struct {
	loginSuccess    prometheus.Counter
	loginFailure    prometheus.Counter
	accountsLocked  prometheus.Counter
	resetRequests   prometheus.Counter
	resetCompleted  prometheus.Counter
	resetRateLimits prometheus.Counter
}

// New registers the auth counters on the provided registerer.
func New(reg prometheus.Registerer) *AuthMetrics {
	factory := promauto.With(reg)

	return &AuthMetrics{
		loginSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "detextb",
			Subsystem: "auth",
			Name:      "login_success_total",
			Help:      "Successful credential verifications.",
		}),
		loginFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "detextb",
			Subsystem: "auth",
			Name:      "login_failure_total",
			Help:      "Rejected credential verifications.",
		}),
		accountsLocked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "detextb",
			Subsystem: "auth",
			Name:      "accounts_locked_total",
			Help:      "Accounts locked after exceeding the failure threshold.",
		}),
		resetRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "detextb",
			Subsystem: "auth",
			Name:      "password_reset_requests_total",
			Help:      "Password reset codes issued.",
		}),
		resetCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "detextb",
			Subsystem: "auth",
			Name:      "password_reset_completed_total",
			Help:      "Password resets completed end to end.",
		}),
		resetRateLimits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "detextb",
			Subsystem: "auth",
			Name:      "password_reset_rate_limited_total",
			Help:      "Reset-code requests rejected by the rate limiter.",
		}),
	}
}

func (m *AuthMetrics) LoginSuccess() {
	if m != nil {
		m.loginSuccess.Inc()
	}
}

func (m *AuthMetrics) LoginFailure() {
	if m != nil {
		m.loginFailure.Inc()
	}
}

func (m *AuthMetrics) AccountLocked() {
	if m != nil {
		m.accountsLocked.Inc()
	}
}

func (m *AuthMetrics) ResetRequested() {
	if m != nil {
		m.resetRequests.Inc()
	}
}

func (m *AuthMetrics) ResetCompleted() {
	if m != nil {
		m.resetCompleted.Inc()
	}
}

func (m *AuthMetrics) ResetRateLimited() {
	if m != nil {
		m.resetRateLimits.Inc()
	}
}
