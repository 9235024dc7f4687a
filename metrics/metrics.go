package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "talent_booking"

var (
	once sync.Once

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Persisted workflow transitions by entity and status pair.",
		},
		[]string{"entity", "from", "to"},
	)

	providerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Failed external provider calls by provider and operation.",
		},
		[]string{"provider", "op"},
	)

	referralConversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referral_conversions_total",
			Help:      "Referrals converted by conversion type.",
		},
		[]string{"type"},
	)

	rewardCredits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referral_reward_credits_total",
			Help:      "Referral reward crediting outcomes.",
		},
		[]string{"outcome"},
	)
)

// Register registers the collectors with the default registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(transitions, providerErrors, referralConversions, rewardCredits)
	})
}

func IncTransition(entity, from, to string) {
	transitions.WithLabelValues(entity, from, to).Inc()
}

func IncProviderError(provider, op string) {
	providerErrors.WithLabelValues(provider, op).Inc()
}

func IncReferralConversion(conversionType string) {
	referralConversions.WithLabelValues(conversionType).Inc()
}

func IncRewardCredit(outcome string) {
	rewardCredits.WithLabelValues(outcome).Inc()
}
