package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LoyaltyMetrics struct {
	pointsCredited prometheus.Counter
	tokensMinted   prometheus.Counter
	rewardActions  *prometheus.CounterVec
	rpcRequests    *prometheus.CounterVec
	rpcFailures    *prometheus.CounterVec
}

var (
	loyaltyOnce     sync.Once
	loyaltyRegistry *LoyaltyMetrics
)

func Loyalty() *LoyaltyMetrics {
	loyaltyOnce.Do(func() {
		loyaltyRegistry = &LoyaltyMetrics{
			pointsCredited: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loyalty_points_credited_total",
				Help: "Count of successful loyalty point credits.",
			}),
			tokensMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loyalty_tokens_minted_total",
				Help: "Count of membership tokens minted.",
			}),
			rewardActions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_reward_actions_total",
				Help: "Count of reward evaluations by outcome tier.",
			}, []string{"tier"}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_rpc_requests_total",
				Help: "Count of JSON-RPC requests by method.",
			}, []string{"method"}),
			rpcFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_rpc_failures_total",
				Help: "Count of failed JSON-RPC requests by method.",
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			loyaltyRegistry.pointsCredited,
			loyaltyRegistry.tokensMinted,
			loyaltyRegistry.rewardActions,
			loyaltyRegistry.rpcRequests,
			loyaltyRegistry.rpcFailures,
		)
	})
	return loyaltyRegistry
}

// RecordPointsCredited increments the successful credit counter.
func (m *LoyaltyMetrics) RecordPointsCredited() {
	if m == nil {
		return
	}
	m.pointsCredited.Inc()
}

// RecordTokenMinted increments the mint counter.
func (m *LoyaltyMetrics) RecordTokenMinted() {
	if m == nil {
		return
	}
	m.tokensMinted.Inc()
}

// RecordRewardAction increments the reward counter for the given tier.
func (m *LoyaltyMetrics) RecordRewardAction(tier string) {
	if m == nil {
		return
	}
	m.rewardActions.WithLabelValues(tier).Inc()
}

// RecordRPCRequest increments the request counter for the given method.
func (m *LoyaltyMetrics) RecordRPCRequest(method string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method).Inc()
}

// RecordRPCFailure increments the failure counter for the given method.
func (m *LoyaltyMetrics) RecordRPCFailure(method string) {
	if m == nil {
		return
	}
	m.rpcFailures.WithLabelValues(method).Inc()
}
