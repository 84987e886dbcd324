// internal/service/metrics.go
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"krako-ledger/internal/domain"
)

var (
	claimAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krako_claim_attempts_total",
		Help: "Claim attempts by outcome",
	}, []string{"outcome"})

	claimDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "krako_claim_duration_seconds",
		Help:    "Latency of AttemptClaim",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	pointsCreditedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krako_points_credited_total",
		Help: "Points credited to balances by transaction type",
	}, []string{"type"})

	ledgerAppendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "krako_ledger_append_failures_total",
		Help: "Accepted claims whose ledger entry could not be written",
	})
)

func outcomeLabel(o domain.ClaimOutcome) string {
	if o.Success {
		return "accepted"
	}
	return string(o.Reason)
}

func recordCredit(txType domain.TransactionType, amount decimal.Decimal) {
	pointsCreditedTotal.WithLabelValues(string(txType)).Add(amount.InexactFloat64())
}
