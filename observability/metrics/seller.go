package metrics

import (
	"math/big"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"sellerchain/core/types"
)

// Event types and attributes the seller registry reads from receipts.
const (
	purchaseEvent  = "seller.purchase"
	withdrawnEvent = "seller.withdrawn"
)

type SellerMetrics struct {
	purchases   *prometheus.CounterVec
	disbursed   *prometheus.CounterVec
	forfeited   prometheus.Counter
	failures    *prometheus.CounterVec
	withdrawals prometheus.Counter
	withdrawn   prometheus.Counter
	gasUsed     prometheus.Histogram
}

var (
	sellerOnce     sync.Once
	sellerRegistry *SellerMetrics
)

func Seller() *SellerMetrics {
	sellerOnce.Do(func() {
		sellerRegistry = &SellerMetrics{
			purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "seller_purchases_total",
				Help: "Completed purchases segmented by whether the referral earned a bonus.",
			}, []string{"referral"}),
			disbursed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "seller_tokens_disbursed_total",
				Help: "Custody tokens paid out by recipient kind.",
			}, []string{"kind"}),
			forfeited: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "seller_payment_remainder_total",
				Help: "Native units kept by sellers because they did not buy a whole token.",
			}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "seller_failures_total",
				Help: "Failed seller transactions by error code.",
			}, []string{"code"}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "seller_withdrawals_total",
				Help: "Number of treasury withdrawals.",
			}),
			withdrawn: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "seller_withdrawn_amount_total",
				Help: "Native units withdrawn from seller treasuries.",
			}),
			gasUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "seller_gas_used",
				Help:    "Gas used by transactions addressed to sellers.",
				Buckets: prometheus.ExponentialBuckets(21000, 2, 8),
			}),
		}
		prometheus.MustRegister(
			sellerRegistry.purchases,
			sellerRegistry.disbursed,
			sellerRegistry.forfeited,
			sellerRegistry.failures,
			sellerRegistry.withdrawals,
			sellerRegistry.withdrawn,
			sellerRegistry.gasUsed,
		)
	})
	return sellerRegistry
}

// ObserveReceipt records a receipt of a transaction sent to a seller.
func (m *SellerMetrics) ObserveReceipt(receipt *types.Receipt) {
	if m == nil || receipt == nil {
		return
	}
	m.gasUsed.Observe(float64(receipt.GasUsed))
	if !receipt.Succeeded() {
		code := receipt.ErrorCode
		if code == "" {
			code = "unknown"
		}
		m.failures.WithLabelValues(code).Inc()
		return
	}
	for _, evt := range receipt.Events {
		switch evt.Type {
		case purchaseEvent:
			m.observePurchase(evt.Attributes)
		case withdrawnEvent:
			m.withdrawals.Inc()
			m.withdrawn.Add(amount(evt.Attributes["amount"]))
		}
	}
}

func (m *SellerMetrics) observePurchase(attrs map[string]string) {
	label := "miss"
	if hit, _ := strconv.ParseBool(attrs["referralHit"]); hit {
		label = "hit"
	}
	m.purchases.WithLabelValues(label).Inc()
	m.disbursed.WithLabelValues("buyer").Add(amount(attrs["tokens"]))
	m.disbursed.WithLabelValues("bonus").Add(amount(attrs["bonus"]))
	m.forfeited.Add(amount(attrs["remainder"]))
}

// InitErrorCode pre-creates the failure series for code so it reports zero
// before the first failure.
func (m *SellerMetrics) InitErrorCode(code string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(code).Add(0)
}

func amount(raw string) float64 {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
