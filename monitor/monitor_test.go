package monitor

import (
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depeg-guard-go/guard"
	"depeg-guard-go/risk"
)

func e18(m int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(m), big.NewInt(1_000_000_000_000_000))
}

func TestOnDecisionRecordsMetrics(t *testing.T) {
	m := New(DefaultConfig())

	m.OnDecision(guard.DecisionEvent{
		Pool:         "pool-1",
		Reference:    e18(1003),
		TWAP:         e18(1000),
		DeviationBps: 30,
		Level:        risk.Medium,
		FeeBps:       500,
		SizeCeiling:  big.NewInt(200_000),
		Admit:        true,
	})
	m.OnDecision(guard.DecisionEvent{
		Pool:         "pool-1",
		Reference:    e18(1025),
		TWAP:         e18(1000),
		DeviationBps: 250,
		Level:        risk.Critical,
		FeeBps:       3000,
		SizeCeiling:  big.NewInt(10_000),
		Admit:        false,
		Reason:       guard.ReasonCriticalDeviation,
	})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.evaluations.WithLabelValues("pool-1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.admits.WithLabelValues("pool-1")))
	assert.Equal(t, float64(250), testutil.ToFloat64(m.deviationBps.WithLabelValues("pool-1")))
	assert.Equal(t, float64(3000), testutil.ToFloat64(m.feeBps.WithLabelValues("pool-1")))
	assert.InDelta(t, 1.025, testutil.ToFloat64(m.referencePrice.WithLabelValues("pool-1")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.twapPrice.WithLabelValues("pool-1")), 1e-9)
}

func TestOnRejectionCountsByReason(t *testing.T) {
	m := New(DefaultConfig())

	m.OnRejection(guard.RejectionEvent{Pool: "pool-1", Reason: guard.ReasonSizeExceeded})
	m.OnRejection(guard.RejectionEvent{Pool: "pool-1", Reason: guard.ReasonSizeExceeded})
	m.OnRejection(guard.RejectionEvent{Pool: "pool-1", Reason: guard.ReasonStaleReference})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.rejections.WithLabelValues("pool-1", "size_exceeded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rejections.WithLabelValues("pool-1", "stale_reference")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.rejections.WithLabelValues("pool-2", "size_exceeded")))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.OnDecision(guard.DecisionEvent{Pool: "pool-1", DeviationBps: 12, Admit: true})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "dg_guard_evaluations_total")
	assert.Contains(t, rec.Body.String(), "dg_guard_deviation_bps")
}
