package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBillingCountsOutcomes(t *testing.T) {
	RecordBilling("mtn-test", "charge", true, 10*time.Millisecond)
	RecordBilling("mtn-test", "charge", false, 10*time.Millisecond)
	RecordBilling("mtn-test", "charge", false, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(billingOutcomes.WithLabelValues("mtn-test", "charge", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(billingOutcomes.WithLabelValues("mtn-test", "charge", "failure")))
}

func TestRecordSubscriptionEvent(t *testing.T) {
	before := func() float64 {
		metricsOnce.Do(initMetrics)
		return testutil.ToFloat64(subscriptionEvents.WithLabelValues("test-event"))
	}()

	RecordSubscriptionEvent("test-event")

	assert.Equal(t, before+1, testutil.ToFloat64(subscriptionEvents.WithLabelValues("test-event")))
}

func TestSetWebsocketConnections(t *testing.T) {
	SetWebsocketConnections(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(wsConnections))
}
