package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notifeed/internal/metrics"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "notifeed")

	m.Inserted.WithLabelValues("LIVE").Inc()
	m.Inserted.WithLabelValues("LIVE").Inc()
	m.Stale.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Inserted.WithLabelValues("LIVE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Stale))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "notifeed_feed_notifications_inserted_total")
	assert.Contains(t, names, "notifeed_feed_events_stale_total")
}

func TestNew_TwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg, "notifeed")
	assert.Panics(t, func() { metrics.New(reg, "notifeed") })
}
