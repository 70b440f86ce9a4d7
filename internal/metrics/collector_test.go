package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordLoad(t *testing.T) {
	c := NewCollector("test", nil)

	c.RecordLoad(ResultLoaded, 120*time.Millisecond)
	c.RecordLoad(ResultLoaded, 80*time.Millisecond)
	c.RecordLoad(ResultError, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.loadsTotal.WithLabelValues(ResultLoaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loadsTotal.WithLabelValues(ResultError)))
	assert.Equal(t, 2, testutil.CollectAndCount(c.loadDuration))
}

func TestCollector_FallbacksAndMatches(t *testing.T) {
	c := NewCollector("test", nil)

	c.RecordFallback("format_not_implemented")
	c.RecordTextureMatch("basename")
	c.RecordTextureMatch("basename")
	c.SetTexturesHeld(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.fallbacksTotal.WithLabelValues("format_not_implemented")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.textureMatches.WithLabelValues("basename")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.texturesHeld))
}

func TestCollector_HTTPAndSubscribers(t *testing.T) {
	c := NewCollector("test", nil)

	c.RecordHTTPRequest("GET", "/state", 200, 5*time.Millisecond)
	c.SubscriberAdded()
	c.SubscriberAdded()
	c.SubscriberRemoved()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/state", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventSubscriber))
}

func TestCollector_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("meshview", reg)
	c.RecordLoad(ResultPlaceholder, time.Millisecond)
	c.ObserveArchive(4096)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["meshview_loads_total"])
	assert.True(t, names["meshview_archive_size_bytes"])
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordLoad(ResultLoaded, time.Second)
		c.RecordFallback("x")
		c.RecordTextureMatch("exact")
		c.SetTexturesHeld(1)
		c.ObserveArchive(1)
		c.RecordHTTPRequest("GET", "/", 200, 0)
		c.SubscriberAdded()
		c.SubscriberRemoved()
	})
}
