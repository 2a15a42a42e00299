package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "error", statusClass(0))
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(503))
}

func TestRecordListCache(t *testing.T) {
	before := testutil.ToFloat64(listCache.WithLabelValues("roles", "hit"))
	RecordListCache("roles", true)
	assert.Equal(t, before+1, testutil.ToFloat64(listCache.WithLabelValues("roles", "hit")))
}

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(upstreamRequests.WithLabelValues("GET", "4xx"))
	ObserveUpstream("GET", 404, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(upstreamRequests.WithLabelValues("GET", "4xx")))
}
