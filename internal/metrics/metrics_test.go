package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFinished(t *testing.T) {
	m := New()
	m.SearchFinished(OutcomeSolved, 12, 0.002)
	m.SearchFinished(OutcomeSolved, 3, 0.001)
	m.SearchFinished(OutcomeExhausted, 40, 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.searches.WithLabelValues(OutcomeSolved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues(OutcomeExhausted)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "slic_autoplace_nodes_generated_count 3")
	assert.Contains(t, body, "slic_autoplace_nodes_generated_sum 55")
}

func TestHandlerExposesInstruments(t *testing.T) {
	m := New()
	m.ArmorDistributed(336)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	m.Instrument("teapot", inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "slic_armor_distributed_points_count 1"))
	assert.True(t, strings.Contains(body, `slic_http_requests_total{code="418",route="teapot"} 1`))
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.SearchFinished(OutcomeDirect, 0, 0)
	r.ArmorDistributed(0)
}
