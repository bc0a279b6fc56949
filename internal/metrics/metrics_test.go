package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	tests := []struct {
		name    string
		observe func()
		read    func() float64
	}{
		{
			name:    "query ok",
			observe: func() { ObserveQuery(1, nil) },
			read:    func() float64 { return testutil.ToFloat64(queriesTotal.WithLabelValues("1", "ok")) },
		},
		{
			name:    "query error",
			observe: func() { ObserveQuery(2, errors.New("timeout")) },
			read:    func() float64 { return testutil.ToFloat64(queriesTotal.WithLabelValues("2", "error")) },
		},
		{
			name:    "rejection",
			observe: func() { ObserveRejection("series_mismatch") },
			read:    func() float64 { return testutil.ToFloat64(rejectionsTotal.WithLabelValues("series_mismatch")) },
		},
		{
			name:    "alert",
			observe: func() { ObserveAlert("BUY") },
			read:    func() float64 { return testutil.ToFloat64(alertsTotal.WithLabelValues("BUY")) },
		},
		{
			name:    "candidate",
			observe: func() { ObserveCandidate("WATCH") },
			read:    func() float64 { return testutil.ToFloat64(candidatesTotal.WithLabelValues("WATCH")) },
		},
		{
			name:    "run",
			observe: func() { ObserveRun("partial", 3*time.Second) },
			read:    func() float64 { return testutil.ToFloat64(runsTotal.WithLabelValues("partial")) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.read()
			tt.observe()
			if diff := cmp.Diff(before+1, tt.read()); diff != "" {
				t.Errorf("counter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	ObserveRejection("model_mismatch")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `hunt_rejections_total{reason="model_mismatch"}`) {
		t.Errorf("metrics output missing rejection counter:\n%s", body)
	}
}
