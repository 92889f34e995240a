package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStage("detecting", OutcomeSuccess, time.Second)
	m.RunFinished(OutcomeSuccess)
	m.StaleCompletion()
	m.Export("download", OutcomeSuccess)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RunFinished(OutcomeSuccess)
	m.RunFinished(OutcomeSuccess)
	m.RunFinished(OutcomeFailure)
	m.StaleCompletion()
	m.Export("clipboard", OutcomeSuccess)

	if got := testutil.ToFloat64(m.runs.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("runs{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues(OutcomeFailure)); got != 1 {
		t.Errorf("runs{failure} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.stale); got != 1 {
		t.Errorf("stale = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.exports.WithLabelValues("clipboard", OutcomeSuccess)); got != 1 {
		t.Errorf("exports{clipboard,success} = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveStage("overlaying", OutcomeSuccess, 250*time.Millisecond)

	path := filepath.Join(t.TempDir(), "tryon.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "tryon_stage_duration_seconds") {
		t.Errorf("textfile missing stage histogram:\n%s", data)
	}
}
