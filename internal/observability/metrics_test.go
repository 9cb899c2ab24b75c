package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.AnalysesTotal.WithLabelValues("success").Inc()
	m.FitsTotal.WithLabelValues("gumbel", "success").Add(3)
	m.BootstrapAttempts.Add(210)
	m.AnalysisDuration.Observe(0.2)

	path := filepath.Join(t.TempDir(), "floodfreq.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `floodfreq_analyses_total{outcome="success"} 1`)
	assert.Contains(t, text, `floodfreq_fits_total{family="gumbel",outcome="success"} 3`)
	assert.Contains(t, text, "floodfreq_bootstrap_attempts_total 210")
	assert.Contains(t, text, "floodfreq_analysis_duration_seconds_count 1")
}

func TestNewMetricsForTestingIsolated(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()
	a.BootstrapDegraded.Inc()

	path := filepath.Join(t.TempDir(), "b.prom")
	require.NoError(t, b.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "floodfreq_bootstrap_degraded_total 0")
}

func TestWriteTextfileBadPath(t *testing.T) {
	m := NewMetricsForTesting()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
