package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_Counters(t *testing.T) {
	p := NewPipeline()

	p.GamesProcessed.Add(1000)
	p.RecordsSkipped.Inc()
	p.PairsDeclined.WithLabelValues(ReasonNegativeBucket).Add(2)
	p.LabelsWritten.Add(10)

	assert.Equal(t, 1000.0, testutil.ToFloat64(p.GamesProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.RecordsSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.PairsDeclined.WithLabelValues(ReasonNegativeBucket)))
	assert.Equal(t, 10.0, testutil.ToFloat64(p.LabelsWritten))
}

func TestPipeline_ObserveEpoch(t *testing.T) {
	p := NewPipeline()
	p.ObserveEpoch(10*time.Millisecond, 0.5)
	p.ObserveEpoch(30*time.Millisecond, 0.25)

	assert.Equal(t, 0.25, testutil.ToFloat64(p.TrainingMSE))

	s := p.Epochs()
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 20.0, s.Mean, 1e-9)
	assert.InDelta(t, 30.0, s.Max, 1e-9)
}

func TestPipeline_WriteTextfile(t *testing.T) {
	p := NewPipeline()
	p.GamesProcessed.Add(3)
	p.JobDone("labels", 2*time.Second)

	path := filepath.Join(t.TempDir(), "synergy.prom")
	require.NoError(t, p.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "synergy_games_processed_total 3")
	assert.Contains(t, out, `synergy_job_duration_seconds{job="labels"} 2`)
	assert.Contains(t, out, "synergy_job_last_run_timestamp_seconds")
}
