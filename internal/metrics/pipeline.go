// Package metrics exposes label and training job metrics through a
// Prometheus registry that is written to a node_exporter textfile at the end
// of each job.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "synergy"

// Decline reasons used as the "reason" label of PairsDeclined.
const (
	ReasonInvalidStats   = "invalid_stats"
	ReasonNegativeBucket = "negative_bucket"
	ReasonBucketMismatch = "bucket_mismatch"
)

// Pipeline holds the metrics of one process.
type Pipeline struct {
	registry *prometheus.Registry

	GamesProcessed prometheus.Counter
	RecordsSkipped prometheus.Counter
	GamesTruncated prometheus.Counter
	LabelsWritten  prometheus.Counter
	PairsDeclined  *prometheus.CounterVec
	CardPairs      prometheus.Gauge

	TrainingSamples prometheus.Gauge
	TrainingMSE     prometheus.Gauge
	ModelCards      prometheus.Gauge
	EpochDuration   prometheus.Histogram

	JobDuration *prometheus.GaugeVec
	JobLastRun  *prometheus.GaugeVec

	epochs *Histogram
}

// NewPipeline creates the metrics on a fresh registry.
func NewPipeline() *Pipeline {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Pipeline{
		registry: reg,
		GamesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_processed_total",
			Help:      "Games counted by the aggregator",
		}),
		RecordsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Malformed game records skipped",
		}),
		GamesTruncated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_truncated_total",
			Help:      "Games with more distinct cards than the per-game limit",
		}),
		LabelsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "labels_written_total",
			Help:      "Synergy labels written",
		}),
		PairsDeclined: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_declined_total",
			Help:      "Eligible pairs declined by a statistical check",
		}, []string{"reason"}),
		CardPairs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "card_pairs",
			Help:      "Distinct card pairs seen in the last label job",
		}),
		TrainingSamples: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_samples",
			Help:      "Samples in the last training job",
		}),
		TrainingMSE: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_mse",
			Help:      "Weighted MSE of the latest finished epoch",
		}),
		ModelCards: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_cards",
			Help:      "Cards in the trained model",
		}),
		EpochDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "epoch_duration_seconds",
			Help:      "Wall time of one training epoch",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		JobDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of the last job",
		}, []string{"job"}),
		JobLastRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_last_run_timestamp_seconds",
			Help:      "Unix time the last job finished",
		}, []string{"job"}),
		epochs: NewHistogram(0),
	}
}

// Registry returns the underlying registry.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveEpoch records one finished training epoch.
func (p *Pipeline) ObserveEpoch(d time.Duration, mse float64) {
	p.EpochDuration.Observe(d.Seconds())
	p.TrainingMSE.Set(mse)
	p.epochs.Record(d)
}

// EpochSummary describes the epoch durations seen so far, in milliseconds.
type EpochSummary struct {
	Count int
	Mean  float64
	P50   float64
	P95   float64
	Max   float64
}

// Epochs summarizes the recorded epoch durations.
func (p *Pipeline) Epochs() EpochSummary {
	return EpochSummary{
		Count: p.epochs.Count(),
		Mean:  p.epochs.Mean(),
		P50:   p.epochs.Percentile(50),
		P95:   p.epochs.Percentile(95),
		Max:   p.epochs.Max(),
	}
}

// JobDone records the duration and completion time of a job.
func (p *Pipeline) JobDone(job string, d time.Duration) {
	p.JobDuration.WithLabelValues(job).Set(d.Seconds())
	p.JobLastRun.WithLabelValues(job).SetToCurrentTime()
}

// WriteTextfile writes the registry in text exposition format. The file is
// replaced atomically, as the node_exporter textfile collector expects.
func (p *Pipeline) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
