// Package pipeline runs the label, train, predict and query jobs behind the
// synergy command line.
package pipeline

import (
	"github.com/ramonehamilton/mtga-synergy/internal/metrics"
	"github.com/ramonehamilton/mtga-synergy/internal/storage/repository"
)

type jobOptions struct {
	metrics  *metrics.Pipeline
	labels   repository.LabelRepository
	training repository.TrainingRunRepository
}

// JobOption configures a LabelJob or TrainJob.
type JobOption func(*jobOptions)

// WithMetrics records job metrics on m.
func WithMetrics(m *metrics.Pipeline) JobOption {
	return func(o *jobOptions) { o.metrics = m }
}

// WithStore records runs in the given repositories. Either may be nil.
func WithStore(labels repository.LabelRepository, training repository.TrainingRunRepository) JobOption {
	return func(o *jobOptions) {
		o.labels = labels
		o.training = training
	}
}

func newJobOptions(opts []JobOption) jobOptions {
	var o jobOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewPipeline()
	}
	return o
}
