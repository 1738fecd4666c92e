// Package cli implements the synergy command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtga-synergy/internal/config"
	"github.com/ramonehamilton/mtga-synergy/internal/logging"
	"github.com/ramonehamilton/mtga-synergy/internal/metrics"
	"github.com/ramonehamilton/mtga-synergy/internal/pipeline"
)

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg     *config.Config
	metrics *metrics.Pipeline
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "synergy",
		Short: "Card synergy labels and embeddings from 17Lands game data",
		Long: `synergy - pairwise card synergy from match outcomes
  - labels: count games and write smoothed synergy labels
  - train:  fit a bilinear embedding model to the labels
  - predict: score a card pair with a trained model
  - runs:   list recorded training runs`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.mtga-synergy/config.toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		a.labelsCmd(),
		a.trainCmd(),
		a.predictCmd(),
		a.downloadCmd(),
		a.topCmd(),
		a.runsCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration and initializes logging and metrics.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	a.cfg = cfg
	a.metrics = metrics.NewPipeline()
	return nil
}

// jobOptions returns the pipeline options for a job. The returned close
// function releases the store, if one was opened.
func (a *app) jobOptions(store bool) ([]pipeline.JobOption, func(), error) {
	opts := []pipeline.JobOption{pipeline.WithMetrics(a.metrics)}
	if !store && !a.cfg.Storage.Enabled {
		return opts, func() {}, nil
	}

	s, err := pipeline.OpenStore(a.cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	return append(opts, s.JobOption()), func() { _ = s.Close() }, nil
}

// flushMetrics writes the metrics textfile when one is configured.
func (a *app) flushMetrics() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		logging.Warn().Err(err).Msg("metrics not written")
	}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
