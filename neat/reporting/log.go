package reporting

import (
	"log/slog"

	"github.com/baldhumanity/rneat/neat"
)

// LogReporter logs a summary line per generation and a warning whenever the
// number of species collapses to one.
type LogReporter struct {
	logger      *slog.Logger
	lastSpecies int
}

// NewLogReporter creates a reporter logging to logger, or slog.Default() when nil.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) EndGeneration(stats neat.GenerationStats) error {
	r.logger.Info("generation",
		slog.Int("gen", stats.Generation),
		slog.Float64("best", stats.BestFitness),
		slog.Float64("mean", stats.MeanFitness),
		slog.Int("species", stats.NumSpecies),
		slog.Duration("took", stats.Duration),
	)
	if stats.NumSpecies == 1 && r.lastSpecies > 1 {
		r.logger.Warn("population collapsed to a single species", slog.Int("gen", stats.Generation))
	}
	r.lastSpecies = stats.NumSpecies
	return nil
}
