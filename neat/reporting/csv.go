package reporting

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/baldhumanity/rneat/neat"
)

// GenerationRecord is one CSV row of generation statistics.
type GenerationRecord struct {
	Generation      int     `csv:"generation"`
	BestFitness     float64 `csv:"best_fitness"`
	MeanFitness     float64 `csv:"mean_fitness"`
	StdevFitness    float64 `csv:"stdev_fitness"`
	BestGenomeID    int     `csv:"best_genome"`
	NumSpecies      int     `csv:"species"`
	MeanNodes       float64 `csv:"mean_nodes"`
	MeanConnections float64 `csv:"mean_connections"`
	StagnationAge   int     `csv:"stagnation_age"`
	DurationMS      float64 `csv:"duration_ms"`
}

// NewGenerationRecord converts population stats into a CSV row.
func NewGenerationRecord(s neat.GenerationStats) GenerationRecord {
	return GenerationRecord{
		Generation:      s.Generation,
		BestFitness:     s.BestFitness,
		MeanFitness:     s.MeanFitness,
		StdevFitness:    s.StdevFitness,
		BestGenomeID:    s.BestGenomeID,
		NumSpecies:      s.NumSpecies,
		MeanNodes:       s.MeanNodes,
		MeanConnections: s.MeanConnections,
		StagnationAge:   s.StagnationAge,
		DurationMS:      float64(s.Duration.Microseconds()) / 1000,
	}
}

// CSVReporter appends one row per generation to w. The header is written
// with the first row.
type CSVReporter struct {
	w             io.Writer
	headerWritten bool
}

// NewCSVReporter creates a reporter writing to w.
func NewCSVReporter(w io.Writer) *CSVReporter {
	return &CSVReporter{w: w}
}

// EndGeneration writes the generation's row.
func (r *CSVReporter) EndGeneration(stats neat.GenerationStats) error {
	records := []GenerationRecord{NewGenerationRecord(stats)}

	if !r.headerWritten {
		if err := gocsv.Marshal(records, r.w); err != nil {
			return fmt.Errorf("writing generation stats: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.w); err != nil {
		return fmt.Errorf("writing generation stats: %w", err)
	}
	return nil
}
