package neat

import (
	"fmt"
	"math/rand"
	"strings"
)

// WeightSampler produces connection weights for new connections and for
// weight reinitialization.
type WeightSampler interface {
	Sample() float64
	SampleMany(n int) []float64
}

// UniformSampler draws weights uniformly from [Min, Max).
type UniformSampler struct {
	Min, Max float64
	Rand     *rand.Rand
}

func (s *UniformSampler) Sample() float64 {
	return s.Min + (s.Max-s.Min)*s.Rand.Float64()
}

func (s *UniformSampler) SampleMany(n int) []float64 {
	return sampleMany(s, n)
}

// GaussianSampler draws weights from N(Mean, Stdev) clamped to [Min, Max].
type GaussianSampler struct {
	Mean, Stdev float64
	Min, Max    float64
	Rand        *rand.Rand
}

func (s *GaussianSampler) Sample() float64 {
	return clamp(s.Rand.NormFloat64()*s.Stdev+s.Mean, s.Min, s.Max)
}

func (s *GaussianSampler) SampleMany(n int) []float64 {
	return sampleMany(s, n)
}

func sampleMany(s WeightSampler, n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = s.Sample()
	}
	return weights
}

// NewWeightSampler builds the weight initialization strategy named by kind.
// "uniform" takes (min, max) and "gaussian" takes (mean, stdev); gaussian
// samples are clamped to the genome weight bounds.
func NewWeightSampler(kind string, params []float64, gc *GenomeConfig, rng *rand.Rand) (WeightSampler, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "uniform", "random", "":
		s := &UniformSampler{Min: param(params, 0, -1), Max: param(params, 1, 1), Rand: rng}
		if s.Max < s.Min {
			return nil, fmt.Errorf("%w: uniform weight init max %.3f < min %.3f", ErrConfiguration, s.Max, s.Min)
		}
		return s, nil
	case "gaussian", "normal":
		s := &GaussianSampler{
			Mean:  param(params, 0, 0),
			Stdev: param(params, 1, 1),
			Min:   gc.MinWeight,
			Max:   gc.MaxWeight,
			Rand:  rng,
		}
		if s.Stdev < 0 {
			return nil, fmt.Errorf("%w: gaussian weight init stdev cannot be negative", ErrConfiguration)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown weight initialization %q", ErrConfiguration, kind)
	}
}
