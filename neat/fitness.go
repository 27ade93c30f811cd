package neat

import (
	"fmt"
	"strings"
)

// FitnessFunction scores a fully built genome. Implementations may call
// Propagate and ResetState on the genome as often as they need.
type FitnessFunction interface {
	Score(g *Genome) (float64, error)
}

// FitnessFunc adapts a plain function to the FitnessFunction interface.
type FitnessFunc func(g *Genome) (float64, error)

// Score calls f(g).
func (f FitnessFunc) Score(g *Genome) (float64, error) { return f(g) }

var fitnessFunctions = map[string]func() FitnessFunction{
	"xor": func() FitnessFunction { return XOR{} },
}

// NewFitnessFunction returns the registered fitness function for name (case-insensitive).
func NewFitnessFunction(name string) (FitnessFunction, error) {
	factory, ok := fitnessFunctions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown fitness function %q", ErrConfiguration, name)
	}
	return factory(), nil
}

// XOR scores a two-input, one-output genome on the XOR truth table as
// 1 / (1 + sum of squared errors).
type XOR struct{}

var xorCases = []struct {
	in   []float64
	want float64
}{
	{[]float64{0, 0}, 0},
	{[]float64{0, 1}, 1},
	{[]float64{1, 0}, 1},
	{[]float64{1, 1}, 0},
}

func (XOR) Score(g *Genome) (float64, error) {
	g.ResetState()
	sse := 0.0
	for _, tc := range xorCases {
		out, err := g.Propagate(tc.in)
		if err != nil {
			return 0, fmt.Errorf("xor fitness: %w", err)
		}
		if len(out) == 0 {
			return 0, fmt.Errorf("%w: xor fitness needs at least one output", ErrInvalidOperation)
		}
		d := out[0] - tc.want
		sse += d * d
	}
	return 1.0 / (1.0 + sse), nil
}
