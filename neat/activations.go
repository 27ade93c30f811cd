package neat

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Activation maps a node's summed input to its output. Implementations are
// pure: any parameters are fixed when the activation is constructed.
type Activation interface {
	Apply(x float64) float64
}

// ActivationFunc adapts a plain function to the Activation interface.
type ActivationFunc func(x float64) float64

// Apply calls f(x).
func (f ActivationFunc) Apply(x float64) float64 { return f(x) }

// activationFactory builds an activation from optional construction parameters.
type activationFactory func(params []float64) Activation

// activationFunctions maps lower-cased activation names to their constructors.
// This allows configuration to specify activations by name.
var activationFunctions = map[string]activationFactory{
	"sigmoid": func([]float64) Activation { return ActivationFunc(Sigmoid) },
	"neatsigmoid": func(p []float64) Activation {
		return NEATSigmoid{Steepness: param(p, 0, 4.9)}
	},
	"tanh": func([]float64) Activation { return ActivationFunc(math.Tanh) },
	"relu": func([]float64) Activation { return ActivationFunc(ReLU) },
	"leakyrelu": func(p []float64) Activation {
		return LeakyReLU{Alpha: param(p, 0, 0.01)}
	},
	"gaussian": func(p []float64) Activation {
		return Gaussian{Center: param(p, 0, 0), Width: param(p, 1, 1)}
	},
	"selu":     func([]float64) Activation { return ActivationFunc(SELU) },
	"identity": func([]float64) Activation { return ActivationFunc(Identity) },
	"clamped":  func([]float64) Activation { return ActivationFunc(Clamped) },
}

// NewActivation retrieves an activation function by name (case-insensitive).
func NewActivation(name string, params ...float64) (Activation, error) {
	factory, ok := activationFunctions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown activation function %q", ErrConfiguration, name)
	}
	return factory(params), nil
}

// ActivationNames lists the registered activation names.
func ActivationNames() []string {
	names := make([]string, 0, len(activationFunctions))
	for name := range activationFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func param(params []float64, i int, def float64) float64 {
	if i < len(params) {
		return params[i]
	}
	return def
}

// --- Activation Function Implementations ---

// Sigmoid is the logistic function 1 / (1 + e^-x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// NEATSigmoid is the steepened sigmoid from the original NEAT paper.
type NEATSigmoid struct {
	Steepness float64
}

func (s NEATSigmoid) Apply(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-s.Steepness*x))
}

// ReLU (Rectified Linear Unit) activation function.
func ReLU(x float64) float64 {
	return math.Max(0, x)
}

// LeakyReLU lets a small slope through for negative inputs.
type LeakyReLU struct {
	Alpha float64
}

func (l LeakyReLU) Apply(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Gaussian is exp(-((x-center)/width)^2).
type Gaussian struct {
	Center float64
	Width  float64
}

func (g Gaussian) Apply(x float64) float64 {
	d := (x - g.Center) / g.Width
	return math.Exp(-d * d)
}

const (
	seluAlpha = 1.6732632423543772848170429916717
	seluScale = 1.0507009873554804934193349852946
)

// SELU is the scaled exponential linear unit.
func SELU(x float64) float64 {
	if x > 0 {
		return seluScale * x
	}
	return seluScale * seluAlpha * (math.Exp(x) - 1)
}

// Identity activation function (linear).
func Identity(x float64) float64 {
	return x
}

// Clamped activation function (clamps output between -1 and 1).
func Clamped(x float64) float64 {
	return clamp(x, -1.0, 1.0)
}
