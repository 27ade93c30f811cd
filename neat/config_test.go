package neat

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigINIOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "neat.ini", `
[NEAT]
population_size = 50
fitness_function = xor

[Genome]
activation_function = tanh
bias_mode = direct_node
weight_init_params = -2 2

[Speciation]
compatibility_threshold = 2.5
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Neat.PopulationSize)
	assert.Equal(t, 100, cfg.Neat.Generations)
	assert.Equal(t, "tanh", cfg.Genome.ActivationFunction)
	assert.Equal(t, BiasDirectNode, cfg.Genome.BiasMode)
	assert.Equal(t, []float64{-2, 2}, cfg.Genome.WeightInitParams)
	assert.Equal(t, -4.0, cfg.Genome.MinWeight)
	assert.Equal(t, 2.5, cfg.Speciation.CompatibilityThreshold)
	assert.Equal(t, 0.4, cfg.Speciation.C3)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "neat.yaml", `
neat:
  population_size: 30
genome:
  bias_mode: constant
  weight_init_type: gaussian
  weight_init_params: [0, 0.5]
stagnation:
  drop_off_age: 7
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Neat.PopulationSize)
	assert.Equal(t, BiasConstant, cfg.Genome.BiasMode)
	assert.Equal(t, "gaussian", cfg.Genome.WeightInitialization)
	assert.Equal(t, []float64{0, 0.5}, cfg.Genome.WeightInitParams)
	assert.Equal(t, 7, cfg.Stagnation.DropOffAge)
	assert.Equal(t, 20, cfg.Stagnation.PopulationStagnationLimit)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "bad.ini", `
[Genome]
activation_function = softsign
`)
	_, err := LoadConfig(path)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero population", func(c *Config) { c.Neat.PopulationSize = 0 }, true},
		{"unknown fitness", func(c *Config) { c.Neat.FitnessFunction = "cartpole" }, true},
		{"no fitness", func(c *Config) { c.Neat.FitnessFunction = "" }, false},
		{"no inputs", func(c *Config) { c.Genome.InputSize = 0 }, true},
		{"unknown activation", func(c *Config) { c.Genome.ActivationFunction = "softsign" }, true},
		{"unknown bias mode", func(c *Config) { c.Genome.BiasMode = "SOMETIMES" }, true},
		{"inverted weights", func(c *Config) { c.Genome.MinWeight, c.Genome.MaxWeight = 1, -1 }, true},
		{"unknown weight init", func(c *Config) { c.Genome.WeightInitialization = "xavier" }, true},
		{"inverted uniform init", func(c *Config) { c.Genome.WeightInitParams = []float64{1, -1} }, true},
		{"inverted perturb", func(c *Config) { c.Mutation.MinPerturb, c.Mutation.MaxPerturb = 1, -1 }, true},
		{"rate above one", func(c *Config) { c.Mutation.AddNodeMutationRate = 1.5 }, true},
		{"negative survival", func(c *Config) { c.Reproduction.SurvivalRate = -0.1 }, true},
		{"keep disabled sentinel", func(c *Config) { c.Reproduction.KeepDisabledOnCrossOverRate = -1 }, false},
		{"keep disabled negative", func(c *Config) { c.Reproduction.KeepDisabledOnCrossOverRate = -0.5 }, true},
		{"negative elites", func(c *Config) { c.Reproduction.NumOfElite = -1 }, true},
		{"negative coefficient", func(c *Config) { c.Speciation.C2 = -1 }, true},
		{"negative drop off", func(c *Config) { c.Stagnation.DropOffAge = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Neat.PopulationSize = 77
	cfg.Genome.BiasMode = BiasDisabled
	cfg.Reproduction.KeepDisabledOnCrossOverRate = -1

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNewScopeRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Genome.OutputSize = 0
	_, err := NewScope(cfg, nil)
	assert.True(t, errors.Is(err, ErrConfiguration))

	scope, err := NewScope(nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, scope.ID)
	assert.Equal(t, DefaultConfig(), scope.Config)
}
