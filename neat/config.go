package neat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Config stores the configuration parameters for the NEAT algorithm.
type Config struct {
	Neat         NeatConfig         `yaml:"neat"`
	Genome       GenomeConfig       `yaml:"genome"`
	Mutation     MutationConfig     `yaml:"mutation"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Speciation   SpeciationConfig   `yaml:"speciation"`
	Stagnation   StagnationConfig   `yaml:"stagnation"`
}

// NeatConfig holds run-level parameters.
type NeatConfig struct {
	PopulationSize  int     `ini:"population_size" yaml:"population_size"`
	Generations     int     `ini:"generations" yaml:"generations"`
	TargetFitness   float64 `ini:"target_fitness" yaml:"target_fitness"`
	FitnessFunction string  `ini:"fitness_function" yaml:"fitness_function"` // e.g. "XOR"; empty when the caller supplies its own
}

// BiasMode selects how a node's bias term is computed when it fires.
type BiasMode string

const (
	BiasWeightedNode BiasMode = "WEIGHTED_NODE" // weight of the bias connection * bias node output
	BiasDirectNode   BiasMode = "DIRECT_NODE"   // raw bias node output, if a bias connection exists
	BiasConstant     BiasMode = "CONSTANT"      // the configured bias value, no bias node
	BiasDisabled     BiasMode = "DISABLED"      // no bias term, no bias node
)

// UsesNode reports whether genomes carry a bias node in this mode.
func (m BiasMode) UsesNode() bool {
	return m == BiasWeightedNode || m == BiasDirectNode
}

// GenomeConfig holds parameters for the structure of genomes.
type GenomeConfig struct {
	InputSize                 int       `ini:"input_size" yaml:"input_size"`
	OutputSize                int       `ini:"output_size" yaml:"output_size"`
	ActivationFunction        string    `ini:"activation_function" yaml:"activation_function"`
	ActivationParams          []float64 `ini:"activation_params" delim:" " yaml:"activation_params,omitempty"`
	Bias                      float64   `ini:"bias" yaml:"bias"`
	BiasMode                  BiasMode  `ini:"bias_mode" yaml:"bias_mode"`
	ConnectBias               bool      `ini:"connect_bias" yaml:"connect_bias"`
	AllowRecurrentConnections bool      `ini:"allow_recurrent_connections" yaml:"allow_recurrent_connections"`
	RecurrentConnectionRate   float64   `ini:"recurrent_connection_rate" yaml:"recurrent_connection_rate"`
	MinWeight                 float64   `ini:"min_weight" yaml:"min_weight"`
	MaxWeight                 float64   `ini:"max_weight" yaml:"max_weight"`
	WeightInitialization      string    `ini:"weight_init_type" yaml:"weight_init_type"`
	WeightInitParams          []float64 `ini:"weight_init_params" delim:" " yaml:"weight_init_params"`
}

// MutationConfig holds per-genome mutation rates.
type MutationConfig struct {
	WeightMutationRate        float64 `ini:"weight_mutation_rate" yaml:"weight_mutation_rate"`
	AddConnectionMutationRate float64 `ini:"add_connection_mutation_rate" yaml:"add_connection_mutation_rate"`
	AddNodeMutationRate       float64 `ini:"add_node_mutation_rate" yaml:"add_node_mutation_rate"`
	ReinitializeWeightRate    float64 `ini:"reinitialize_weight_rate" yaml:"reinitialize_weight_rate"`
	MinPerturb                float64 `ini:"min_perturb" yaml:"min_perturb"`
	MaxPerturb                float64 `ini:"max_perturb" yaml:"max_perturb"`
}

// ReproductionConfig holds parameters related to selection and reproduction.
type ReproductionConfig struct {
	SurvivalRate           float64 `ini:"survival_rate" yaml:"survival_rate"`
	NumOfElite             int     `ini:"num_of_elite" yaml:"num_of_elite"`
	InterspeciesMatingRate float64 `ini:"interspecies_mating_rate" yaml:"interspecies_mating_rate"`
	MutateOnlyProb         float64 `ini:"mutate_only_prob" yaml:"mutate_only_prob"`
	MutationRate           float64 `ini:"mutation_rate" yaml:"mutation_rate"` // chance a crossover child is mutated
	// KeepDisabledOnCrossOverRate of -1 copies the enabled flag verbatim from the selected parent gene.
	KeepDisabledOnCrossOverRate float64 `ini:"keep_disabled_on_crossover_rate" yaml:"keep_disabled_on_crossover_rate"`
}

// SpeciationConfig holds the compatibility distance coefficients.
type SpeciationConfig struct {
	C1                     float64 `ini:"c1" yaml:"c1"` // excess
	C2                     float64 `ini:"c2" yaml:"c2"` // disjoint
	C3                     float64 `ini:"c3" yaml:"c3"` // mean weight difference
	CompatibilityThreshold float64 `ini:"compatibility_threshold" yaml:"compatibility_threshold"`
}

// StagnationConfig holds parameters related to population and species stagnation.
type StagnationConfig struct {
	PopulationStagnationLimit int `ini:"population_stagnation_limit" yaml:"population_stagnation_limit"`
	DropOffAge                int `ini:"drop_off_age" yaml:"drop_off_age"` // species stagnation limit
}

// DefaultConfig returns the stock configuration. Loaded files overlay it.
func DefaultConfig() *Config {
	return &Config{
		Neat: NeatConfig{
			PopulationSize:  150,
			Generations:     100,
			TargetFitness:   0.95,
			FitnessFunction: "XOR",
		},
		Genome: GenomeConfig{
			InputSize:                 2,
			OutputSize:                1,
			ActivationFunction:        "Sigmoid",
			Bias:                      1.0,
			BiasMode:                  BiasWeightedNode,
			ConnectBias:               true,
			AllowRecurrentConnections: true,
			RecurrentConnectionRate:   1.0,
			MinWeight:                 -4.0,
			MaxWeight:                 4.0,
			WeightInitialization:      "uniform",
			WeightInitParams:          []float64{-1, 1},
		},
		Mutation: MutationConfig{
			WeightMutationRate:        0.8,
			AddConnectionMutationRate: 0.05,
			AddNodeMutationRate:       0.03,
			ReinitializeWeightRate:    0.1,
			MinPerturb:                -0.5,
			MaxPerturb:                0.5,
		},
		Reproduction: ReproductionConfig{
			SurvivalRate:                0.2,
			NumOfElite:                  10,
			InterspeciesMatingRate:      0.001,
			MutateOnlyProb:              0.25,
			MutationRate:                1.0,
			KeepDisabledOnCrossOverRate: 0.75,
		},
		Speciation: SpeciationConfig{
			C1:                     1.0,
			C2:                     1.0,
			C3:                     0.4,
			CompatibilityThreshold: 3.0,
		},
		Stagnation: StagnationConfig{
			PopulationStagnationLimit: 20,
			DropOffAge:                15,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file, or from YAML
// when the path ends in .yaml or .yml. Keys missing from the file keep their
// DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", filePath, err)
		}
	default:
		if err := loadINI(filePath, config); err != nil {
			return nil, err
		}
	}

	config.normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadINI(filePath string, config *Config) error {
	cfg, err := ini.LoadSources(ini.LoadOptions{}, filePath)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	// Map sections to structs
	sections := []struct {
		name   string
		target any
	}{
		{"NEAT", &config.Neat},
		{"Genome", &config.Genome},
		{"Mutation", &config.Mutation},
		{"Reproduction", &config.Reproduction},
		{"Speciation", &config.Speciation},
		{"Stagnation", &config.Stagnation},
	}
	for _, s := range sections {
		if err := cfg.Section(s.name).MapTo(s.target); err != nil {
			return fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}
	return nil
}

// normalize trims selector strings and upper-cases the bias mode.
func (c *Config) normalize() {
	c.Neat.FitnessFunction = strings.TrimSpace(c.Neat.FitnessFunction)
	c.Genome.ActivationFunction = strings.TrimSpace(c.Genome.ActivationFunction)
	c.Genome.WeightInitialization = strings.TrimSpace(c.Genome.WeightInitialization)
	c.Genome.BiasMode = BiasMode(strings.ToUpper(strings.TrimSpace(string(c.Genome.BiasMode))))
}

// Validate checks selectors and value ranges. Every failure wraps ErrConfiguration.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
	}

	if c.Neat.PopulationSize <= 0 {
		return fail("population_size must be positive")
	}
	if c.Neat.Generations < 0 {
		return fail("generations cannot be negative")
	}
	if c.Neat.FitnessFunction != "" {
		if _, err := NewFitnessFunction(c.Neat.FitnessFunction); err != nil {
			return err
		}
	}

	g := &c.Genome
	if g.InputSize <= 0 {
		return fail("input_size must be positive")
	}
	if g.OutputSize <= 0 {
		return fail("output_size must be positive")
	}
	if _, err := NewActivation(g.ActivationFunction, g.ActivationParams...); err != nil {
		return err
	}
	switch g.BiasMode {
	case BiasWeightedNode, BiasDirectNode, BiasConstant, BiasDisabled:
	default:
		return fail("invalid bias_mode '%s', must be one of WEIGHTED_NODE, DIRECT_NODE, CONSTANT, DISABLED", g.BiasMode)
	}
	if g.MaxWeight < g.MinWeight {
		return fail("max_weight cannot be less than min_weight")
	}
	if _, err := NewWeightSampler(g.WeightInitialization, g.WeightInitParams, g, nil); err != nil {
		return err
	}

	m := &c.Mutation
	if m.MaxPerturb < m.MinPerturb {
		return fail("max_perturb cannot be less than min_perturb")
	}

	rates := []struct {
		name  string
		value float64
	}{
		{"recurrent_connection_rate", g.RecurrentConnectionRate},
		{"weight_mutation_rate", m.WeightMutationRate},
		{"add_connection_mutation_rate", m.AddConnectionMutationRate},
		{"add_node_mutation_rate", m.AddNodeMutationRate},
		{"reinitialize_weight_rate", m.ReinitializeWeightRate},
		{"survival_rate", c.Reproduction.SurvivalRate},
		{"interspecies_mating_rate", c.Reproduction.InterspeciesMatingRate},
		{"mutate_only_prob", c.Reproduction.MutateOnlyProb},
		{"mutation_rate", c.Reproduction.MutationRate},
	}
	for _, r := range rates {
		if r.value < 0 || r.value > 1 {
			return fail("%s must be between 0 and 1", r.name)
		}
	}
	keep := c.Reproduction.KeepDisabledOnCrossOverRate
	if keep != -1 && (keep < 0 || keep > 1) {
		return fail("keep_disabled_on_crossover_rate must be between 0 and 1, or -1")
	}
	if c.Reproduction.NumOfElite < 0 {
		return fail("num_of_elite cannot be negative")
	}

	s := &c.Speciation
	if s.C1 < 0 || s.C2 < 0 || s.C3 < 0 {
		return fail("compatibility coefficients cannot be negative")
	}
	if s.CompatibilityThreshold < 0 {
		return fail("compatibility_threshold cannot be negative")
	}

	if c.Stagnation.PopulationStagnationLimit < 0 {
		return fail("population_stagnation_limit cannot be negative")
	}
	if c.Stagnation.DropOffAge < 0 {
		return fail("drop_off_age cannot be negative")
	}
	return nil
}

// WriteYAML saves the resolved configuration as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config '%s': %w", path, err)
	}
	return nil
}
