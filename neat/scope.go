package neat

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Scope is the shared context of one population: its configuration, the
// resolved activation and weight strategies, the random source and the
// innovation registry. Every genome holds a reference to the scope it was
// created in; genomes from different scopes must not be crossed.
type Scope struct {
	ID          string
	Config      *Config
	Activation  Activation
	Weights     WeightSampler
	Rand        *rand.Rand
	Innovations *InnovationRegistry
	Logger      *slog.Logger

	genomeIDs atomic.Int64
}

// NewScope validates cfg and resolves its selectors. A nil rng is replaced by
// one seeded from the clock.
func NewScope(cfg *Config, rng *rand.Rand) (*Scope, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	act, err := NewActivation(cfg.Genome.ActivationFunction, cfg.Genome.ActivationParams...)
	if err != nil {
		return nil, err
	}
	weights, err := NewWeightSampler(cfg.Genome.WeightInitialization, cfg.Genome.WeightInitParams, &cfg.Genome, rng)
	if err != nil {
		return nil, err
	}

	return &Scope{
		ID:          uuid.NewString(),
		Config:      cfg,
		Activation:  act,
		Weights:     weights,
		Rand:        rng,
		Innovations: NewInnovationRegistry(),
		Logger:      slog.Default(),
	}, nil
}

// nextGenomeID hands out genome ids, starting at 0.
func (s *Scope) nextGenomeID() int {
	return int(s.genomeIDs.Add(1) - 1)
}

func (s *Scope) String() string {
	return fmt.Sprintf("Scope(%s)", s.ID)
}
