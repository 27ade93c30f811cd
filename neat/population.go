package neat

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// GenerationStats summarizes one evaluated generation.
type GenerationStats struct {
	Generation      int
	BestFitness     float64
	MeanFitness     float64
	StdevFitness    float64
	BestGenomeID    int
	NumSpecies      int
	MeanNodes       float64
	MeanConnections float64
	StagnationAge   int
	Duration        time.Duration
}

// LogValue renders the stats as a structured log group.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Float64("best", s.BestFitness),
		slog.Float64("mean", s.MeanFitness),
		slog.Float64("stdev", s.StdevFitness),
		slog.Int("species", s.NumSpecies),
		slog.Float64("nodes", s.MeanNodes),
		slog.Float64("connections", s.MeanConnections),
		slog.Int("stagnation", s.StagnationAge),
	)
}

// Reporter receives the stats of every evaluated generation.
type Reporter interface {
	EndGeneration(stats GenerationStats) error
}

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Scope        *Scope
	Config       *Config
	Genomes      []*Genome // Current generation
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Generation   int
	BestGenome   *Genome // Best genome found so far
	Reporters    []Reporter

	speciated bool
}

// NewPopulation creates a population of Config.Neat.PopulationSize copies of
// the minimal genome with independently sampled weights.
func NewPopulation(scope *Scope) (*Population, error) {
	reproduction := NewReproduction(scope)
	genomes, err := reproduction.CreateNewPopulation(scope.Config.Neat.PopulationSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial population: %w", err)
	}

	return &Population{
		Scope:        scope,
		Config:       scope.Config,
		Genomes:      genomes,
		SpeciesSet:   NewSpeciesSet(scope),
		Reproduction: reproduction,
		Stagnation:   NewStagnation(&scope.Config.Stagnation, scope.Logger),
	}, nil
}

// AddReporter registers a generation reporter.
func (p *Population) AddReporter(r Reporter) {
	p.Reporters = append(p.Reporters, r)
}

// Evaluate scores every genome with ff and tracks the best genome so far.
func (p *Population) Evaluate(ff FitnessFunction) error {
	for _, g := range p.Genomes {
		fitness, err := ff.Score(g)
		if err != nil {
			return fmt.Errorf("fitness evaluation of genome %d failed in generation %d: %w", g.ID, p.Generation, err)
		}
		g.Fitness = fitness
	}
	if best := fittest(p.Genomes); best != nil && (p.BestGenome == nil || best.Fitness > p.BestGenome.Fitness) {
		p.BestGenome = best
		p.Scope.Logger.Debug("new best genome", slog.Int("genome", best.ID), slog.Float64("fitness", best.Fitness))
	}
	return nil
}

// Speciate partitions the current genomes into species.
func (p *Population) Speciate() {
	p.SpeciesSet.Speciate(p.Genomes, p.Generation)
	p.speciated = true
}

// Evolve replaces the current, evaluated generation with the next one:
// speciate, save elites, drop stagnant species, cull each species, allocate
// offspring, reproduce, and put the elites back.
func (p *Population) Evolve() error {
	if len(p.Genomes) == 0 {
		return errors.New("cannot evolve an empty population")
	}
	if !p.speciated {
		p.Speciate()
	}

	popSize := p.Config.Neat.PopulationSize
	p.Scope.Innovations.Reset()

	elites := p.Reproduction.SaveElites(p.Genomes, p.SpeciesSet.Species, popSize)
	p.Stagnation.Update(p.SpeciesSet, fittest(p.Genomes).Fitness)

	for _, s := range p.SpeciesSet.Species {
		s.RemoveBadGenomes(p.Config.Reproduction.SurvivalRate)
	}

	p.Reproduction.CalculateOffspring(p.SpeciesSet.Species, popSize-len(elites))
	offspring, err := p.Reproduction.GenerateOffspring(p.SpeciesSet.Species)
	if err != nil {
		return fmt.Errorf("reproduction failed in generation %d: %w", p.Generation, err)
	}

	next := append(offspring, elites...)
	if len(next) != popSize {
		return fmt.Errorf("generation %d produced %d genomes, want %d", p.Generation, len(next), popSize)
	}
	p.Genomes = next
	p.Generation++
	p.speciated = false
	return nil
}

// Stats computes the statistics of the current, evaluated generation.
func (p *Population) Stats() GenerationStats {
	fitness := make([]float64, len(p.Genomes))
	nodes := make([]float64, len(p.Genomes))
	conns := make([]float64, len(p.Genomes))
	for i, g := range p.Genomes {
		fitness[i] = g.Fitness
		nodes[i] = float64(len(g.Nodes))
		conns[i] = float64(len(g.Connections))
	}

	stats := GenerationStats{
		Generation:    p.Generation,
		NumSpecies:    len(p.SpeciesSet.Species),
		StagnationAge: p.Stagnation.Age(),
	}
	stats.MeanFitness, stats.StdevFitness = meanStdDev(fitness)
	stats.MeanNodes, _ = meanStdDev(nodes)
	stats.MeanConnections, _ = meanStdDev(conns)
	if best := fittest(p.Genomes); best != nil {
		stats.BestFitness = best.Fitness
		stats.BestGenomeID = best.ID
	}
	return stats
}

// RunGeneration evaluates the current generation, reports it and, unless the
// target fitness has been reached, evolves the next one. It returns the
// winning genome once the target is reached, nil otherwise.
func (p *Population) RunGeneration(ff FitnessFunction) (*Genome, error) {
	start := time.Now()
	if err := p.Evaluate(ff); err != nil {
		return nil, err
	}
	p.Speciate()

	stats := p.Stats()
	stats.Duration = time.Since(start)
	p.Scope.Logger.Info("generation evaluated", slog.Any("stats", stats))
	for _, r := range p.Reporters {
		if err := r.EndGeneration(stats); err != nil {
			return nil, fmt.Errorf("reporting generation %d: %w", p.Generation, err)
		}
	}

	if p.BestGenome != nil && p.BestGenome.Fitness >= p.Config.Neat.TargetFitness {
		return p.BestGenome, nil
	}
	if err := p.Evolve(); err != nil {
		return nil, err
	}
	return nil, nil
}

// Run calls RunGeneration until the target fitness is reached or the
// configured number of generations has been evaluated. It returns the best
// genome found and whether it reached the target.
func (p *Population) Run(ff FitnessFunction) (*Genome, bool, error) {
	for i := 0; i < p.Config.Neat.Generations; i++ {
		winner, err := p.RunGeneration(ff)
		if err != nil {
			return p.BestGenome, false, err
		}
		if winner != nil {
			p.Scope.Logger.Info("target fitness reached",
				slog.Int("generation", p.Generation),
				slog.Int("genome", winner.ID),
				slog.Float64("fitness", winner.Fitness),
			)
			return winner, true, nil
		}
	}
	return p.BestGenome, false, nil
}
