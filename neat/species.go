package neat

import (
	"log/slog"
	"sort"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	Key            int       // Unique identifier for the species.
	Created        int       // Generation number when the species was created.
	Representative *Genome   // Genome new members are compared against.
	Members        []*Genome // Member genomes; owned by the population.
	Stagnated      bool      // Set once the species has gone too long without improving.
	OffspringCount int       // Offspring allotted in the current generation.

	fitness fitnessTracker
}

// NewSpecies creates a new, empty species.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:     key,
		Created: generation,
	}
}

// AddGenome appends g to the members. The first member becomes the representative.
func (s *Species) AddGenome(g *Genome) {
	if len(s.Members) == 0 {
		s.Representative = g
	}
	s.Members = append(s.Members, g)
}

// BestFitness returns the best member fitness the species has reached so far.
func (s *Species) BestFitness() float64 { return s.fitness.Best }

// GenerationsSinceImprovement returns the species' stagnation age.
func (s *Species) GenerationsSinceImprovement() int { return s.fitness.Age }

// BestGenome returns the fittest member, or nil for an empty species.
func (s *Species) BestGenome() *Genome {
	return fittest(s.Members)
}

// SetAdjustedFitness divides each member's fitness by the species size.
func (s *Species) SetAdjustedFitness() {
	for _, g := range s.Members {
		g.AdjustedFitness = g.Fitness / float64(len(s.Members))
	}
}

// TotalAdjustedFitness sums the members' adjusted fitness.
func (s *Species) TotalAdjustedFitness() float64 {
	total := 0.0
	for _, g := range s.Members {
		total += g.AdjustedFitness
	}
	return total
}

// RemoveBadGenomes sorts the members by fitness and keeps the best
// survivalRate fraction, at least one.
func (s *Species) RemoveBadGenomes(survivalRate float64) {
	sortByFitness(s.Members)
	survivors := max(1, int(float64(len(s.Members))*survivalRate))
	if len(s.Members) > survivors {
		clear(s.Members[survivors:])
		s.Members = s.Members[:survivors]
	}
}

// UpdateStagnation records the current best member fitness and marks the
// species stagnated once it has gone more than dropOffAge generations
// without improving.
func (s *Species) UpdateStagnation(dropOffAge int) {
	best := s.BestGenome()
	if best == nil {
		return
	}
	if s.fitness.Update(best.Fitness) > dropOffAge {
		s.Stagnated = true
	}
}

// GetFitnesses returns a slice containing the fitness values of all members.
func (s *Species) GetFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		fitnesses = append(fitnesses, g.Fitness)
	}
	return fitnesses
}

// --------------------------- GenomeDistanceCache ---------------------------

// GenomeDistanceCache keeps the genetic encoding of each genome seen during
// one speciation pass so it is built only once.
type GenomeDistanceCache struct {
	encodings map[*Genome]*GeneticEncoding
	Hits      int
	Misses    int
}

// NewGenomeDistanceCache creates a new distance cache.
func NewGenomeDistanceCache() *GenomeDistanceCache {
	return &GenomeDistanceCache{encodings: make(map[*Genome]*GeneticEncoding)}
}

func (dc *GenomeDistanceCache) encoding(g *Genome) *GeneticEncoding {
	if e, ok := dc.encodings[g]; ok {
		dc.Hits++
		return e
	}
	dc.Misses++
	e := g.GeneticEncoding()
	dc.encodings[g] = e
	return e
}

// Distance returns the compatibility distance between two genomes.
func (dc *GenomeDistanceCache) Distance(genome1, genome2 *Genome) float64 {
	return dc.encoding(genome1).CompatibilityDistance(dc.encoding(genome2))
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species []*Species
	Indexer int // Counter for assigning new species keys (start at 1)

	scope *Scope
}

// NewSpeciesSet creates a new species set manager.
func NewSpeciesSet(scope *Scope) *SpeciesSet {
	return &SpeciesSet{
		Indexer: 1,
		scope:   scope,
	}
}

// Speciate assigns every genome to the first species whose representative is
// closer than the compatibility threshold, creating species as needed.
// Species left empty are dropped, and every surviving species then picks a
// random member as its next representative.
func (ss *SpeciesSet) Speciate(genomes []*Genome, generation int) {
	threshold := ss.scope.Config.Speciation.CompatibilityThreshold
	cache := NewGenomeDistanceCache()

	for _, s := range ss.Species {
		s.Members = nil
	}

	for _, g := range genomes {
		placed := false
		for _, s := range ss.Species {
			if s.Representative == nil {
				continue
			}
			if cache.Distance(g, s.Representative) < threshold {
				s.Members = append(s.Members, g)
				placed = true
				break
			}
		}
		if !placed {
			s := NewSpecies(ss.Indexer, generation)
			ss.Indexer++
			s.AddGenome(g)
			ss.Species = append(ss.Species, s)
			ss.scope.Logger.Debug("created species", slog.Int("species", s.Key), slog.Int("genome", g.ID))
		}
	}

	kept := ss.Species[:0]
	for _, s := range ss.Species {
		if len(s.Members) == 0 {
			ss.scope.Logger.Debug("species died out", slog.Int("species", s.Key))
			continue
		}
		kept = append(kept, s)
	}
	clear(ss.Species[len(kept):])
	ss.Species = kept

	for _, s := range ss.Species {
		s.Representative = s.Members[ss.scope.Rand.Intn(len(s.Members))]
	}

	ss.scope.Logger.Debug("speciated",
		slog.Int("generation", generation),
		slog.Int("species", len(ss.Species)),
		slog.Int("encodings", cache.Misses),
	)
}

// sortBestFirst orders species by their best current member, fittest first.
func (ss *SpeciesSet) sortBestFirst() {
	sort.SliceStable(ss.Species, func(i, j int) bool {
		return memberBest(ss.Species[i]) > memberBest(ss.Species[j])
	})
}

func memberBest(s *Species) float64 {
	if best := s.BestGenome(); best != nil {
		return best.Fitness
	}
	return 0
}

// fittest returns the genome with the highest fitness, the first one on ties.
func fittest(genomes []*Genome) *Genome {
	var best *Genome
	for _, g := range genomes {
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
	}
	return best
}

// sortByFitness orders genomes by fitness, fittest first.
func sortByFitness(genomes []*Genome) {
	sort.SliceStable(genomes, func(i, j int) bool {
		return genomes[i].Fitness > genomes[j].Fitness
	})
}
