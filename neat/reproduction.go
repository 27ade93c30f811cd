package neat

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// eliteSpeciesSize is the member count above which a species' champion is
// always carried into the next generation.
const eliteSpeciesSize = 5

// Reproduction handles elitism, offspring allocation and the creation of new
// genomes through mutation and crossover.
type Reproduction struct {
	Config *ReproductionConfig

	scope *Scope
}

// NewReproduction creates a new reproduction manager.
func NewReproduction(scope *Scope) *Reproduction {
	return &Reproduction{Config: &scope.Config.Reproduction, scope: scope}
}

// CreateNewPopulation builds one minimal genome and fills the population with
// copies of it, each with freshly sampled weights.
func (r *Reproduction) CreateNewPopulation(popSize int) ([]*Genome, error) {
	base, err := BuildGenome(r.scope)
	if err != nil {
		return nil, fmt.Errorf("building base genome: %w", err)
	}
	genomes := make([]*Genome, popSize)
	for i := range genomes {
		g := base.Copy()
		g.ReinitializeWeights()
		genomes[i] = g
	}
	return genomes, nil
}

// SaveElites copies the champion of every species with more than five
// members, then the fittest genomes not equal to an elite already chosen,
// until numOfElite is reached. The result never exceeds popSize. genomes is
// sorted by fitness as a side effect.
func (r *Reproduction) SaveElites(genomes []*Genome, species []*Species, popSize int) []*Genome {
	sortByFitness(genomes)

	var elites []*Genome
	for _, s := range species {
		if len(s.Members) > eliteSpeciesSize {
			elites = append(elites, s.BestGenome().Copy())
		}
	}

	for _, candidate := range genomes {
		if len(elites) >= r.Config.NumOfElite {
			break
		}
		duplicate := slices.ContainsFunc(elites, func(e *Genome) bool { return e.Equals(candidate) })
		if !duplicate {
			elites = append(elites, candidate.Copy())
		}
	}

	if len(elites) > popSize {
		elites = elites[:popSize]
	}
	return elites
}

// CalculateOffspring distributes remaining offspring slots across species in
// proportion to their total adjusted fitness. Flooring shortfall goes one by
// one to the species with the best fitness so far; any surplus is taken from
// the species with the lowest adjusted fitness. The counts always sum to remaining.
func (r *Reproduction) CalculateOffspring(species []*Species, remaining int) {
	if len(species) == 0 {
		return
	}

	total := 0.0
	for _, s := range species {
		s.SetAdjustedFitness()
		total += s.TotalAdjustedFitness()
	}

	assigned := 0
	for _, s := range species {
		if total > 0 {
			s.OffspringCount = int(s.TotalAdjustedFitness() / total * float64(remaining))
		} else {
			s.OffspringCount = remaining / len(species)
		}
		s.OffspringCount = max(0, s.OffspringCount)
		assigned += s.OffspringCount
	}

	if assigned > remaining {
		byAdjusted := slices.Clone(species)
		slices.SortStableFunc(byAdjusted, func(a, b *Species) int {
			return cmp.Compare(a.TotalAdjustedFitness(), b.TotalAdjustedFitness())
		})
		surplus := assigned - remaining
		for _, s := range byAdjusted {
			take := min(surplus, s.OffspringCount)
			s.OffspringCount -= take
			surplus -= take
			if surplus == 0 {
				break
			}
		}
	}

	for ; assigned < remaining; assigned++ {
		best := species[0]
		for _, s := range species[1:] {
			if s.BestFitness() > best.BestFitness() {
				best = s
			}
		}
		best.OffspringCount++
	}
}

// GenerateOffspring produces each species' allotted offspring. Each child is
// a mutated copy of a member (mutate-only), a crossover with a member of
// another species (interspecies mating), or a crossover of two distinct
// members of the same species. Single-member species fall back to copying.
func (r *Reproduction) GenerateOffspring(species []*Species) ([]*Genome, error) {
	rng := r.scope.Rand
	var offspring []*Genome

	for _, s := range species {
		members := s.Members
		var mutatedOnly []*Genome

		for i := 0; i < s.OffspringCount; i++ {
			if rng.Float64() < r.Config.MutateOnlyProb {
				selected := members[rng.Intn(len(members))]
				for len(members) > 1 && i < len(members) && slices.Contains(mutatedOnly, selected) {
					selected = members[rng.Intn(len(members))]
				}
				mutatedOnly = append(mutatedOnly, selected)
				child := selected.Copy()
				child.Mutate()
				offspring = append(offspring, child)
				continue
			}

			if rng.Float64() < r.Config.InterspeciesMatingRate && len(species) > 1 {
				other := species[rng.Intn(len(species))]
				for other == s {
					other = species[rng.Intn(len(species))]
				}
				parent1 := members[rng.Intn(len(members))]
				parent2 := other.Members[rng.Intn(len(other.Members))]
				child, err := r.cross(parent1, parent2)
				if err != nil {
					return nil, err
				}
				offspring = append(offspring, child)
				continue
			}

			if len(members) > 1 {
				parent1 := members[rng.Intn(len(members))]
				parent2 := members[rng.Intn(len(members))]
				for parent1 == parent2 {
					parent2 = members[rng.Intn(len(members))]
				}
				child, err := r.cross(parent1, parent2)
				if err != nil {
					return nil, err
				}
				offspring = append(offspring, child)
				continue
			}

			child := members[0].Copy()
			child.Mutate()
			offspring = append(offspring, child)
		}
	}
	return offspring, nil
}

// cross recombines two parents and mutates the child with probability mutationRate.
func (r *Reproduction) cross(parent1, parent2 *Genome) (*Genome, error) {
	child, err := parent1.Crossover(parent2)
	if err != nil {
		return nil, err
	}
	if r.scope.Rand.Float64() <= r.Config.MutationRate {
		child.Mutate()
	}
	r.scope.Logger.Debug("crossover",
		slog.Int("parent1", parent1.ID),
		slog.Int("parent2", parent2.ID),
		slog.Int("child", child.ID),
	)
	return child, nil
}
