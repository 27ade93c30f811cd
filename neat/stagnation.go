package neat

import "log/slog"

// fitnessTracker follows the best fitness seen and how many updates have
// passed since it last improved.
type fitnessTracker struct {
	Best float64
	Age  int
}

// Update records the current best fitness and returns the new age.
func (t *fitnessTracker) Update(current float64) int {
	if current > t.Best {
		t.Best = current
		t.Age = 0
	} else {
		t.Age++
	}
	return t.Age
}

// StagnationInfo summarizes the stagnation decision of one generation.
type StagnationInfo struct {
	Stale          bool // the population has not improved for too long
	AllStagnated   bool // every species is individually stagnated
	SpeciesBefore  int
	SpeciesRemoved []int // keys of the species that were dropped
}

// Stagnation manages the detection of stagnant populations and species.
type Stagnation struct {
	Config *StagnationConfig

	population fitnessTracker
	logger     *slog.Logger
}

// NewStagnation creates a new stagnation manager.
func NewStagnation(config *StagnationConfig, logger *slog.Logger) *Stagnation {
	return &Stagnation{Config: config, logger: logger}
}

// Age returns the number of generations since the population's best fitness improved.
func (s *Stagnation) Age() int { return s.population.Age }

// BestFitness returns the best fitness the population has reached.
func (s *Stagnation) BestFitness() float64 { return s.population.Best }

// Update advances the population and species trackers with this
// generation's fitness and drops species accordingly:
//   - a stale population keeps only its 3 best species,
//   - if every species has stagnated only the 2 best survive,
//   - otherwise every stagnated species is removed.
//
// Species are left ordered by best member fitness, fittest first.
func (s *Stagnation) Update(ss *SpeciesSet, populationBest float64) StagnationInfo {
	info := StagnationInfo{SpeciesBefore: len(ss.Species)}
	info.Stale = s.population.Update(populationBest) > s.Config.PopulationStagnationLimit

	info.AllStagnated = true
	for _, sp := range ss.Species {
		sp.UpdateStagnation(s.Config.DropOffAge)
		if !sp.Stagnated {
			info.AllStagnated = false
		}
	}

	ss.sortBestFirst()
	keep := func(n int) {
		if len(ss.Species) <= n {
			return
		}
		for _, sp := range ss.Species[n:] {
			info.SpeciesRemoved = append(info.SpeciesRemoved, sp.Key)
		}
		clear(ss.Species[n:])
		ss.Species = ss.Species[:n]
	}

	switch {
	case info.Stale:
		keep(3)
	case info.AllStagnated:
		keep(2)
	default:
		kept := ss.Species[:0]
		for _, sp := range ss.Species {
			if sp.Stagnated {
				info.SpeciesRemoved = append(info.SpeciesRemoved, sp.Key)
				continue
			}
			kept = append(kept, sp)
		}
		clear(ss.Species[len(kept):])
		ss.Species = kept
	}

	if len(info.SpeciesRemoved) > 0 {
		s.logger.Debug("removed stagnant species",
			slog.Bool("stale", info.Stale),
			slog.Bool("all_stagnated", info.AllStagnated),
			slog.Any("species", info.SpeciesRemoved),
		)
	}
	return info
}
