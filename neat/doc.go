// Package neat provides a Go implementation of the NeuroEvolution of Augmenting Topologies (NEAT) algorithm.
//
// NEAT is a genetic algorithm for the generation of evolving artificial neural networks.
// It alters both the weighting parameters and structures of networks, attempting to find
// a balance between the fitness of evolved solutions and their diversity.
//
// Genomes may contain recurrent connections. Genome.Propagate evaluates a
// genome directly, firing each node once all of its forward inputs have
// arrived; recurrent connections read the values of the previous call.
// The nn subpackage compiles a genome into an equivalent network for
// repeated evaluation.
//
// Every genome belongs to a Scope, which carries the configuration, the random
// source and the innovation registry shared by one population.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("path/to/config.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	scope, err := neat.NewScope(config, rand.New(rand.NewSource(1)))
//	if err != nil {
//		log.Fatalf("Error creating scope: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(scope)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	winner, solved, err := pop.Run(neat.XOR{})
//	if err != nil {
//		log.Fatalf("Error running evolution: %v", err)
//	}
package neat
