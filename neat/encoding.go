package neat

import "fmt"

// NodeGeneData is the structural part of a node gene.
type NodeGeneData struct {
	ID   int
	Type NodeType
}

// ConnectionGeneData is a detached connection gene.
type ConnectionGeneData struct {
	InnovationNumber int
	InNodeID         int
	OutNodeID        int
	Weight           float64
	Enabled          bool
	Recurrent        bool
}

// GeneticEncoding is an innovation-indexed view of a genome used for
// crossover and compatibility distance. It is derived state: build it from
// a genome, use it, and turn it back into a genome with BuildGenome.
type GeneticEncoding struct {
	Fitness float64

	scope       *Scope
	nodes       map[int]NodeGeneData
	nodeOrder   []int
	connections map[int]ConnectionGeneData
	connOrder   []int // innovation numbers in insertion order
	pairs       map[ConnectionKey]struct{}
}

// NewGeneticEncoding creates an empty encoding bound to scope.
func NewGeneticEncoding(scope *Scope) *GeneticEncoding {
	return &GeneticEncoding{
		scope:       scope,
		nodes:       make(map[int]NodeGeneData),
		connections: make(map[int]ConnectionGeneData),
		pairs:       make(map[ConnectionKey]struct{}),
	}
}

// GeneticEncoding builds the encoding of g.
func (g *Genome) GeneticEncoding() *GeneticEncoding {
	e := NewGeneticEncoding(g.scope)
	for _, c := range g.Connections {
		e.AddConnection(ConnectionGeneData{
			InnovationNumber: c.InnovationNumber,
			InNodeID:         c.InNodeID,
			OutNodeID:        c.OutNodeID,
			Weight:           c.Weight,
			Enabled:          c.Enabled,
			Recurrent:        c.Recurrent,
		})
	}
	for _, n := range g.Nodes {
		e.AddNode(NodeGeneData{ID: n.ID, Type: n.Type})
	}
	e.Fitness = g.Fitness
	return e
}

// AddNode adds a node unless its id is already present.
func (e *GeneticEncoding) AddNode(n NodeGeneData) {
	if _, ok := e.nodes[n.ID]; ok {
		return
	}
	e.nodes[n.ID] = n
	e.nodeOrder = append(e.nodeOrder, n.ID)
}

// AddConnection adds a connection unless one with the same endpoints or the
// same innovation number is already present. It reports whether it was added.
func (e *GeneticEncoding) AddConnection(c ConnectionGeneData) bool {
	key := ConnectionKey{InNodeID: c.InNodeID, OutNodeID: c.OutNodeID}
	if _, ok := e.pairs[key]; ok {
		return false
	}
	if _, ok := e.connections[c.InnovationNumber]; ok {
		return false
	}
	e.pairs[key] = struct{}{}
	e.connections[c.InnovationNumber] = c
	e.connOrder = append(e.connOrder, c.InnovationNumber)
	return true
}

// Node returns the node with the given id.
func (e *GeneticEncoding) Node(id int) (NodeGeneData, error) {
	n, ok := e.nodes[id]
	if !ok {
		return NodeGeneData{}, fmt.Errorf("%w: node %d does not exist", ErrInvalidOperation, id)
	}
	return n, nil
}

// Connection returns the connection with the given innovation number.
func (e *GeneticEncoding) Connection(innovation int) (ConnectionGeneData, bool) {
	c, ok := e.connections[innovation]
	return c, ok
}

// NumNodes returns the number of node genes.
func (e *GeneticEncoding) NumNodes() int { return len(e.nodes) }

// NumConnections returns the number of connection genes.
func (e *GeneticEncoding) NumConnections() int { return len(e.connections) }

// HighestInnovationNumber returns the largest innovation number, or 0 when
// there are no connections.
func (e *GeneticEncoding) HighestInnovationNumber() int {
	highest := 0
	for innov := range e.connections {
		highest = max(highest, innov)
	}
	return highest
}

// Crossover produces the offspring encoding of e and other. Genes of the
// fitter parent (fewer connections on a tie) are all inherited; matching
// genes are taken from either parent at random. Input, output and bias
// nodes of the fitter parent are always carried over.
func (e *GeneticEncoding) Crossover(other *GeneticEncoding) (*GeneticEncoding, error) {
	best, worst := e, other
	switch {
	case other.Fitness > e.Fitness:
		best, worst = other, e
	case other.Fitness == e.Fitness && len(other.connections) <= len(e.connections):
		best, worst = other, e
	}

	rng := e.scope.Rand
	keepDisabled := e.scope.Config.Reproduction.KeepDisabledOnCrossOverRate
	enabledFrom := func(selected ConnectionGeneData, eitherDisabled bool) bool {
		if keepDisabled == -1 {
			return selected.Enabled
		}
		if eitherDisabled {
			return rng.Float64() > keepDisabled
		}
		return true
	}

	child := NewGeneticEncoding(e.scope)
	for _, innov := range best.connOrder {
		gene := best.connections[innov]
		if otherGene, ok := worst.connections[innov]; ok {
			selected, parent := gene, best
			if rng.Float64() >= 0.5 {
				selected, parent = otherGene, worst
			}
			enabled := enabledFrom(selected, !gene.Enabled || !otherGene.Enabled)
			if err := child.addConnectionAndNodes(selected, enabled, parent, best); err != nil {
				return nil, err
			}
			continue
		}
		if err := child.addConnectionAndNodes(gene, enabledFrom(gene, !gene.Enabled), best, best); err != nil {
			return nil, err
		}
	}

	for _, id := range best.nodeOrder {
		if n := best.nodes[id]; n.Type != HiddenNode {
			child.AddNode(n)
		}
	}
	return child, nil
}

// addConnectionAndNodes copies conn and its endpoint nodes from parent. The
// recurrent flag is taken from the fitter parent's copy of the gene.
func (e *GeneticEncoding) addConnectionAndNodes(conn ConnectionGeneData, enabled bool, parent, best *GeneticEncoding) error {
	out, err := parent.Node(conn.OutNodeID)
	if err != nil {
		return err
	}
	if out.Type == InputNode {
		return fmt.Errorf("%w: input node %d cannot be used as out node", ErrInvalidOperation, conn.OutNodeID)
	}
	in, err := parent.Node(conn.InNodeID)
	if err != nil {
		return err
	}

	conn.Enabled = enabled
	conn.Recurrent = best.connections[conn.InnovationNumber].Recurrent
	e.AddConnection(conn)
	e.AddNode(in)
	e.AddNode(out)
	return nil
}

// BuildGenome converts the encoding into a new genome and recomputes the
// recurrent flags of its connections.
func (e *GeneticEncoding) BuildGenome() (*Genome, error) {
	nodes := make([]*NodeGene, 0, len(e.nodeOrder))
	for _, id := range e.nodeOrder {
		n := e.nodes[id]
		nodes = append(nodes, newNodeGene(n.ID, n.Type))
	}
	conns := make([]*ConnectionGene, 0, len(e.connOrder))
	for _, innov := range e.connOrder {
		c := e.connections[innov]
		conns = append(conns, &ConnectionGene{
			InnovationNumber: c.InnovationNumber,
			InNodeID:         c.InNodeID,
			OutNodeID:        c.OutNodeID,
			Weight:           c.Weight,
			Enabled:          c.Enabled,
			Recurrent:        c.Recurrent,
		})
	}

	g, err := newGenome(e.scope, nodes, conns)
	if err != nil {
		return nil, err
	}
	g.CheckForRecurrentConnections()
	return g, nil
}

// --------------------------- Compatibility ---------------------------

// CompatibilityDistance returns (c1*excess + c2*disjoint)/N + c3*meanWeightDiff,
// where N is the larger connection count, or 1 when that is below 20.
func (e *GeneticEncoding) CompatibilityDistance(other *GeneticEncoding) float64 {
	sc := &e.scope.Config.Speciation
	n := float64(max(len(e.connections), len(other.connections)))
	if n < 20 {
		n = 1
	}
	excess := float64(e.ExcessGenes(other))
	disjoint := float64(e.DisjointGenes(other))
	return sc.C1*excess/n + sc.C2*disjoint/n + sc.C3*e.AverageWeightDifference(other)
}

// MatchingGenes counts innovation numbers present in both encodings.
func (e *GeneticEncoding) MatchingGenes(other *GeneticEncoding) int {
	matching := 0
	for innov := range e.connections {
		if _, ok := other.connections[innov]; ok {
			matching++
		}
	}
	return matching
}

// DisjointGenes counts non-matching genes at or below the smaller of the two
// highest innovation numbers.
func (e *GeneticEncoding) DisjointGenes(other *GeneticEncoding) int {
	limit := min(e.HighestInnovationNumber(), other.HighestInnovationNumber())
	return countMissing(e, other, func(innov int) bool { return innov <= limit }) +
		countMissing(other, e, func(innov int) bool { return innov <= limit })
}

// ExcessGenes counts genes beyond the smaller of the two highest innovation numbers.
func (e *GeneticEncoding) ExcessGenes(other *GeneticEncoding) int {
	limit := min(e.HighestInnovationNumber(), other.HighestInnovationNumber())
	excess := 0
	for _, enc := range []*GeneticEncoding{e, other} {
		for innov := range enc.connections {
			if innov > limit {
				excess++
			}
		}
	}
	return excess
}

// countMissing counts genes of a, accepted by in, that b does not carry.
func countMissing(a, b *GeneticEncoding, in func(int) bool) int {
	n := 0
	for innov := range a.connections {
		if _, ok := b.connections[innov]; !ok && in(innov) {
			n++
		}
	}
	return n
}

// AverageWeightDifference is the mean |w1-w2| over matching genes, 0 if none match.
func (e *GeneticEncoding) AverageWeightDifference(other *GeneticEncoding) float64 {
	total, matching := 0.0, 0
	for innov, c := range e.connections {
		if oc, ok := other.connections[innov]; ok {
			d := c.Weight - oc.Weight
			if d < 0 {
				d = -d
			}
			total += d
			matching++
		}
	}
	if matching == 0 {
		return 0
	}
	return total / float64(matching)
}
