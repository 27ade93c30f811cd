package neat

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// maxMutationAttempts bounds the random search of the structural mutations.
const maxMutationAttempts = 100

// Genome represents an individual organism in the population.
// It owns its NodeGenes and ConnectionGenes; nodes refer to their incident
// connections by index into Connections.
type Genome struct {
	ID              int               // Unique identifier within the scope.
	Nodes           []*NodeGene       // Nodes in insertion order.
	Connections     []*ConnectionGene // Connections in insertion order.
	Fitness         float64
	AdjustedFitness float64

	scope     *Scope
	nodeIndex map[int]int // node ID -> index in Nodes
	inputs    []int       // indices of input nodes, ordered by node ID
	outputs   []int       // indices of output nodes, ordered by node ID
	bias      int         // index of the bias node, -1 if none
}

// newGenome validates the gene sets and links them into a genome with a fresh id.
func newGenome(scope *Scope, nodes []*NodeGene, conns []*ConnectionGene) (*Genome, error) {
	seen := make(map[int]NodeType, len(nodes))
	biasCount := 0
	for _, n := range nodes {
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrInvalidOperation, n.ID)
		}
		seen[n.ID] = n.Type
		if n.Type == BiasNode {
			biasCount++
		}
	}
	if biasCount > 1 {
		return nil, fmt.Errorf("%w: genome has %d bias nodes", ErrInvalidOperation, biasCount)
	}

	innovations := make(map[int]struct{}, len(conns))
	pairs := make(map[ConnectionKey]struct{}, len(conns))
	for _, c := range conns {
		inType, ok := seen[c.InNodeID]
		if !ok {
			return nil, fmt.Errorf("%w: connection %d refers to missing node %d", ErrInvalidOperation, c.InnovationNumber, c.InNodeID)
		}
		outType, ok := seen[c.OutNodeID]
		if !ok {
			return nil, fmt.Errorf("%w: connection %d refers to missing node %d", ErrInvalidOperation, c.InnovationNumber, c.OutNodeID)
		}
		if !inType.AcceptsOutgoing() {
			return nil, fmt.Errorf("%w: %s node %d cannot be a connection source", ErrInvalidOperation, inType, c.InNodeID)
		}
		if !outType.AcceptsIncoming() {
			return nil, fmt.Errorf("%w: %s node %d cannot be a connection target", ErrInvalidOperation, outType, c.OutNodeID)
		}
		if _, dup := innovations[c.InnovationNumber]; dup {
			return nil, fmt.Errorf("%w: duplicate innovation number %d", ErrInvalidOperation, c.InnovationNumber)
		}
		innovations[c.InnovationNumber] = struct{}{}
		if _, dup := pairs[c.Key()]; dup {
			return nil, fmt.Errorf("%w: duplicate connection %d->%d", ErrInvalidOperation, c.InNodeID, c.OutNodeID)
		}
		pairs[c.Key()] = struct{}{}
	}

	g := &Genome{
		ID:          scope.nextGenomeID(),
		Nodes:       nodes,
		Connections: conns,
		scope:       scope,
	}
	g.relink()
	return g, nil
}

// relink rebuilds the node index and every node's incident connection lists.
// It must run after any change to Nodes or Connections.
func (g *Genome) relink() {
	g.nodeIndex = make(map[int]int, len(g.Nodes))
	g.inputs = g.inputs[:0]
	g.outputs = g.outputs[:0]
	g.bias = -1
	for i, n := range g.Nodes {
		n.clearLinks()
		g.nodeIndex[n.ID] = i
		switch n.Type {
		case InputNode:
			g.inputs = append(g.inputs, i)
		case OutputNode:
			g.outputs = append(g.outputs, i)
		case BiasNode:
			g.bias = i
		}
	}
	byID := func(idx []int) func(a, b int) bool {
		return func(a, b int) bool { return g.Nodes[idx[a]].ID < g.Nodes[idx[b]].ID }
	}
	sort.Slice(g.inputs, byID(g.inputs))
	sort.Slice(g.outputs, byID(g.outputs))

	for ci, c := range g.Connections {
		in, out := g.node(c.InNodeID), g.node(c.OutNodeID)
		in.outgoing = append(in.outgoing, ci)
		out.incoming = append(out.incoming, ci)
		if c.Recurrent {
			out.incomingRecurrent = append(out.incomingRecurrent, ci)
		}
		if in.Type == BiasNode {
			out.biasConnection = ci
		}
	}
}

// node resolves an id that is known to belong to the genome.
func (g *Genome) node(id int) *NodeGene {
	i, ok := g.nodeIndex[id]
	if !ok {
		panic(fmt.Sprintf("neat: genome %d has no node %d", g.ID, id))
	}
	return g.Nodes[i]
}

// NodeByID looks up a node of the genome.
func (g *Genome) NodeByID(id int) (*NodeGene, error) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: genome %d has no node %d", ErrInvalidOperation, g.ID, id)
	}
	return g.Nodes[i], nil
}

// Scope returns the scope the genome was created in.
func (g *Genome) Scope() *Scope { return g.scope }

// InputNodes returns the input nodes ordered by id.
func (g *Genome) InputNodes() []*NodeGene { return g.pick(g.inputs) }

// OutputNodes returns the output nodes ordered by id.
func (g *Genome) OutputNodes() []*NodeGene { return g.pick(g.outputs) }

// BiasNodeGene returns the bias node, or nil when the genome has none.
func (g *Genome) BiasNodeGene() *NodeGene {
	if g.bias < 0 {
		return nil
	}
	return g.Nodes[g.bias]
}

func (g *Genome) pick(idx []int) []*NodeGene {
	nodes := make([]*NodeGene, len(idx))
	for i, j := range idx {
		nodes[i] = g.Nodes[j]
	}
	return nodes
}

// String returns a summary of the genome.
func (g *Genome) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Genome(ID: %d, Fitness: %.4f, Nodes: %d, Connections: %d)\n",
		g.ID, g.Fitness, len(g.Nodes), len(g.Connections))
	for _, n := range g.Nodes {
		sb.WriteString("  " + n.String() + "\n")
	}
	for _, c := range g.Connections {
		sb.WriteString("  " + c.String() + "\n")
	}
	return sb.String()
}

// --------------------------- Propagation ---------------------------

// Propagate feeds one input vector through the network and returns the
// outputs, ordered by output node id.
//
// A node fires once it has received every forward input counted for it by
// the expected-input pass. Recurrent connections contribute the output their
// source had before this call. Nodes that are never reached keep their
// previous output.
func (g *Genome) Propagate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(g.inputs) {
		return nil, fmt.Errorf("%w: genome %d expects %d inputs, got %d",
			ErrInvalidOperation, g.ID, len(g.inputs), len(inputs))
	}
	for _, n := range g.Nodes {
		n.prevOutput = n.LastOutput
	}
	g.calculateExpectedInputs()

	for i, idx := range g.inputs {
		if err := g.feed(g.Nodes[idx], inputs[i]); err != nil {
			return nil, err
		}
	}

	outputs := make([]float64, len(g.outputs))
	for i, idx := range g.outputs {
		outputs[i] = g.Nodes[idx].LastOutput
	}
	return outputs, nil
}

// ResetState clears the outputs and counters of every node, so that the next
// Propagate carries no memory of earlier calls.
func (g *Genome) ResetState() {
	for _, n := range g.Nodes {
		n.resetState()
	}
	for _, c := range g.Connections {
		c.forwarded = false
	}
}

func (g *Genome) calculateExpectedInputs() {
	for _, n := range g.Nodes {
		n.expectedInputs = 0
		n.receivedInputs = 0
		n.inputs = n.inputs[:0]
	}
	for _, c := range g.Connections {
		c.forwarded = false
	}
	for _, idx := range g.inputs {
		for _, ci := range g.Nodes[idx].outgoing {
			if c := g.Connections[ci]; c.Enabled && !c.Recurrent {
				g.forwardExpectedInput(c)
			}
		}
	}
}

// forwardExpectedInput counts c towards its target. Each connection is
// counted at most once; a hidden target passes the count on along its own
// forward connections.
func (g *Genome) forwardExpectedInput(c *ConnectionGene) {
	if c.forwarded {
		return
	}
	target := g.node(c.OutNodeID)
	switch target.Type {
	case HiddenNode:
		target.expectedInputs++
		for _, ci := range target.outgoing {
			if next := g.Connections[ci]; next.Enabled && !next.Recurrent {
				g.forwardExpectedInput(next)
			}
		}
	case OutputNode:
		target.expectedInputs++
	}
	c.forwarded = true
}

// feed delivers a value to n. Input nodes forward it immediately; hidden and
// output nodes buffer it and fire once all expected inputs have arrived.
func (g *Genome) feed(n *NodeGene, value float64) error {
	switch n.Type {
	case InputNode:
		n.LastOutput = value
		return g.forward(n, value)
	case HiddenNode, OutputNode:
		n.inputs = append(n.inputs, value)
		n.receivedInputs++
		if n.receivedInputs == n.expectedInputs {
			return g.fire(n)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s node %d does not accept input", ErrInvalidOperation, n.Type, n.ID)
	}
}

func (g *Genome) fire(n *NodeGene) error {
	if !n.Type.AcceptsIncoming() {
		return fmt.Errorf("%w: %s node %d cannot be activated", ErrInvalidOperation, n.Type, n.ID)
	}
	sum := 0.0
	for _, v := range n.inputs {
		sum += v
	}
	for _, ci := range n.incomingRecurrent {
		if c := g.Connections[ci]; c.Enabled {
			sum += c.Weight * g.node(c.InNodeID).prevOutput
		}
	}
	sum += g.biasTerm(n)

	out := g.scope.Activation.Apply(sum)
	n.LastOutput = out
	n.inputs = n.inputs[:0]
	n.receivedInputs = 0
	return g.forward(n, out)
}

func (g *Genome) forward(n *NodeGene, value float64) error {
	for _, ci := range n.outgoing {
		c := g.Connections[ci]
		if !c.Enabled || c.Recurrent {
			continue
		}
		if err := g.feed(g.node(c.OutNodeID), value*c.Weight); err != nil {
			return err
		}
	}
	return nil
}

func (g *Genome) biasTerm(n *NodeGene) float64 {
	gc := &g.scope.Config.Genome
	switch gc.BiasMode {
	case BiasWeightedNode:
		if n.biasConnection >= 0 {
			if c := g.Connections[n.biasConnection]; c.Enabled {
				return c.Weight * gc.Bias
			}
		}
	case BiasDirectNode:
		if n.biasConnection >= 0 && g.Connections[n.biasConnection].Enabled {
			return gc.Bias
		}
	case BiasConstant:
		return gc.Bias
	}
	return 0
}

// --------------------------- Mutation ---------------------------

// Mutate applies weight mutation, add-connection and add-node mutation, each
// with its own configured probability.
func (g *Genome) Mutate() {
	mc := &g.scope.Config.Mutation
	rng := g.scope.Rand
	if rng.Float64() < mc.WeightMutationRate {
		g.MutateWeights()
	}
	if rng.Float64() < mc.AddConnectionMutationRate {
		g.MutateAddConnection()
	}
	if rng.Float64() < mc.AddNodeMutationRate {
		g.MutateAddNode()
	}
}

// MutateWeights resamples or perturbs every connection weight.
func (g *Genome) MutateWeights() {
	mc := &g.scope.Config.Mutation
	gc := &g.scope.Config.Genome
	rng := g.scope.Rand
	for _, c := range g.Connections {
		if rng.Float64() < mc.ReinitializeWeightRate {
			c.Weight = g.scope.Weights.Sample()
			continue
		}
		perturb := mc.MinPerturb + (mc.MaxPerturb-mc.MinPerturb)*rng.Float64()
		c.Weight = clamp(c.Weight+perturb, gc.MinWeight, gc.MaxWeight)
	}
}

// MutateAddConnection tries to connect two unconnected nodes. It reports
// whether a connection was added; running out of attempts is not an error.
func (g *Genome) MutateAddConnection() bool {
	if len(g.Nodes) == 0 {
		return false
	}
	gc := &g.scope.Config.Genome
	rng := g.scope.Rand
	existing := g.connectionKeys()
	fg := g.forwardGraph()

	for attempt := 0; attempt < maxMutationAttempts; attempt++ {
		from := g.Nodes[rng.Intn(len(g.Nodes))]
		to := g.Nodes[rng.Intn(len(g.Nodes))]
		if !from.Type.AcceptsOutgoing() || !to.Type.AcceptsIncoming() {
			continue
		}
		if _, ok := existing[ConnectionKey{InNodeID: from.ID, OutNodeID: to.ID}]; ok {
			continue
		}
		recurrent := g.isRecurrent(fg, from, to)
		if recurrent && (!gc.AllowRecurrentConnections || rng.Float64() > gc.RecurrentConnectionRate) {
			continue
		}

		g.Connections = append(g.Connections, &ConnectionGene{
			InnovationNumber: g.scope.Innovations.TrackInnovation(from.ID, to.ID),
			InNodeID:         from.ID,
			OutNodeID:        to.ID,
			Weight:           g.scope.Weights.Sample(),
			Enabled:          true,
			Recurrent:        recurrent,
		})
		g.relink()
		return true
	}
	return false
}

// MutateAddNode splits a random enabled connection with a new hidden node.
// The old connection is disabled; the incoming half gets weight 1 and the
// outgoing half inherits the old weight. It reports whether a node was added.
func (g *Genome) MutateAddNode() bool {
	if len(g.Connections) == 0 {
		return false
	}
	rng := g.scope.Rand

	var selected *ConnectionGene
	for attempt := 0; attempt < maxMutationAttempts; attempt++ {
		if c := g.Connections[rng.Intn(len(g.Connections))]; c.Enabled {
			selected = c
			break
		}
	}
	if selected == nil {
		return false
	}

	split := g.scope.Innovations.TrackAddNodeInnovation(selected.InNodeID, selected.OutNodeID)
	if _, exists := g.nodeIndex[split.NewNodeID]; exists {
		// This genome already carries the split from earlier in the generation.
		return false
	}

	selected.Enabled = false
	from, to := g.node(selected.InNodeID), g.node(selected.OutNodeID)
	hidden := newNodeGene(split.NewNodeID, HiddenNode)
	g.Nodes = append(g.Nodes, hidden)

	// Both halves are classified like any other new connection.
	fg := g.forwardGraph()
	inToNew := &ConnectionGene{
		InnovationNumber: split.InToNew,
		InNodeID:         from.ID,
		OutNodeID:        hidden.ID,
		Weight:           1.0,
		Enabled:          true,
		Recurrent:        g.isRecurrent(fg, from, hidden),
	}
	if !inToNew.Recurrent {
		g.setForwardEdge(fg, inToNew)
	}
	newToOut := &ConnectionGene{
		InnovationNumber: split.NewToOut,
		InNodeID:         hidden.ID,
		OutNodeID:        to.ID,
		Weight:           selected.Weight,
		Enabled:          true,
		Recurrent:        g.isRecurrent(fg, hidden, to),
	}
	g.Connections = append(g.Connections, inToNew, newToOut)
	g.relink()
	return true
}

func (g *Genome) connectionKeys() map[ConnectionKey]struct{} {
	keys := make(map[ConnectionKey]struct{}, len(g.Connections))
	for _, c := range g.Connections {
		keys[c.Key()] = struct{}{}
	}
	return keys
}

// --------------------------- Recurrence ---------------------------

// forwardGraph builds the graph of non-recurrent connections, enabled or not.
func (g *Genome) forwardGraph() *simple.DirectedGraph {
	fg := simple.NewDirectedGraph()
	for _, n := range g.Nodes {
		fg.AddNode(simple.Node(n.ID))
	}
	for _, c := range g.Connections {
		if !c.Recurrent {
			g.setForwardEdge(fg, c)
		}
	}
	return fg
}

func (g *Genome) setForwardEdge(fg *simple.DirectedGraph, c *ConnectionGene) {
	if c.InNodeID == c.OutNodeID || !g.node(c.InNodeID).Type.AcceptsOutgoing() {
		return
	}
	fg.SetEdge(fg.NewEdge(simple.Node(c.InNodeID), simple.Node(c.OutNodeID)))
}

// isRecurrent reports whether an edge from -> to would be recurrent: a
// self-loop, an edge out of an output node, or an edge closing a cycle
// because to already reaches from through non-recurrent connections.
func (g *Genome) isRecurrent(fg *simple.DirectedGraph, from, to *NodeGene) bool {
	if from.ID == to.ID || from.Type == OutputNode {
		return true
	}
	return topo.PathExistsIn(fg, simple.Node(to.ID), simple.Node(from.ID))
}

// CheckIfRecurrent reports whether a connection fromID -> toID would be
// recurrent in the current genome.
func (g *Genome) CheckIfRecurrent(fromID, toID int) (bool, error) {
	from, err := g.NodeByID(fromID)
	if err != nil {
		return false, err
	}
	to, err := g.NodeByID(toID)
	if err != nil {
		return false, err
	}
	return g.isRecurrent(g.forwardGraph(), from, to), nil
}

// CheckForRecurrentConnections recomputes the recurrent flag of every
// connection, in connection order.
func (g *Genome) CheckForRecurrentConnections() {
	fg := g.forwardGraph()
	for _, c := range g.Connections {
		rec := g.isRecurrent(fg, g.node(c.InNodeID), g.node(c.OutNodeID))
		if rec == c.Recurrent {
			continue
		}
		c.Recurrent = rec
		if rec {
			fg.RemoveEdge(int64(c.InNodeID), int64(c.OutNodeID))
		} else {
			g.setForwardEdge(fg, c)
		}
	}
	g.relink()
}

// --------------------------- Lifecycle ---------------------------

// ReinitializeWeights resamples every connection weight.
func (g *Genome) ReinitializeWeights() {
	for _, c := range g.Connections {
		c.Weight = g.scope.Weights.Sample()
	}
}

// Copy creates a deep copy of the genome with a new id. Fitness is carried over.
func (g *Genome) Copy() *Genome {
	nodes := make([]*NodeGene, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = newNodeGene(n.ID, n.Type)
	}
	conns := make([]*ConnectionGene, len(g.Connections))
	for i, c := range g.Connections {
		conns[i] = c.Copy()
	}
	cp := &Genome{
		ID:              g.scope.nextGenomeID(),
		Nodes:           nodes,
		Connections:     conns,
		Fitness:         g.Fitness,
		AdjustedFitness: g.AdjustedFitness,
		scope:           g.scope,
	}
	cp.relink()
	return cp
}

// Equals reports whether two genomes have the same number of nodes and
// connections and pairwise identical connection weights.
func (g *Genome) Equals(other *Genome) bool {
	if len(g.Nodes) != len(other.Nodes) || len(g.Connections) != len(other.Connections) {
		return false
	}
	for i, c := range g.Connections {
		if c.Weight != other.Connections[i].Weight {
			return false
		}
	}
	return true
}

// Crossover recombines g with other. The fitter parent decides the
// offspring's structure.
func (g *Genome) Crossover(other *Genome) (*Genome, error) {
	if g.scope != other.scope {
		return nil, fmt.Errorf("%w: cannot cross genomes %d and %d from different scopes", ErrInvalidOperation, g.ID, other.ID)
	}
	child, err := g.GeneticEncoding().Crossover(other.GeneticEncoding())
	if err != nil {
		return nil, fmt.Errorf("crossover of genomes %d and %d: %w", g.ID, other.ID, err)
	}
	return child.BuildGenome()
}

// Prune simplifies the genome in place. With removeDisabled set, disabled
// connections are dropped first. Hidden nodes without incoming or without
// outgoing connections are then removed together with their connections,
// until none remain.
func (g *Genome) Prune(removeDisabled bool) {
	if removeDisabled {
		kept := g.Connections[:0]
		for _, c := range g.Connections {
			if c.Enabled {
				kept = append(kept, c)
			}
		}
		clear(g.Connections[len(kept):])
		g.Connections = kept
		g.relink()
	}

	for pruned := true; pruned; {
		pruned = false
		for i, n := range g.Nodes {
			if n.Type != HiddenNode || (len(n.incoming) > 0 && len(n.outgoing) > 0) {
				continue
			}
			g.removeNode(i)
			pruned = true
			break
		}
	}
}

// removeNode drops the node at index i and every connection touching it.
func (g *Genome) removeNode(i int) {
	id := g.Nodes[i].ID
	g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)
	kept := g.Connections[:0]
	for _, c := range g.Connections {
		if c.InNodeID != id && c.OutNodeID != id {
			kept = append(kept, c)
		}
	}
	clear(g.Connections[len(kept):])
	g.Connections = kept
	g.relink()
}

// MaxIDs returns the highest node id and innovation number in the genome,
// or -1 for an empty set.
func (g *Genome) MaxIDs() (maxNodeID, maxInnovation int) {
	maxNodeID, maxInnovation = -1, -1
	for _, n := range g.Nodes {
		maxNodeID = max(maxNodeID, n.ID)
	}
	for _, c := range g.Connections {
		maxInnovation = max(maxInnovation, c.InnovationNumber)
	}
	return maxNodeID, maxInnovation
}
