package nn

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/baldhumanity/rneat/neat"
)

// link is a weighted input of a neuron, read from a value slot.
type link struct {
	from   int
	weight float64
}

// neuron is a hidden or output node that fires on every activation.
type neuron struct {
	id        int
	slot      int
	forward   []link // enabled non-recurrent inputs, read from this activation
	recurrent []link // enabled recurrent inputs, read from the previous activation
	bias      float64
}

// Network is a genome compiled for repeated activation. It produces the same
// outputs as Genome.Propagate without walking the genome on every call.
type Network struct {
	InputIDs  []int // input node ids, in input order
	OutputIDs []int // output node ids, in output order

	inputSlots  []int
	outputSlots []int
	order       []neuron // neurons in evaluation order
	values      []float64
	prev        []float64
	activation  neat.Activation
}

// Compile lowers g into a Network. Only nodes reachable from the inputs
// through enabled non-recurrent connections are evaluated; every other node
// keeps its last value, as it would in Genome.Propagate.
func Compile(g *neat.Genome) (*Network, error) {
	cfg := g.Scope().Config.Genome

	slots := make(map[int]int, len(g.Nodes))
	types := make(map[int]neat.NodeType, len(g.Nodes))
	for i, n := range g.Nodes {
		slots[n.ID] = i
		types[n.ID] = n.Type
	}

	net := &Network{
		values:     make([]float64, len(g.Nodes)),
		prev:       make([]float64, len(g.Nodes)),
		activation: g.Scope().Activation,
	}
	for _, n := range g.InputNodes() {
		net.InputIDs = append(net.InputIDs, n.ID)
		net.inputSlots = append(net.inputSlots, slots[n.ID])
	}
	for _, n := range g.OutputNodes() {
		net.OutputIDs = append(net.OutputIDs, n.ID)
		net.outputSlots = append(net.outputSlots, slots[n.ID])
	}

	// Forward adjacency over enabled non-recurrent connections.
	next := make(map[int][]int)
	for _, c := range g.Connections {
		if c.Enabled && !c.Recurrent {
			next[c.InNodeID] = append(next[c.InNodeID], c.OutNodeID)
		}
	}

	// Reachability from the inputs. Output nodes receive but never pass on.
	reached := make(map[int]bool)
	stack := append([]int(nil), net.InputIDs...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if types[id] == neat.OutputNode {
			continue
		}
		for _, to := range next[id] {
			if !reached[to] {
				reached[to] = true
				stack = append(stack, to)
			}
		}
	}

	dag := simple.NewDirectedGraph()
	for id := range reached {
		dag.AddNode(simple.Node(id))
	}
	neurons := make(map[int]*neuron, len(reached))
	for id := range reached {
		neurons[id] = &neuron{id: id, slot: slots[id]}
	}

	feeds := func(id int) bool {
		return types[id] == neat.InputNode || (types[id] == neat.HiddenNode && reached[id])
	}
	for _, c := range g.Connections {
		n, ok := neurons[c.OutNodeID]
		if !ok || !c.Enabled {
			continue
		}
		switch {
		case types[c.InNodeID] == neat.BiasNode:
			if cfg.BiasMode == neat.BiasWeightedNode {
				n.bias = c.Weight * cfg.Bias
			} else if cfg.BiasMode == neat.BiasDirectNode {
				n.bias = cfg.Bias
			}
		case c.Recurrent:
			n.recurrent = append(n.recurrent, link{from: slots[c.InNodeID], weight: c.Weight})
		case feeds(c.InNodeID):
			n.forward = append(n.forward, link{from: slots[c.InNodeID], weight: c.Weight})
			if reached[c.InNodeID] {
				if c.InNodeID == c.OutNodeID {
					return nil, fmt.Errorf("%w: node %d has a non-recurrent self loop", neat.ErrInvalidOperation, c.InNodeID)
				}
				dag.SetEdge(dag.NewEdge(simple.Node(c.InNodeID), simple.Node(c.OutNodeID)))
			}
		}
	}
	if cfg.BiasMode == neat.BiasConstant {
		for _, n := range neurons {
			n.bias = cfg.Bias
		}
	}

	sorted, err := topo.SortStabilized(dag, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: genome %d has a cycle through non-recurrent connections: %v", neat.ErrInvalidOperation, g.ID, err)
	}
	for _, n := range sorted {
		net.order = append(net.order, *neurons[int(n.ID())])
	}
	return net, nil
}

// Activate computes the outputs for one input vector.
func (net *Network) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.inputSlots) {
		return nil, fmt.Errorf("%w: network expects %d inputs, got %d", neat.ErrInvalidOperation, len(net.inputSlots), len(inputs))
	}
	copy(net.prev, net.values)
	for i, slot := range net.inputSlots {
		net.values[slot] = inputs[i]
	}

	for _, n := range net.order {
		sum := 0.0
		for _, l := range n.forward {
			sum += net.values[l.from] * l.weight
		}
		for _, l := range n.recurrent {
			sum += net.prev[l.from] * l.weight
		}
		sum += n.bias
		net.values[n.slot] = net.activation.Apply(sum)
	}

	outputs := make([]float64, len(net.outputSlots))
	for i, slot := range net.outputSlots {
		outputs[i] = net.values[slot]
	}
	return outputs, nil
}

// Reset clears all node values, including recurrent memory.
func (net *Network) Reset() {
	clear(net.values)
	clear(net.prev)
}

// NumNeurons returns how many nodes fire on each activation.
func (net *Network) NumNeurons() int { return len(net.order) }
