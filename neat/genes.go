package neat

import (
	"fmt"
	"strings"
)

// NodeType is the role of a node in the network graph.
type NodeType int

const (
	InputNode NodeType = iota
	OutputNode
	HiddenNode
	BiasNode
)

var nodeTypeNames = map[NodeType]string{
	InputNode:  "INPUT",
	OutputNode: "OUTPUT",
	HiddenNode: "HIDDEN",
	BiasNode:   "BIAS",
}

func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// ParseNodeType converts a serialized node type name back into a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INPUT":
		return InputNode, nil
	case "OUTPUT":
		return OutputNode, nil
	case "HIDDEN":
		return HiddenNode, nil
	case "BIAS":
		return BiasNode, nil
	}
	return 0, fmt.Errorf("%w: unknown node type %q", ErrInvalidOperation, s)
}

// AcceptsIncoming reports whether a node of this role may be the target of a connection.
func (t NodeType) AcceptsIncoming() bool {
	return t == OutputNode || t == HiddenNode
}

// AcceptsOutgoing reports whether a node of this role may be the source of a connection.
func (t NodeType) AcceptsOutgoing() bool {
	return t == InputNode || t == HiddenNode || t == BiasNode
}

// --------------------------- NodeGene ---------------------------

// NodeGene is a node of the genome graph. It owns no connections; the
// incident connection lists hold indices into the owning genome's
// Connections slice and are rebuilt by the genome whenever its structure changes.
type NodeGene struct {
	ID         int
	Type       NodeType
	LastOutput float64

	// Per-propagation state.
	expectedInputs int
	receivedInputs int
	inputs         []float64
	prevOutput     float64

	incoming          []int
	outgoing          []int
	incomingRecurrent []int
	biasConnection    int // -1 when the node has no bias connection
}

func newNodeGene(id int, t NodeType) *NodeGene {
	return &NodeGene{ID: id, Type: t, biasConnection: -1}
}

// String returns a string representation of the NodeGene.
func (n *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(ID: %d, Type: %s, LastOutput: %.3f)", n.ID, n.Type, n.LastOutput)
}

// ExpectedInputs returns the number of forward inputs the node waits for in the current propagation.
func (n *NodeGene) ExpectedInputs() int { return n.expectedInputs }

// ReceivedInputs returns the number of forward inputs buffered so far.
func (n *NodeGene) ReceivedInputs() int { return n.receivedInputs }

func (n *NodeGene) resetState() {
	n.LastOutput = 0
	n.prevOutput = 0
	n.expectedInputs = 0
	n.receivedInputs = 0
	n.inputs = n.inputs[:0]
}

func (n *NodeGene) clearLinks() {
	n.incoming = n.incoming[:0]
	n.outgoing = n.outgoing[:0]
	n.incomingRecurrent = n.incomingRecurrent[:0]
	n.biasConnection = -1
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionGene is a weighted edge between two nodes, identified by its innovation number.
type ConnectionGene struct {
	InnovationNumber int
	InNodeID         int
	OutNodeID        int
	Weight           float64
	Enabled          bool
	Recurrent        bool

	forwarded bool
}

// String returns a string representation of the ConnectionGene.
func (c *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(#%d: %d->%d, Weight: %.3f, Enabled: %t, Recurrent: %t)",
		c.InnovationNumber, c.InNodeID, c.OutNodeID, c.Weight, c.Enabled, c.Recurrent)
}

// Copy creates a detached copy of the ConnectionGene.
func (c *ConnectionGene) Copy() *ConnectionGene {
	return &ConnectionGene{
		InnovationNumber: c.InnovationNumber,
		InNodeID:         c.InNodeID,
		OutNodeID:        c.OutNodeID,
		Weight:           c.Weight,
		Enabled:          c.Enabled,
		Recurrent:        c.Recurrent,
	}
}

// Key returns the (in, out) endpoint pair of the connection.
func (c *ConnectionGene) Key() ConnectionKey {
	return ConnectionKey{InNodeID: c.InNodeID, OutNodeID: c.OutNodeID}
}

// ConnectionKey identifies a connection by its endpoints.
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}
