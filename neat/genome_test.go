package neat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGenomeMinimalTopology(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.InputSize = 3
		c.Genome.OutputSize = 2
	})
	g, err := BuildGenome(scope)
	require.NoError(t, err)

	assert.Len(t, g.InputNodes(), 3)
	assert.Len(t, g.OutputNodes(), 2)
	require.NotNil(t, g.BiasNodeGene())
	// 3*2 input connections plus one bias connection per output.
	assert.Len(t, g.Connections, 8)
	for _, c := range g.Connections {
		assert.True(t, c.Enabled)
		assert.False(t, c.Recurrent)
	}
}

func TestBuildGenomeBiasModes(t *testing.T) {
	tests := []struct {
		mode     BiasMode
		connect  bool
		wantBias bool
		wantConn int
	}{
		{BiasWeightedNode, true, true, 3},
		{BiasDirectNode, true, true, 3},
		{BiasWeightedNode, false, true, 2},
		{BiasConstant, true, false, 2},
		{BiasDisabled, true, false, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			scope := newTestScope(t, func(c *Config) {
				c.Genome.OutputSize = 1
				c.Genome.BiasMode = tt.mode
				c.Genome.ConnectBias = tt.connect
			})
			g, err := BuildGenome(scope)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBias, g.BiasNodeGene() != nil)
			assert.Len(t, g.Connections, tt.wantConn)
		})
	}
}

func TestPropagateSingleLayer(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.InputSize = 2
		c.Genome.OutputSize = 1
		c.Genome.BiasMode = BiasDisabled
	})
	g, err := BuildGenome(scope)
	require.NoError(t, err)
	for _, c := range g.Connections {
		c.Weight = 1
	}

	out, err := g.Propagate([]float64{1, 0})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, Sigmoid(1), out[0], 1e-12)
}

func TestPropagateOutputLengthAndReset(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.InputSize = 3
		c.Genome.OutputSize = 4
		c.Genome.AllowRecurrentConnections = false
	})
	g, err := BuildGenome(scope)
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		g.MutateAddNode()
		g.MutateAddConnection()
	}

	in := []float64{0.3, -0.7, 1.2}
	g.ResetState()
	first, err := g.Propagate(in)
	require.NoError(t, err)
	assert.Len(t, first, 4)

	g.ResetState()
	second, err := g.Propagate(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPropagateInputMismatch(t *testing.T) {
	g, err := BuildGenome(newTestScope(t, nil))
	require.NoError(t, err)
	_, err = g.Propagate([]float64{1})
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestPropagateHiddenChain(t *testing.T) {
	scope := newTestScope(t, identityNoBias)
	// 0 -> 2 -> 1 and 0 -> 1: output waits for both paths.
	g := newTestGenome(t, scope,
		map[int]NodeType{0: InputNode, 1: OutputNode, 2: HiddenNode},
		[]testConn{
			{0, 0, 1, 0.5, true, false},
			{1, 0, 2, 2.0, true, false},
			{2, 2, 1, 3.0, true, false},
		})

	out, err := g.Propagate([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5+6.0, out[0], 1e-12)

	hidden, err := g.NodeByID(2)
	require.NoError(t, err)
	assert.Equal(t, 1, hidden.ExpectedInputs())
	out1, err := g.NodeByID(1)
	require.NoError(t, err)
	assert.Equal(t, 2, out1.ExpectedInputs())
}

func TestPropagateRecurrentUsesPreviousOutput(t *testing.T) {
	scope := newTestScope(t, identityNoBias)
	g := newTestGenome(t, scope,
		map[int]NodeType{0: InputNode, 1: OutputNode, 2: HiddenNode},
		[]testConn{
			{0, 0, 2, 1, true, false},
			{1, 2, 1, 1, true, false},
			{2, 2, 2, 0.5, true, true},
		})

	out, err := g.Propagate([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 1e-12)

	out, err = g.Propagate([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, out[0], 1e-12)

	g.ResetState()
	out, err = g.Propagate([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 1e-12)
}

func TestPropagateBiasModes(t *testing.T) {
	tests := []struct {
		mode BiasMode
		want float64
	}{
		{BiasWeightedNode, 1 + 0.5*2},
		{BiasDirectNode, 1 + 2},
		{BiasConstant, 1 + 2},
		{BiasDisabled, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			scope := newTestScope(t, func(c *Config) {
				c.Genome.ActivationFunction = "identity"
				c.Genome.BiasMode = tt.mode
				c.Genome.Bias = 2
			})
			g := newTestGenome(t, scope,
				map[int]NodeType{0: InputNode, 1: OutputNode, 2: BiasNode},
				[]testConn{
					{0, 0, 1, 1, true, false},
					{1, 2, 1, 0.5, true, false},
				})
			out, err := g.Propagate([]float64{1})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, out[0], 1e-12)
		})
	}
}

func TestPropagateUnreachedNodeKeepsOutput(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.ActivationFunction = "identity"
	})
	// Hidden node 3 is only fed by the bias node, so it never fires.
	g := newTestGenome(t, scope,
		map[int]NodeType{0: InputNode, 1: OutputNode, 2: BiasNode, 3: HiddenNode},
		[]testConn{
			{0, 0, 1, 1, true, false},
			{1, 2, 3, 1, true, false},
			{2, 3, 1, 1, true, false},
		})
	out, err := g.Propagate([]float64{2})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out[0], 1e-12)
	hidden, err := g.NodeByID(3)
	require.NoError(t, err)
	assert.Zero(t, hidden.LastOutput)
	assert.Zero(t, hidden.ExpectedInputs())
}

func TestFeedRejectsBiasNode(t *testing.T) {
	g, err := BuildGenome(newTestScope(t, nil))
	require.NoError(t, err)
	err = g.feed(g.BiasNodeGene(), 1)
	assert.True(t, errors.Is(err, ErrInvalidOperation))
	err = g.fire(g.BiasNodeGene())
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestNewGenomeRejectsInvalidConnections(t *testing.T) {
	scope := newTestScope(t, nil)
	nodes := func() []*NodeGene {
		return []*NodeGene{newNodeGene(0, InputNode), newNodeGene(1, OutputNode), newNodeGene(2, BiasNode)}
	}
	tests := []struct {
		name string
		conn ConnectionGene
	}{
		{"dangling", ConnectionGene{InNodeID: 0, OutNodeID: 9}},
		{"into input", ConnectionGene{InNodeID: 2, OutNodeID: 0}},
		{"into bias", ConnectionGene{InNodeID: 0, OutNodeID: 2}},
		{"out of output", ConnectionGene{InNodeID: 1, OutNodeID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.conn
			_, err := newGenome(scope, nodes(), []*ConnectionGene{&c})
			assert.True(t, errors.Is(err, ErrInvalidOperation))
		})
	}
}

func TestMutateAddNodeSingleConnection(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.InputSize = 1
		c.Genome.OutputSize = 1
		c.Genome.BiasMode = BiasDisabled
	})
	g, err := BuildGenome(scope)
	require.NoError(t, err)
	require.Len(t, g.Connections, 1)
	orig := g.Connections[0]
	origWeight := orig.Weight

	require.True(t, g.MutateAddNode())
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Connections, 3)
	assert.False(t, orig.Enabled)

	inToNew, newToOut := g.Connections[1], g.Connections[2]
	assert.Equal(t, orig.InNodeID, inToNew.InNodeID)
	assert.Equal(t, 1.0, inToNew.Weight)
	assert.Equal(t, inToNew.OutNodeID, newToOut.InNodeID)
	assert.Equal(t, orig.OutNodeID, newToOut.OutNodeID)
	assert.Equal(t, origWeight, newToOut.Weight)

	hidden, err := g.NodeByID(inToNew.OutNodeID)
	require.NoError(t, err)
	assert.Equal(t, HiddenNode, hidden.Type)
}

func TestMutateAddNodeSharesInnovationsWithinGeneration(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.InputSize = 1
		c.Genome.OutputSize = 1
		c.Genome.BiasMode = BiasDisabled
	})
	base, err := BuildGenome(scope)
	require.NoError(t, err)
	a, b := base.Copy(), base.Copy()

	require.True(t, a.MutateAddNode())
	require.True(t, b.MutateAddNode())
	for i := range a.Connections {
		assert.Equal(t, a.Connections[i].InnovationNumber, b.Connections[i].InnovationNumber)
	}
	assert.Equal(t, a.Nodes[2].ID, b.Nodes[2].ID)

	// The same split in a later generation gets fresh numbers.
	scope.Innovations.Reset()
	c := base.Copy()
	require.True(t, c.MutateAddNode())
	assert.NotEqual(t, a.Nodes[2].ID, c.Nodes[2].ID)
	assert.Greater(t, c.Connections[2].InnovationNumber, a.Connections[2].InnovationNumber)
}

func TestMutateAddNodeNoEnabledConnection(t *testing.T) {
	scope := newTestScope(t, func(c *Config) { c.Genome.BiasMode = BiasDisabled })
	g, err := BuildGenome(scope)
	require.NoError(t, err)
	for _, c := range g.Connections {
		c.Enabled = false
	}
	assert.False(t, g.MutateAddNode())
}

func TestMutateAddConnectionExhausted(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.BiasMode = BiasDisabled
		c.Genome.AllowRecurrentConnections = false
	})
	// Fully connected input->output genome: nothing left to add.
	g, err := BuildGenome(scope)
	require.NoError(t, err)
	assert.False(t, g.MutateAddConnection())
	assert.Len(t, g.Connections, 2)
}

func TestMutateAddConnectionRespectsRecurrenceSetting(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.AllowRecurrentConnections = false
	})
	g, err := BuildGenome(scope)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		g.MutateAddNode()
		g.MutateAddConnection()
	}
	for _, c := range g.Connections {
		assert.False(t, c.Recurrent, "connection %v", c)
	}
}

func TestMutateAddConnectionFlagsRecurrence(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Genome.AllowRecurrentConnections = true
		c.Genome.RecurrentConnectionRate = 1
	})
	g, err := BuildGenome(scope)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		g.MutateAddNode()
		g.MutateAddConnection()
	}
	want := make([]bool, len(g.Connections))
	for i, c := range g.Connections {
		want[i] = c.Recurrent
	}
	g.CheckForRecurrentConnections()
	for i, c := range g.Connections {
		assert.Equal(t, want[i], c.Recurrent, "connection %v", c)
	}
}

func TestCheckIfRecurrent(t *testing.T) {
	scope := newTestScope(t, identityNoBias)
	g := newTestGenome(t, scope,
		map[int]NodeType{0: InputNode, 1: OutputNode, 2: HiddenNode, 3: HiddenNode},
		[]testConn{
			{0, 0, 2, 1, true, false},
			{1, 2, 3, 1, true, false},
			{2, 3, 1, 1, true, false},
		})

	tests := []struct {
		name     string
		from, to int
		want     bool
	}{
		{"self loop", 2, 2, true},
		{"from output", 1, 2, true},
		{"closes cycle", 3, 2, true},
		{"forward skip", 0, 3, false},
		{"forward to output", 2, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.CheckIfRecurrent(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := g.CheckIfRecurrent(0, 42)
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestCheckForRecurrentConnectionsFixesFlags(t *testing.T) {
	scope := newTestScope(t, identityNoBias)
	g := newTestGenome(t, scope,
		map[int]NodeType{0: InputNode, 1: OutputNode, 2: HiddenNode, 3: HiddenNode},
		[]testConn{
			{0, 0, 2, 1, true, true}, // wrongly flagged
			{1, 2, 3, 1, true, false},
			{2, 3, 2, 1, true, false},
			{3, 3, 1, 1, true, false},
		})
	g.CheckForRecurrentConnections()

	// Connections are checked in order, so the first edge of the 2 <-> 3
	// cycle is the one that becomes recurrent.
	assert.False(t, g.Connections[0].Recurrent)
	assert.True(t, g.Connections[1].Recurrent)
	assert.False(t, g.Connections[2].Recurrent)
	assert.False(t, g.Connections[3].Recurrent)

	node3, err := g.NodeByID(3)
	require.NoError(t, err)
	assert.Len(t, node3.incomingRecurrent, 1)

	// Node 3 is now only reachable through the recurrent edge, so neither it
	// nor the output fires.
	out, err := g.Propagate([]float64{1})
	require.NoError(t, err)
	assert.Zero(t, out[0])
	node2, err := g.NodeByID(2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, node2.LastOutput, 1e-12)
}

func TestMutateWeightsClamps(t *testing.T) {
	scope := newTestScope(t, func(c *Config) {
		c.Mutation.ReinitializeWeightRate = 0
		c.Mutation.MinPerturb = 10
		c.Mutation.MaxPerturb = 20
	})
	g, err := BuildGenome(scope)
	require.NoError(t, err)
	g.MutateWeights()
	for _, c := range g.Connections {
		assert.Equal(t, scope.Config.Genome.MaxWeight, c.Weight)
	}
}

func TestCopyAndEquals(t *testing.T) {
	g, err := BuildGenome(newTestScope(t, nil))
	require.NoError(t, err)
	g.Fitness = 0.7

	cp := g.Copy()
	assert.NotEqual(t, g.ID, cp.ID)
	assert.Equal(t, g.Fitness, cp.Fitness)
	assert.True(t, g.Equals(cp))

	cp.Connections[0].Weight += 1
	assert.False(t, g.Equals(cp))
	assert.NotEqual(t, g.Connections[0].Weight, cp.Connections[0].Weight)
}

func TestPrune(t *testing.T) {
	scope := newTestScope(t, identityNoBias)
	g := newTestGenome(t, scope,
		map[int]NodeType{0: InputNode, 1: OutputNode, 2: HiddenNode, 3: HiddenNode, 4: HiddenNode},
		[]testConn{
			{0, 0, 1, 1, false, false},
			{1, 0, 2, 1, true, false},
			{2, 2, 1, 1, true, false},
			{3, 0, 3, 1, true, false}, // 3 is a dead end
			{4, 4, 3, 1, true, false}, // 4 has no inputs
		})

	g.Prune(false)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Connections, 3)

	g.Prune(true)
	assert.Len(t, g.Connections, 2)
	for _, c := range g.Connections {
		assert.True(t, c.Enabled)
	}
}

func TestCrossoverDifferentScopes(t *testing.T) {
	a, err := BuildGenome(newTestScope(t, nil))
	require.NoError(t, err)
	b, err := BuildGenome(newTestScope(t, nil))
	require.NoError(t, err)
	_, err = a.Crossover(b)
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}
