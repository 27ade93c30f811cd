package neat

// BuildGenome creates the minimal genome for the scope's configuration:
// every input connected to every output, plus a bias node connected to
// every output when the bias mode uses one and connect_bias is set. Node ids
// and innovation numbers come from the scope's registry, so a population
// builds one base genome and copies it.
func BuildGenome(scope *Scope) (*Genome, error) {
	gc := &scope.Config.Genome
	reg := scope.Innovations

	nodes := make([]*NodeGene, 0, gc.InputSize+gc.OutputSize+1)
	for i := 0; i < gc.InputSize; i++ {
		nodes = append(nodes, newNodeGene(reg.NextNodeID(), InputNode))
	}
	for i := 0; i < gc.OutputSize; i++ {
		nodes = append(nodes, newNodeGene(reg.NextNodeID(), OutputNode))
	}
	var bias *NodeGene
	if gc.BiasMode.UsesNode() {
		bias = newNodeGene(reg.NextNodeID(), BiasNode)
		nodes = append(nodes, bias)
	}

	inputs := nodes[:gc.InputSize]
	outputs := nodes[gc.InputSize : gc.InputSize+gc.OutputSize]

	conns := make([]*ConnectionGene, 0, (gc.InputSize+1)*gc.OutputSize)
	connect := func(in, out *NodeGene) {
		conns = append(conns, &ConnectionGene{
			InnovationNumber: reg.TrackInnovation(in.ID, out.ID),
			InNodeID:         in.ID,
			OutNodeID:        out.ID,
			Weight:           scope.Weights.Sample(),
			Enabled:          true,
		})
	}
	for _, in := range inputs {
		for _, out := range outputs {
			connect(in, out)
		}
	}
	if bias != nil && gc.ConnectBias {
		for _, out := range outputs {
			connect(bias, out)
		}
	}

	return newGenome(scope, nodes, conns)
}
