package neat

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

type nodeGeneJSON struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

type connectionGeneJSON struct {
	InnovationNumber int     `json:"innovationNumber"`
	InNodeID         int     `json:"inNodeId"`
	OutNodeID        int     `json:"outNodeId"`
	Enabled          bool    `json:"enabled"`
	Weight           float64 `json:"weight"`
	Recurrent        bool    `json:"recurrent"`
}

type genomeJSON struct {
	ID              int                  `json:"id"`
	NodeGenes       []nodeGeneJSON       `json:"nodeGenes"`
	ConnectionGenes []connectionGeneJSON `json:"connectionGenes"`
	Fitness         float64              `json:"fitness"`
	PopulationID    string               `json:"populationId"`
}

// MarshalJSON encodes the genome with its nodes, connections, fitness and
// the id of the scope it belongs to.
func (g *Genome) MarshalJSON() ([]byte, error) {
	out := genomeJSON{
		ID:              g.ID,
		NodeGenes:       make([]nodeGeneJSON, len(g.Nodes)),
		ConnectionGenes: make([]connectionGeneJSON, len(g.Connections)),
		Fitness:         g.Fitness,
	}
	if g.scope != nil {
		out.PopulationID = g.scope.ID
	}
	for i, n := range g.Nodes {
		out.NodeGenes[i] = nodeGeneJSON{ID: n.ID, Type: n.Type.String()}
	}
	for i, c := range g.Connections {
		out.ConnectionGenes[i] = connectionGeneJSON{
			InnovationNumber: c.InnovationNumber,
			InNodeID:         c.InNodeID,
			OutNodeID:        c.OutNodeID,
			Enabled:          c.Enabled,
			Weight:           c.Weight,
			Recurrent:        c.Recurrent,
		}
	}
	return json.Marshal(out)
}

// ReadGenome decodes a genome written by MarshalJSON into scope. Unknown node
// types and connections to missing nodes are rejected with
// ErrInvalidOperation. Recurrent flags are recomputed from the loaded graph,
// and the scope's registry is advanced past the loaded ids.
func ReadGenome(r io.Reader, scope *Scope) (*Genome, error) {
	var in genomeJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding genome: %w", err)
	}

	nodes := make([]*NodeGene, len(in.NodeGenes))
	for i, n := range in.NodeGenes {
		t, err := ParseNodeType(n.Type)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n.ID, err)
		}
		nodes[i] = newNodeGene(n.ID, t)
	}
	conns := make([]*ConnectionGene, len(in.ConnectionGenes))
	for i, c := range in.ConnectionGenes {
		conns[i] = &ConnectionGene{
			InnovationNumber: c.InnovationNumber,
			InNodeID:         c.InNodeID,
			OutNodeID:        c.OutNodeID,
			Weight:           c.Weight,
			Enabled:          c.Enabled,
			Recurrent:        c.Recurrent,
		}
	}

	g, err := newGenome(scope, nodes, conns)
	if err != nil {
		return nil, err
	}
	g.CheckForRecurrentConnections()
	g.Fitness = in.Fitness
	scope.Innovations.Observe(g.MaxIDs())
	return g, nil
}

// Save writes the genome as indented JSON to filePath, gzip-compressed when
// the path ends in .gz.
func (g *Genome) Save(filePath string) (err error) {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create genome file '%s': %w", filePath, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	var w io.Writer = file
	if strings.HasSuffix(filePath, ".gz") {
		gzWriter := gzip.NewWriter(file)
		defer func() {
			if cerr := gzWriter.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		w = gzWriter
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("failed to encode genome %d: %w", g.ID, err)
	}
	return nil
}

// LoadGenomeFile reads a genome saved with Save into scope.
func LoadGenomeFile(filePath string, scope *Scope) (*Genome, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open genome file '%s': %w", filePath, err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(filePath, ".gz") {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for '%s': %w", filePath, err)
		}
		defer gzReader.Close()
		r = gzReader
	}

	g, err := ReadGenome(r, scope)
	if err != nil {
		return nil, fmt.Errorf("loading genome from '%s': %w", filePath, err)
	}
	return g, nil
}
