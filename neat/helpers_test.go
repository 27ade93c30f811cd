package neat

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestScope returns a scope over DefaultConfig with a fixed seed. edit may
// adjust the config before it is validated.
func newTestScope(t *testing.T, edit func(*Config)) *Scope {
	t.Helper()
	cfg := DefaultConfig()
	if edit != nil {
		edit(cfg)
	}
	scope, err := NewScope(cfg, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	scope.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return scope
}

type testConn struct {
	innov, in, out int
	weight         float64
	enabled        bool
	recurrent      bool
}

// newTestGenome assembles a genome from explicit genes.
func newTestGenome(t *testing.T, scope *Scope, nodes map[int]NodeType, conns []testConn) *Genome {
	t.Helper()
	ns := make([]*NodeGene, 0, len(nodes))
	for id := 0; len(ns) < len(nodes); id++ {
		if typ, ok := nodes[id]; ok {
			ns = append(ns, newNodeGene(id, typ))
		}
	}
	cs := make([]*ConnectionGene, len(conns))
	for i, c := range conns {
		cs[i] = &ConnectionGene{
			InnovationNumber: c.innov,
			InNodeID:         c.in,
			OutNodeID:        c.out,
			Weight:           c.weight,
			Enabled:          c.enabled,
			Recurrent:        c.recurrent,
		}
	}
	g, err := newGenome(scope, ns, cs)
	require.NoError(t, err)
	return g
}

func identityNoBias(cfg *Config) {
	cfg.Genome.ActivationFunction = "identity"
	cfg.Genome.BiasMode = BiasDisabled
}
