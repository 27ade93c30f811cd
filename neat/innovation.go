package neat

import "sync"

// InnovationRegistry assigns innovation numbers to new connections and node
// ids to split connections for one population. Identical structural mutations
// within a generation resolve to identical numbers; Reset forgets the
// mappings between generations while the counters keep increasing.
//
// Every call takes the registry lock, so genomes may be mutated concurrently.
type InnovationRegistry struct {
	mu sync.Mutex

	connections map[ConnectionKey]int
	splits      map[ConnectionKey]int

	nextInnovation int
	nextNodeID     int
}

// SplitInnovation describes the ids assigned to an add-node mutation.
type SplitInnovation struct {
	NewNodeID   int
	InToNew     int // innovation number of source -> new node
	NewToOut    int // innovation number of new node -> target
	SourceID    int
	TargetID    int
	NewNodeSeen bool // true if the split had already been registered this generation
}

// NewInnovationRegistry creates an empty registry. Innovation numbers and node ids both start at 0.
func NewInnovationRegistry() *InnovationRegistry {
	return &InnovationRegistry{
		connections: make(map[ConnectionKey]int),
		splits:      make(map[ConnectionKey]int),
	}
}

// Reset forgets this generation's mutations. Counters are not rewound.
func (r *InnovationRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.connections)
	clear(r.splits)
}

// TrackInnovation returns the innovation number for a connection from inNodeID to outNodeID.
func (r *InnovationRegistry) TrackInnovation(inNodeID, outNodeID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackLocked(ConnectionKey{InNodeID: inNodeID, OutNodeID: outNodeID})
}

func (r *InnovationRegistry) trackLocked(key ConnectionKey) int {
	if n, ok := r.connections[key]; ok {
		return n
	}
	n := r.nextInnovation
	r.nextInnovation++
	r.connections[key] = n
	return n
}

// TrackAddNodeInnovation returns the node id and the two innovation numbers
// for splitting the connection inNodeID -> outNodeID.
func (r *InnovationRegistry) TrackAddNodeInnovation(inNodeID, outNodeID int) SplitInnovation {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ConnectionKey{InNodeID: inNodeID, OutNodeID: outNodeID}
	nodeID, seen := r.splits[key]
	if !seen {
		nodeID = r.nextNodeID
		r.nextNodeID++
		r.splits[key] = nodeID
	}
	return SplitInnovation{
		NewNodeID:   nodeID,
		InToNew:     r.trackLocked(ConnectionKey{InNodeID: inNodeID, OutNodeID: nodeID}),
		NewToOut:    r.trackLocked(ConnectionKey{InNodeID: nodeID, OutNodeID: outNodeID}),
		SourceID:    inNodeID,
		TargetID:    outNodeID,
		NewNodeSeen: seen,
	}
}

// NextNodeID allocates a fresh node id.
func (r *InnovationRegistry) NextNodeID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextNodeID
	r.nextNodeID++
	return id
}

// Observe advances the counters past ids that entered the population from
// outside the registry, e.g. a genome loaded from disk.
func (r *InnovationRegistry) Observe(maxNodeID, maxInnovation int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxNodeID >= r.nextNodeID {
		r.nextNodeID = maxNodeID + 1
	}
	if maxInnovation >= r.nextInnovation {
		r.nextInnovation = maxInnovation + 1
	}
}

// InnovationCount returns how many innovation numbers have been assigned so far.
func (r *InnovationRegistry) InnovationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextInnovation
}
