package database

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"
)

// maxNeighbors is the HNSW M parameter.
const maxNeighbors = 16

// Candidate is one identify search hit.
type Candidate struct {
	DescriptorID int64
	EmployeeID   string
	Distance     float64
}

// IdentifyIndex is an in-memory HNSW index over every employee's primary
// descriptor. Kiosks use it to answer "whose face is this" without the
// employee stating an ID first. The index is advisory: a hit still goes
// through the regular matcher against the employee's full enrollment.
type IdentifyIndex struct {
	mu           sync.RWMutex
	graph        *hnsw.Graph[int64]
	idToEmployee map[int64]string
}

// NewIdentifyIndex creates an empty identify index.
func NewIdentifyIndex() *IdentifyIndex {
	return &IdentifyIndex{
		idToEmployee: make(map[int64]string),
	}
}

func newIdentifyGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given primary descriptors.
func (ix *IdentifyIndex) Build(descriptors []StoredDescriptor) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(descriptors) == 0 {
		ix.graph = nil
		ix.idToEmployee = make(map[int64]string)
		return nil
	}

	g := newIdentifyGraph()
	ix.idToEmployee = make(map[int64]string, len(descriptors))

	for i := range descriptors {
		d := &descriptors[i]
		if len(d.Vector) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(d.ID, d.Vector))
		ix.idToEmployee[d.ID] = d.EmployeeID
	}

	ix.graph = g
	return nil
}

// Add inserts or refreshes a single primary descriptor.
func (ix *IdentifyIndex) Add(d StoredDescriptor) {
	if len(d.Vector) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.graph == nil {
		ix.graph = newIdentifyGraph()
	}
	ix.graph.Add(hnsw.MakeNode(d.ID, d.Vector))
	ix.idToEmployee[d.ID] = d.EmployeeID
}

// RemoveEmployee drops an employee from search results. The HNSW graph keeps
// the node; the lookup map filters it out.
func (ix *IdentifyIndex) RemoveEmployee(employeeID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for id, emp := range ix.idToEmployee {
		if emp == employeeID {
			delete(ix.idToEmployee, id)
		}
	}
}

// Search returns up to k candidates nearest to the query descriptor, closest
// first. Nodes without a live employee mapping are filtered out.
func (ix *IdentifyIndex) Search(query []float32, k int) ([]Candidate, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil {
		return nil, errors.New("identify index not initialized")
	}

	neighbors := ix.graph.Search(query, k)

	out := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		emp, ok := ix.idToEmployee[n.Key]
		if !ok {
			continue
		}
		out = append(out, Candidate{
			DescriptorID: n.Key,
			EmployeeID:   emp,
			Distance:     float64(hnsw.EuclideanDistance(query, n.Value)),
		})
	}
	return out, nil
}

// Count returns the number of searchable descriptors.
func (ix *IdentifyIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.idToEmployee)
}

// Save persists the graph to the configured path. A nil graph removes the
// file instead.
func (ix *IdentifyIndex) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if path == "" {
		return nil
	}
	if ix.graph == nil {
		_ = os.Remove(path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create identify index file: %w", err)
	}
	defer f.Close()

	if err := ix.graph.Export(f); err != nil {
		return fmt.Errorf("exporting identify graph: %w", err)
	}
	return nil
}

// Load reads a persisted graph. The employee mapping is not stored with the
// graph and must be repopulated from the store via Rebuild. A missing file is
// not an error; the bool reports whether a graph was loaded.
func (ix *IdentifyIndex) Load(path string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return false, fmt.Errorf("failed to load identify index: %w", err)
	}
	ix.graph = saved.Graph
	return true, nil
}

// Rebuild reconciles a loaded graph with the store's primary descriptors: the
// employee mapping is repopulated, and descriptors enrolled after the last
// save are inserted into the graph.
func (ix *IdentifyIndex) Rebuild(descriptors []StoredDescriptor) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.idToEmployee = make(map[int64]string, len(descriptors))
	for i := range descriptors {
		d := &descriptors[i]
		if len(d.Vector) == 0 {
			continue
		}
		ix.idToEmployee[d.ID] = d.EmployeeID
		if ix.graph == nil {
			ix.graph = newIdentifyGraph()
		}
		if _, ok := ix.graph.Lookup(d.ID); !ok {
			ix.graph.Add(hnsw.MakeNode(d.ID, d.Vector))
		}
	}
}
