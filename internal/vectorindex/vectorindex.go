// Package vectorindex implements the dense-vector half of the compound
// search index (C7): per-tenant kNN over text and caption embeddings,
// backed by github.com/coder/hnsw. Tenant isolation is structural — each
// tenant gets its own pair of graphs — rather than a post-hoc filter, so a
// kNN search never needs to over-fetch to survive tenant filtering.
package vectorindex

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// Hit is one kNN result: a chunk ID and a [0, 1] similarity score derived
// from cosine distance (see cosineDistanceToScore).
type Hit struct {
	ChunkID string
	Score   float32
}

// Index holds one (text, caption) pair of HNSW graphs per tenant.
type Index struct {
	mu         sync.RWMutex
	dimText    int
	dimCaption int
	tenants    map[string]*tenantGraphs
}

type tenantGraphs struct {
	text    *graph
	caption *graph
}

// graph wraps a single hnsw.Graph plus its string<->uint64 ID mapping;
// grounded on internal/store/hnsw.go's HNSWStore, generalized to be
// reusable across the text and caption embedding fields.
type graph struct {
	mu      sync.RWMutex
	g       *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	dim     int
}

func newGraph(dim int) *graph {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 32
	g.EfSearch = 64
	g.Ml = 0.25
	return &graph{g: g, idMap: map[string]uint64{}, keyMap: map[uint64]string{}, dim: dim}
}

func (gr *graph) upsert(id string, vec []float32) error {
	if len(vec) != gr.dim {
		return fmt.Errorf("vectorindex: dimension mismatch, expected %d got %d", gr.dim, len(vec))
	}

	gr.mu.Lock()
	defer gr.mu.Unlock()

	if existing, ok := gr.idMap[id]; ok {
		delete(gr.keyMap, existing) // lazy delete: coder/hnsw cannot safely drop the last node
		delete(gr.idMap, id)
	}

	key := gr.nextKey
	gr.nextKey++

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	gr.g.Add(hnsw.MakeNode(key, normalized))
	gr.idMap[id] = key
	gr.keyMap[key] = id
	return nil
}

func (gr *graph) delete(ids []string) {
	gr.mu.Lock()
	defer gr.mu.Unlock()
	for _, id := range ids {
		if key, ok := gr.idMap[id]; ok {
			delete(gr.keyMap, key)
			delete(gr.idMap, id)
		}
	}
}

func (gr *graph) search(query []float32, k int) ([]Hit, error) {
	if len(query) != gr.dim {
		return nil, fmt.Errorf("vectorindex: dimension mismatch, expected %d got %d", gr.dim, len(query))
	}

	gr.mu.RLock()
	defer gr.mu.RUnlock()

	if gr.g.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	nodes := gr.g.Search(normalized, k)
	hits := make([]Hit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := gr.keyMap[node.Key]
		if !ok {
			continue
		}
		distance := gr.g.Distance(normalized, node.Value)
		hits = append(hits, Hit{ChunkID: id, Score: cosineDistanceToScore(distance)})
	}
	return hits, nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// cosineDistanceToScore converts coder/hnsw's [0,2] cosine distance to a
// [0,1] similarity score.
func cosineDistanceToScore(distance float32) float32 {
	return 1.0 - distance/2.0
}

// New constructs an Index. dimText/dimCaption must match the embedding
// client's D_t/D_c; a vector of the wrong dimension is rejected.
func New(dimText, dimCaption int) *Index {
	return &Index{dimText: dimText, dimCaption: dimCaption, tenants: map[string]*tenantGraphs{}}
}

func (ix *Index) tenant(tenantID string) *tenantGraphs {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	t, ok := ix.tenants[tenantID]
	if !ok {
		t = &tenantGraphs{text: newGraph(ix.dimText), caption: newGraph(ix.dimCaption)}
		ix.tenants[tenantID] = t
	}
	return t
}

// Upsert indexes a chunk's text and/or caption embedding under tenantID.
// Either vector may be nil/empty to skip that field (e.g. a chunk whose
// embedding is missing, or a non-image chunk with no caption).
func (ix *Index) Upsert(tenantID, chunkID string, textVec, captionVec []float32) error {
	t := ix.tenant(tenantID)
	if len(textVec) > 0 {
		if err := t.text.upsert(chunkID, textVec); err != nil {
			return err
		}
	}
	if len(captionVec) > 0 {
		if err := t.caption.upsert(chunkID, captionVec); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes chunkIDs from both graphs of tenantID.
func (ix *Index) Delete(tenantID string, chunkIDs []string) {
	ix.mu.Lock()
	t, ok := ix.tenants[tenantID]
	ix.mu.Unlock()
	if !ok {
		return
	}
	t.text.delete(chunkIDs)
	t.caption.delete(chunkIDs)
}

// SearchText runs kNN over tenantID's text-embedding graph.
func (ix *Index) SearchText(tenantID string, query []float32, k int) ([]Hit, error) {
	return ix.tenant(tenantID).text.search(query, k)
}

// SearchCaption runs kNN over tenantID's caption-embedding graph.
func (ix *Index) SearchCaption(tenantID string, query []float32, k int) ([]Hit, error) {
	return ix.tenant(tenantID).caption.search(query, k)
}

// MissingChunks returns the subset of chunkIDs absent from tenantID's text
// AND caption graphs alike (present in neither), for consistency checks
// against what the resource store believes should be indexed.
func (ix *Index) MissingChunks(tenantID string, chunkIDs []string) []string {
	t := ix.tenant(tenantID)
	t.text.mu.RLock()
	t.caption.mu.RLock()
	defer t.text.mu.RUnlock()
	defer t.caption.mu.RUnlock()

	var missing []string
	for _, id := range chunkIDs {
		_, inText := t.text.idMap[id]
		_, inCaption := t.caption.idMap[id]
		if !inText && !inCaption {
			missing = append(missing, id)
		}
	}
	return missing
}
