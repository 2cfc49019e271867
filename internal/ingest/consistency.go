package ingest

import "context"

// ChunkLister is the resource store's half of a consistency check: the
// set of chunk IDs it believes exist for a resource.
type ChunkLister interface {
	ChunkIDsByResource(ctx context.Context, tenantID, resourceID string) ([]string, error)
}

// LexicalIDLister is the lexical index's half: which of those chunk IDs
// it actually has indexed for that resource.
type LexicalIDLister interface {
	ChunkIDsForResource(ctx context.Context, tenantID, resourceID string) ([]string, error)
}

// VectorIDLister is the vector index's half: which of a candidate ID
// list is missing from both its text and caption graphs.
type VectorIDLister interface {
	MissingChunks(tenantID string, chunkIDs []string) []string
}

// Report names the chunk IDs a resource's store record has that its
// search indexes don't yet reflect, split by which index is behind.
type Report struct {
	ResourceID         string
	MissingFromLexical []string
	MissingFromVector  []string
}

// ConsistencyChecker compares a resource's persisted chunk IDs against
// the lexical and vector indexes, surfacing gaps left by a non-fatal
// index-update failure (see Pipeline.Ingest's step 7) or an embedding
// backfill still in flight. It never repairs anything itself — callers
// decide whether to re-index, log, or alert on what it reports.
type ConsistencyChecker struct {
	store   ChunkLister
	lexical LexicalIDLister
	vector  VectorIDLister
}

func NewConsistencyChecker(store ChunkLister, lexical LexicalIDLister, vector VectorIDLister) *ConsistencyChecker {
	return &ConsistencyChecker{store: store, lexical: lexical, vector: vector}
}

// Check reports the gap between resourceID's persisted chunks and what
// the lexical/vector indexes actually hold for it.
func (c *ConsistencyChecker) Check(ctx context.Context, tenantID, resourceID string) (Report, error) {
	report := Report{ResourceID: resourceID}

	persisted, err := c.store.ChunkIDsByResource(ctx, tenantID, resourceID)
	if err != nil {
		return report, err
	}
	if len(persisted) == 0 {
		return report, nil
	}

	if c.lexical != nil {
		indexed, err := c.lexical.ChunkIDsForResource(ctx, tenantID, resourceID)
		if err != nil {
			return report, err
		}
		report.MissingFromLexical = diff(persisted, indexed)
	}

	if c.vector != nil {
		report.MissingFromVector = c.vector.MissingChunks(tenantID, persisted)
	}

	return report, nil
}

// diff returns the elements of want not present in have.
func diff(want, have []string) []string {
	present := make(map[string]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
