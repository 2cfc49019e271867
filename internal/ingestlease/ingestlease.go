// Package ingestlease enforces the ingestion pipeline's per-resource
// concurrency contract: one ingestion in flight per (tenant_id, uri) pair
// at a time; different resources ingest independently. It is the
// in-process analogue of the teacher's cross-process flock-based
// FileLock (internal/embed/lock.go), keyed per-resource instead of
// per-directory since contention here is per-(tenant, uri), not global.
package ingestlease

import (
	"sync"

	apperrors "github.com/docsearch-core/docsearch/internal/errors"
)

// Table holds one mutex per (tenant_id, uri) pair, created lazily and
// reference-counted so idle entries don't accumulate forever.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	refCount int
}

// New constructs an empty lease table.
func New() *Table {
	return &Table{entries: make(map[string]*entry)}
}

func key(tenantID, uri string) string {
	return tenantID + "\x00" + uri
}

// TryAcquire attempts to acquire the lease for (tenantID, uri) without
// blocking. It returns a release function on success, or a Conflict error
// (ERR_403_CONFLICT) if another ingestion already holds it.
func (t *Table) TryAcquire(tenantID, uri string) (release func(), err error) {
	k := key(tenantID, uri)

	t.mu.Lock()
	e, ok := t.entries[k]
	if !ok {
		e = &entry{}
		t.entries[k] = e
	}
	e.refCount++
	t.mu.Unlock()

	if !e.mu.TryLock() {
		t.release(k, e)
		return nil, apperrors.Conflict("resource is already being ingested", nil).
			WithDetail("tenant_id", tenantID).WithDetail("uri", uri)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		e.mu.Unlock()
		t.release(k, e)
	}, nil
}

// Acquire blocks until the lease for (tenantID, uri) is available.
func (t *Table) Acquire(tenantID, uri string) (release func()) {
	k := key(tenantID, uri)

	t.mu.Lock()
	e, ok := t.entries[k]
	if !ok {
		e = &entry{}
		t.entries[k] = e
	}
	e.refCount++
	t.mu.Unlock()

	e.mu.Lock()

	released := false
	return func() {
		if released {
			return
		}
		released = true
		e.mu.Unlock()
		t.release(k, e)
	}
}

// release drops the table's reference to e, deleting the entry once
// nothing else holds or is waiting on it.
func (t *Table) release(k string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.refCount--
	if e.refCount <= 0 {
		delete(t.entries, k)
	}
}

// Len returns the number of currently tracked (tenant, uri) pairs, for
// observability/tests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
