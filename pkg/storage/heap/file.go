// Package heap implements the heap file: an ordered, non-empty linked list
// of slotted pages routing record operations to the right page, chaining
// new pages when space runs out, and exposing a forward iterator. Grounded
// on the reference implementation's storage/heap package for the chain
// walk and on original_source/table_heap.h for the create-vs-open factory
// split and the optional post-insert callback.
package heap

import (
	"github.com/pkg/errors"
	"github.com/utkarsh5026/heapcore/pkg/buffer"
	"github.com/utkarsh5026/heapcore/pkg/config"
	"github.com/utkarsh5026/heapcore/pkg/dberrors"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
	"github.com/utkarsh5026/heapcore/pkg/storage/page"
	"github.com/utkarsh5026/heapcore/pkg/tuple"
	"github.com/utkarsh5026/heapcore/pkg/txn"
	"github.com/utkarsh5026/heapcore/pkg/wal"
	"golang.org/x/sync/errgroup"
)

// HeapFile owns neither its pages nor the buffer pool: it borrows pinned
// page frames for the duration of a single operation and releases them
// before returning. Its own state is immutable after construction.
type HeapFile struct {
	firstPageID primitives.PageID
	pool        buffer.Manager
	log         wal.LogManager // nil in unlogged mode
	pageCfg     config.PageConfig
}

// CreateHeapFile allocates one empty page and returns a heap file backed
// by it — the "create" constructor in the reference implementation's
// double-constructor pattern, here a distinct factory rather than an
// overload.
func CreateHeapFile(pool buffer.Manager, cfg config.HeapFileConfig, pageCfg config.PageConfig, log wal.LogManager) (*HeapFile, error) {
	id, data, err := pool.NewPage()
	if err != nil {
		return nil, dberrors.Wrap(err, dberrors.OutOfMemory, "heap.Create", "allocating the first page")
	}

	view := page.NewView(data)
	view.Init(id, primitives.InvalidPageID)

	if err := pool.UnpinPage(id, true); err != nil {
		return nil, err
	}

	return newHeapFile(id, pool, cfg, pageCfg, log), nil
}

// OpenHeapFile wraps an existing chain whose head is firstPageID — the
// "open" constructor in the reference implementation's double-constructor
// pattern.
func OpenHeapFile(firstPageID primitives.PageID, pool buffer.Manager, cfg config.HeapFileConfig, pageCfg config.PageConfig, log wal.LogManager) *HeapFile {
	return newHeapFile(firstPageID, pool, cfg, pageCfg, log)
}

func newHeapFile(firstPageID primitives.PageID, pool buffer.Manager, cfg config.HeapFileConfig, pageCfg config.PageConfig, log wal.LogManager) *HeapFile {
	h := &HeapFile{firstPageID: firstPageID, pool: pool, pageCfg: pageCfg}
	if cfg.Logged {
		h.log = log
	}
	return h
}

// GetFirstPageId returns the chain's head, for callers that persist a
// catalog entry pointing at this table's storage.
func (h *HeapFile) GetFirstPageId() primitives.PageID { return h.firstPageID }

// maxTupleSize is the largest payload a freshly-initialized page can ever
// hold: the whole page minus the header and one slot directory entry.
func (h *HeapFile) maxTupleSize() int {
	return h.pageCfg.PageSize - page.HeaderSize - page.SlotSize
}

// InsertTuple walks the chain from the head, attempting InsertTuple on
// each page in order; on a page that reports "won't fit", it advances to
// the next page if one exists, or allocates and splices in a new tail page
// otherwise. callback, if non-nil, is invoked with the new RID before the
// inserting page's pin is released, so a two-phase-locking caller can
// acquire a row lock before the page becomes visible to others; it must
// not re-enter the heap file.
func (h *HeapFile) InsertTuple(t *tuple.Tuple, txnCtx txn.Context, callback func(primitives.RID)) (primitives.RID, error) {
	dberrors.Assert(t.Size() > 0, "heap: cannot insert an empty tuple")

	if t.Size() > h.maxTupleSize() {
		return primitives.InvalidRID, dberrors.New(dberrors.TupleTooLarge, "heap.InsertTuple",
			errors.Errorf("tuple of %d bytes can never fit a %d-byte page", t.Size(), h.pageCfg.PageSize).Error())
	}

	currentID := h.firstPageID
	for {
		data, err := h.pool.FetchPage(currentID)
		if err != nil {
			return primitives.InvalidRID, dberrors.Wrap(err, dberrors.OutOfMemory, "heap.InsertTuple", "fetching page")
		}
		view := page.NewView(data)

		if rid, ok := view.InsertTuple(t, txnCtx, h.log); ok {
			if callback != nil {
				callback(rid)
			}
			if err := h.pool.UnpinPage(currentID, true); err != nil {
				return primitives.InvalidRID, err
			}
			return rid, nil
		}

		if next := view.NextPageID(); next != primitives.InvalidPageID {
			if err := h.pool.UnpinPage(currentID, false); err != nil {
				return primitives.InvalidRID, err
			}
			currentID = next
			continue
		}

		newID, newData, err := h.pool.NewPage()
		if err != nil {
			_ = h.pool.UnpinPage(currentID, false)
			return primitives.InvalidRID, dberrors.Wrap(err, dberrors.OutOfMemory, "heap.InsertTuple", "allocating a new page")
		}
		newView := page.NewView(newData)
		newView.Init(newID, currentID)
		view.SetNextPageID(newID)

		if err := h.pool.UnpinPage(currentID, true); err != nil {
			return primitives.InvalidRID, err
		}

		rid, ok := newView.InsertTuple(t, txnCtx, h.log)
		dberrors.Assert(ok, "heap: tuple rejected by a freshly initialized page")

		if callback != nil {
			callback(rid)
		}
		if err := h.pool.UnpinPage(newID, true); err != nil {
			return primitives.InvalidRID, err
		}
		return rid, nil
	}
}

// MarkDelete pins rid's page, delegates, and unpins dirty on success.
func (h *HeapFile) MarkDelete(rid primitives.RID, txnCtx txn.Context) error {
	data, err := h.pool.FetchPage(rid.PageID)
	if err != nil {
		return dberrors.Wrap(err, dberrors.InvalidRID, "heap.MarkDelete", "fetching page")
	}
	view := page.NewView(data)

	if !view.MarkDelete(rid, txnCtx, h.log) {
		_ = h.pool.UnpinPage(rid.PageID, false)
		return dberrors.New(dberrors.InvalidRID, "heap.MarkDelete", "slot is out of range or already free")
	}
	return h.pool.UnpinPage(rid.PageID, true)
}

// UpdateTuple pins rid's page and delegates. A page that reports the new
// image no longer fits surfaces DOES_NOT_FIT so the caller can choose to
// mark-delete and insert elsewhere instead.
func (h *HeapFile) UpdateTuple(newTuple *tuple.Tuple, rid primitives.RID, txnCtx txn.Context) (*tuple.Tuple, error) {
	data, err := h.pool.FetchPage(rid.PageID)
	if err != nil {
		return nil, dberrors.Wrap(err, dberrors.InvalidRID, "heap.UpdateTuple", "fetching page")
	}
	view := page.NewView(data)

	old, ok := view.UpdateTuple(newTuple, rid, txnCtx, h.log)
	if !ok {
		live, _, exists := view.SlotState(rid.SlotID)
		_ = h.pool.UnpinPage(rid.PageID, false)
		if !exists || !live {
			return nil, dberrors.New(dberrors.InvalidRID, "heap.UpdateTuple", "slot is out of range, free, or marked-deleted")
		}
		return nil, dberrors.New(dberrors.DoesNotFit, "heap.UpdateTuple", "new tuple image no longer fits its current page")
	}

	if err := h.pool.UnpinPage(rid.PageID, true); err != nil {
		return nil, err
	}
	return old, nil
}

// ApplyDelete pins rid's page and delegates. Invalid-rid failures are
// programming errors, asserted inside the page layer, not returned here.
func (h *HeapFile) ApplyDelete(rid primitives.RID, txnCtx txn.Context) error {
	data, err := h.pool.FetchPage(rid.PageID)
	if err != nil {
		return dberrors.Wrap(err, dberrors.InvalidRID, "heap.ApplyDelete", "fetching page")
	}
	view := page.NewView(data)
	view.ApplyDelete(rid, txnCtx, h.log)
	return h.pool.UnpinPage(rid.PageID, true)
}

// RollbackDelete pins rid's page and delegates.
func (h *HeapFile) RollbackDelete(rid primitives.RID, txnCtx txn.Context) error {
	data, err := h.pool.FetchPage(rid.PageID)
	if err != nil {
		return dberrors.Wrap(err, dberrors.InvalidRID, "heap.RollbackDelete", "fetching page")
	}
	view := page.NewView(data)
	view.RollbackDelete(rid, txnCtx, h.log)
	return h.pool.UnpinPage(rid.PageID, true)
}

// GetTuple pins rid's page (read-intent), delegates, and unpins clean.
func (h *HeapFile) GetTuple(rid primitives.RID) (*tuple.Tuple, error) {
	data, err := h.pool.FetchPage(rid.PageID)
	if err != nil {
		return nil, dberrors.Wrap(err, dberrors.InvalidRID, "heap.GetTuple", "fetching page")
	}
	view := page.NewView(data)

	t, ok := view.GetTuple(rid)
	if err := h.pool.UnpinPage(rid.PageID, false); err != nil {
		return nil, err
	}
	if !ok {
		return nil, dberrors.New(dberrors.InvalidRID, "heap.GetTuple", "slot is free, marked-deleted, or out of range")
	}
	return t, nil
}

// Begin returns an iterator positioned at the chain's first live tuple.
func (h *HeapFile) Begin() *Iterator {
	it := &Iterator{heap: h}
	it.advanceToFirstFrom(h.firstPageID)
	return it
}

// End returns the sentinel "one past the last tuple" iterator.
func (h *HeapFile) End() *Iterator {
	return &Iterator{heap: h, cur: primitives.InvalidRID}
}

// pageIDs walks the chain once, sequentially, to collect every page id —
// the linked-list's own addresses are only discoverable by reading the
// chain, so this part cannot be parallelized; WarmChain then fetches them
// concurrently.
func (h *HeapFile) pageIDs() ([]primitives.PageID, error) {
	var ids []primitives.PageID
	pageID := h.firstPageID
	for pageID != primitives.InvalidPageID {
		ids = append(ids, pageID)
		data, err := h.pool.FetchPage(pageID)
		if err != nil {
			return nil, err
		}
		view := page.NewView(data)
		next := view.NextPageID()
		if err := h.pool.UnpinPage(pageID, false); err != nil {
			return nil, err
		}
		pageID = next
	}
	return ids, nil
}

// WarmChain prefetches every page of the chain into the buffer pool (and
// its secondary cache) with bounded concurrency, ahead of a full scan.
// Not named by the core spec, but a natural operation to exercise the
// domain stack's concurrency primitives against a structure whose own
// traversal is inherently sequential.
func (h *HeapFile) WarmChain(concurrency int) error {
	ids, err := h.pageIDs()
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := h.pool.FetchPage(id); err != nil {
				return err
			}
			return h.pool.UnpinPage(id, false)
		})
	}
	return g.Wait()
}
