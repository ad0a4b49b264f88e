package heap

import (
	"github.com/utkarsh5026/heapcore/pkg/dberrors"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
	"github.com/utkarsh5026/heapcore/pkg/storage/page"
	"github.com/utkarsh5026/heapcore/pkg/tuple"
)

// Iterator is a stateful forward cursor over a heap file's live tuples,
// skipping free and marked-deleted slots. It is single-pass-safe under
// non-concurrent mutation; behavior under concurrent mutation of the page
// it currently points at is unspecified — locking is the caller's job.
type Iterator struct {
	heap *HeapFile
	cur  primitives.RID
}

// HasNext reports whether the iterator is not yet at End.
func (it *Iterator) HasNext() bool { return it.cur.IsValid() }

// RID returns the iterator's current position.
func (it *Iterator) RID() primitives.RID { return it.cur }

// Equal compares two iterators over the same heap file by current RID.
func (it *Iterator) Equal(other *Iterator) bool { return it.cur == other.cur }

// Tuple dereferences the iterator: pins the current page, reads the
// tuple, unpins, and returns a deep copy with its RID set. The copy is
// unavoidable — the payload lives in a page this iterator must not hold
// pinned across caller code — so this is always a by-value read, never a
// reference into the page's bytes.
func (it *Iterator) Tuple() (*tuple.Tuple, error) {
	dberrors.Assert(it.cur.IsValid(), "heap: dereferencing a finished iterator")
	return it.heap.GetTuple(it.cur)
}

// Next advances to the next live tuple in chain order, following
// next_page_id across page boundaries as needed. Advancing a finished
// iterator is a programming error.
func (it *Iterator) Next() {
	dberrors.Assert(it.cur.IsValid(), "heap: advancing a finished iterator")

	data, err := it.heap.pool.FetchPage(it.cur.PageID)
	if err != nil {
		it.cur = primitives.InvalidRID
		return
	}
	view := page.NewView(data)

	rid, ok := view.GetNextTupleRid(it.cur)
	nextPage := view.NextPageID()
	_ = it.heap.pool.UnpinPage(it.cur.PageID, false)

	if ok {
		it.cur = rid
		return
	}
	it.advanceToFirstFrom(nextPage)
}

// advanceToFirstFrom positions the iterator at the first live tuple found
// starting at pageID, following next_page_id links until one is found or
// the chain ends.
func (it *Iterator) advanceToFirstFrom(pageID primitives.PageID) {
	for pageID != primitives.InvalidPageID {
		data, err := it.heap.pool.FetchPage(pageID)
		if err != nil {
			it.cur = primitives.InvalidRID
			return
		}
		view := page.NewView(data)

		if rid, ok := view.GetFirstTupleRid(); ok {
			_ = it.heap.pool.UnpinPage(pageID, false)
			it.cur = rid
			return
		}

		next := view.NextPageID()
		_ = it.heap.pool.UnpinPage(pageID, false)
		pageID = next
	}
	it.cur = primitives.InvalidRID
}
