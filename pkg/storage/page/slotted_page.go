// Package page implements the slotted page layout: a fixed-size byte
// buffer holding a 24-byte header, a slot directory growing forward from
// the header, and tuple payloads packed downward from the page's high end.
// Every mutating method here performs exactly one byte mutation and, when
// logging is enabled, exactly one WAL append. This package never acquires
// or releases latches itself, and neither buffer.Pool nor heap.HeapFile
// takes a per-frame latch around these calls: concurrent mutation of the
// same page is not synchronized anywhere in the storage core.
package page

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/heapcore/pkg/dberrors"
	"github.com/utkarsh5026/heapcore/pkg/logging"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
	"github.com/utkarsh5026/heapcore/pkg/tuple"
	"github.com/utkarsh5026/heapcore/pkg/txn"
	"github.com/utkarsh5026/heapcore/pkg/wal"
)

// Layout constants, bit-exact per the storage core's wire format. All
// integers are little-endian.
const (
	offPageID         = 0
	offLSN            = 4
	offPrevPageID     = 8
	offNextPageID     = 12
	offFreeSpacePtr   = 16
	offTupleCount     = 20
	offSlotDirectory  = 24

	// HeaderSize is the fixed header length preceding the slot directory.
	HeaderSize = 24
	// SlotSize is the width of one slot directory entry: (u32 offset, u32 size).
	SlotSize = 8

	deleteBit = uint32(1) << 31
)

// SlottedPage is a strongly-typed view over a caller-owned byte buffer —
// typically a pinned frame handed out by a buffer.Manager. It never copies
// or owns the underlying bytes.
type SlottedPage struct {
	data []byte
	log  *logrus.Entry
}

// NewView wraps an existing byte buffer (a page frame) as a slotted page.
// The buffer's length becomes this page's page size.
func NewView(data []byte) *SlottedPage {
	return &SlottedPage{data: data, log: logging.Get().WithField("component", "page")}
}

// PageSize returns the size of the underlying buffer.
func (p *SlottedPage) PageSize() int { return len(p.data) }

func (p *SlottedPage) u32(off int) uint32        { return binary.LittleEndian.Uint32(p.data[off:]) }
func (p *SlottedPage) setU32(off int, v uint32)  { binary.LittleEndian.PutUint32(p.data[off:], v) }

func (p *SlottedPage) PageID() primitives.PageID     { return primitives.PageID(p.u32(offPageID)) }
func (p *SlottedPage) setPageID(id primitives.PageID) { p.setU32(offPageID, uint32(id)) }

func (p *SlottedPage) LSN() primitives.LSN { return primitives.LSN(int32(p.u32(offLSN))) }
func (p *SlottedPage) setLSN(lsn primitives.LSN) { p.setU32(offLSN, uint32(lsn)) }

func (p *SlottedPage) PrevPageID() primitives.PageID { return primitives.PageID(p.u32(offPrevPageID)) }
func (p *SlottedPage) SetPrevPageID(id primitives.PageID) { p.setU32(offPrevPageID, uint32(id)) }

func (p *SlottedPage) NextPageID() primitives.PageID { return primitives.PageID(p.u32(offNextPageID)) }
func (p *SlottedPage) SetNextPageID(id primitives.PageID) { p.setU32(offNextPageID, uint32(id)) }

func (p *SlottedPage) FreeSpacePointer() uint32 { return p.u32(offFreeSpacePtr) }
func (p *SlottedPage) setFreeSpacePointer(v uint32) { p.setU32(offFreeSpacePtr, v) }

func (p *SlottedPage) TupleCount() uint32 { return p.u32(offTupleCount) }
func (p *SlottedPage) setTupleCount(v uint32) { p.setU32(offTupleCount, v) }

func (p *SlottedPage) slotOffset(slot primitives.SlotID) int {
	return offSlotDirectory + int(slot)*SlotSize
}

// getSlot returns a slot's (offset, rawSize). rawSize's high bit is the
// deletion mark; rawSize == 0 means free.
func (p *SlottedPage) getSlot(slot primitives.SlotID) (offset uint32, rawSize uint32) {
	so := p.slotOffset(slot)
	return p.u32(so), p.u32(so + 4)
}

func (p *SlottedPage) setSlot(slot primitives.SlotID, offset, rawSize uint32) {
	so := p.slotOffset(slot)
	p.setU32(so, offset)
	p.setU32(so+4, rawSize)
}

func isDeleted(rawSize uint32) bool  { return rawSize&deleteBit != 0 }
func isFree(rawSize uint32) bool     { return rawSize == 0 }
func trueSize(rawSize uint32) uint32 { return rawSize &^ deleteBit }
func withDeleteBit(size uint32) uint32 { return size | deleteBit }

// headerEnd is the first byte past the slot directory for the page's
// current tuple count.
func (p *SlottedPage) headerEnd() uint32 {
	return uint32(HeaderSize) + p.TupleCount()*SlotSize
}

// FreeBytes returns the free region's size: the half-open interval between
// the end of the slot directory and the free space pointer.
func (p *SlottedPage) FreeBytes() uint32 {
	end := p.headerEnd()
	fsp := p.FreeSpacePointer()
	if fsp < end {
		return 0
	}
	return fsp - end
}

// Init writes a fresh page header: this page's id, the supplied prev page
// id, an invalid next page id, a free space pointer at the end of the
// buffer, and zero tuples. No WAL record is emitted — Init runs before the
// page has any caller-visible content to protect.
func (p *SlottedPage) Init(pageID, prevPageID primitives.PageID) {
	p.setPageID(pageID)
	p.setLSN(primitives.InvalidLSN)
	p.SetPrevPageID(prevPageID)
	p.SetNextPageID(primitives.InvalidPageID)
	p.setFreeSpacePointer(uint32(len(p.data)))
	p.setTupleCount(0)
}

// emitLog appends a WAL record for a mutation and stamps the resulting LSN
// into both the page header and the transaction's undo chain. A nil log
// manager disables logging entirely (bulk load / tests); pairing a non-nil
// log manager with a nil transaction context is a programming error.
func (p *SlottedPage) emitLog(t txn.Context, log wal.LogManager, kind wal.RecordType, rid primitives.RID, oldImage, newImage []byte) {
	if log == nil {
		return
	}
	dberrors.Assert(t != nil, "page: non-nil log manager requires a non-nil transaction context")

	rec := &wal.Record{
		Type:     kind,
		TxnID:    t.GetTxnID(),
		PrevLSN:  t.GetPrevLSN(),
		RID:      rid,
		OldImage: oldImage,
		NewImage: newImage,
	}
	lsn := log.AppendLogRecord(rec)
	p.setLSN(lsn)
	t.SetPrevLSN(lsn)
}

// InsertTuple scans for the first free slot, or uses a fresh one, copies
// the tuple's payload into the high end of the free region, and records
// its slot. Returns ok=false only when the tuple does not fit — the heap
// file treats that as "try the next page", not an error.
func (p *SlottedPage) InsertTuple(t *tuple.Tuple, txnCtx txn.Context, log wal.LogManager) (primitives.RID, bool) {
	dberrors.Assert(t.Size() > 0, "page: cannot insert an empty tuple")
	size := uint32(t.Size())

	tupleCount := p.TupleCount()
	slot := primitives.SlotID(tupleCount)
	for i := uint32(0); i < tupleCount; i++ {
		_, raw := p.getSlot(primitives.SlotID(i))
		if isFree(raw) {
			slot = primitives.SlotID(i)
			break
		}
	}

	isNewSlot := uint32(slot) == tupleCount
	required := size
	if isNewSlot {
		required += SlotSize
	}
	if p.FreeBytes() < required {
		return primitives.InvalidRID, false
	}

	newFreePtr := p.FreeSpacePointer() - size
	p.setFreeSpacePointer(newFreePtr)
	copy(p.data[newFreePtr:newFreePtr+size], t.Data)
	p.setSlot(slot, newFreePtr, size)

	if isNewSlot {
		p.setTupleCount(tupleCount + 1)
	}

	rid := primitives.RID{PageID: p.PageID(), SlotID: slot}
	p.emitLog(txnCtx, log, wal.Insert, rid, nil, t.EncodeStandalone())

	p.log.WithFields(logrus.Fields{"rid": rid.String(), "size": size, "free": logging.Bytes(uint64(p.FreeBytes()))}).Debug("page: inserted tuple")
	return rid, true
}

// MarkDelete sets the slot's deletion bit without reclaiming its space.
// Returns false for an out-of-range or already-free slot; double-marking
// an already marked-deleted slot is a programming error.
func (p *SlottedPage) MarkDelete(rid primitives.RID, txnCtx txn.Context, log wal.LogManager) bool {
	dberrors.Assert(rid.PageID == p.PageID(), "page: RID belongs to a different page")

	slot := rid.SlotID
	if uint32(slot) >= p.TupleCount() || slot < 0 {
		return false
	}

	_, raw := p.getSlot(slot)
	if isFree(raw) {
		return false
	}
	dberrors.Assert(!isDeleted(raw), "page: double mark-delete on the same slot")

	p.emitLog(txnCtx, log, wal.MarkDelete, rid, nil, nil)

	offset, _ := p.getSlot(slot)
	p.setSlot(slot, offset, withDeleteBit(raw))
	return true
}

// UpdateTuple replaces a live slot's payload in place, compacting or
// expanding the payload region as needed. Returns false for an
// out-of-range, free, or marked-deleted slot, and when the new image
// does not fit even after reclaiming the old tuple's space — the caller
// decides whether to fall back to mark-delete-plus-insert-elsewhere.
//
// The offset walk below deliberately repositions slots whose offset is
// strictly less than old_offset+old_size, which includes the slot being
// updated itself, not just slots before it. This mirrors the source
// routine exactly and must not be "corrected" to old_offset alone — the
// updated slot's own offset needs the same shift applied by the loop as
// everything packed between it and the free space pointer.
func (p *SlottedPage) UpdateTuple(newTuple *tuple.Tuple, rid primitives.RID, txnCtx txn.Context, log wal.LogManager) (oldTuple *tuple.Tuple, ok bool) {
	dberrors.Assert(rid.PageID == p.PageID(), "page: RID belongs to a different page")
	dberrors.Assert(newTuple.Size() > 0, "page: cannot update into an empty tuple")

	slot := rid.SlotID
	if uint32(slot) >= p.TupleCount() || slot < 0 {
		return nil, false
	}

	_, raw := p.getSlot(slot)
	if isFree(raw) || isDeleted(raw) {
		return nil, false
	}

	oldOffset, oldSize := p.getSlot(slot)
	newSize := uint32(newTuple.Size())

	if p.FreeBytes()+oldSize < newSize {
		return nil, false
	}

	old := tuple.DecodeInplace(p.data[oldOffset:oldOffset+oldSize], oldSize)
	old.SetRID(rid)

	freeSpacePtr := p.FreeSpacePointer()
	// delta = oldSize - newSize; shift the region between the free space
	// pointer and this slot's offset by -delta (overlap-safe: shrinking
	// moves it toward higher addresses, growing moves it toward lower
	// addresses, exactly the C++ source's single memmove call covers both).
	shiftLen := oldOffset - freeSpacePtr
	newRegionStart := freeSpacePtr + oldSize - newSize
	copy(p.data[newRegionStart:newRegionStart+shiftLen], p.data[freeSpacePtr:freeSpacePtr+shiftLen])
	p.setFreeSpacePointer(newRegionStart)

	// The walk below must run against every slot's offset as it stood
	// before this update touched anything, including the slot being
	// updated itself — that is what "< old_offset+old_size" buys over
	// "< old_offset": both this slot and everything packed between it and
	// the free space pointer shift by the same delta. Writing this slot's
	// new offset inside the loop (rather than beforehand) keeps that read
	// against the pre-update value instead of double-shifting it.
	tupleCount := p.TupleCount()
	var newTupleOffset uint32
	for i := uint32(0); i < tupleCount; i++ {
		off, raw := p.getSlot(primitives.SlotID(i))
		if isFree(raw) {
			continue
		}
		if off >= oldOffset+oldSize {
			continue
		}
		newOff := off + oldSize - newSize
		if primitives.SlotID(i) == slot {
			newTupleOffset = newOff
			p.setSlot(slot, newOff, newSize)
		} else {
			p.setSlot(primitives.SlotID(i), newOff, raw)
		}
	}

	copy(p.data[newTupleOffset:newTupleOffset+newSize], newTuple.Data)

	p.emitLog(txnCtx, log, wal.Update, rid, old.EncodeStandalone(), newTuple.EncodeStandalone())

	return old, true
}

// ApplyDelete physically reclaims a slot's space, whether it was live or
// already marked-deleted. The slot id must refer to a non-free tuple;
// apply-deleting an already-free slot is a programming error.
func (p *SlottedPage) ApplyDelete(rid primitives.RID, txnCtx txn.Context, log wal.LogManager) {
	dberrors.Assert(rid.PageID == p.PageID(), "page: RID belongs to a different page")
	slot := rid.SlotID
	dberrors.Assert(uint32(slot) < p.TupleCount() && slot >= 0, "page: invalid slot id")

	offset, raw := p.getSlot(slot)
	dberrors.Assert(!isFree(raw), "page: cannot apply-delete a free slot")
	size := trueSize(raw)

	deleted := tuple.DecodeInplace(p.data[offset:offset+size], size)
	p.emitLog(txnCtx, log, wal.ApplyDelete, rid, deleted.EncodeStandalone(), nil)

	freeSpacePtr := p.FreeSpacePointer()
	shiftLen := offset - freeSpacePtr
	copy(p.data[freeSpacePtr+size:freeSpacePtr+size+shiftLen], p.data[freeSpacePtr:freeSpacePtr+shiftLen])

	p.setSlot(slot, 0, 0)
	p.setFreeSpacePointer(freeSpacePtr + size)

	tupleCount := p.TupleCount()
	for i := uint32(0); i < tupleCount; i++ {
		off, r := p.getSlot(primitives.SlotID(i))
		if isFree(r) {
			continue
		}
		if off < offset {
			p.setSlot(primitives.SlotID(i), off+size, r)
		}
	}
}

// RollbackDelete clears a slot's deletion mark if set. A ROLLBACKDELETE
// log record is always emitted, even when the slot was never marked, so a
// transaction's undo chain has a stable shape regardless of whether its
// delete actually took effect before the rollback ran.
func (p *SlottedPage) RollbackDelete(rid primitives.RID, txnCtx txn.Context, log wal.LogManager) {
	dberrors.Assert(rid.PageID == p.PageID(), "page: RID belongs to a different page")
	slot := rid.SlotID
	dberrors.Assert(uint32(slot) < p.TupleCount() && slot >= 0, "page: invalid slot id")

	offset, raw := p.getSlot(slot)

	p.emitLog(txnCtx, log, wal.RollbackDelete, rid, nil, nil)

	if isDeleted(raw) {
		p.setSlot(slot, offset, trueSize(raw))
	}
}

// GetTuple deserializes the slot's payload, using its directory-recorded
// size, into a freshly-copied tuple with its RID set. Returns false for an
// out-of-range, free, or marked-deleted slot.
func (p *SlottedPage) GetTuple(rid primitives.RID) (*tuple.Tuple, bool) {
	dberrors.Assert(rid.PageID == p.PageID(), "page: RID belongs to a different page")
	slot := rid.SlotID
	if uint32(slot) >= p.TupleCount() || slot < 0 {
		return nil, false
	}

	offset, raw := p.getSlot(slot)
	if isDeleted(raw) || isFree(raw) {
		return nil, false
	}

	t := tuple.DecodeInplace(p.data[offset:offset+raw], raw)
	t.SetRID(rid)
	return t, true
}

// SlotState reports whether slot exists in the directory at all, and if so
// whether it is live or marked-deleted. The heap file layer uses this to
// tell an invalid-slot failure apart from a does-not-fit failure after a
// rejected UpdateTuple, without duplicating the page layer's bit-flag
// encoding.
func (p *SlottedPage) SlotState(slot primitives.SlotID) (live, deleted, exists bool) {
	if uint32(slot) >= p.TupleCount() || slot < 0 {
		return false, false, false
	}
	_, raw := p.getSlot(slot)
	if isFree(raw) {
		return false, false, true
	}
	if isDeleted(raw) {
		return false, true, true
	}
	return true, false, true
}

// GetFirstTupleRid returns the smallest slot id that is neither free nor
// marked-deleted.
func (p *SlottedPage) GetFirstTupleRid() (primitives.RID, bool) {
	count := p.TupleCount()
	for i := uint32(0); i < count; i++ {
		_, raw := p.getSlot(primitives.SlotID(i))
		if !isFree(raw) && !isDeleted(raw) {
			return primitives.RID{PageID: p.PageID(), SlotID: primitives.SlotID(i)}, true
		}
	}
	return primitives.InvalidRID, false
}

// GetNextTupleRid returns the smallest slot id strictly greater than
// cur.SlotID that is neither free nor marked-deleted.
func (p *SlottedPage) GetNextTupleRid(cur primitives.RID) (primitives.RID, bool) {
	dberrors.Assert(cur.PageID == p.PageID(), "page: RID belongs to a different page")
	count := p.TupleCount()
	for i := uint32(cur.SlotID) + 1; i < count; i++ {
		_, raw := p.getSlot(primitives.SlotID(i))
		if !isFree(raw) && !isDeleted(raw) {
			return primitives.RID{PageID: p.PageID(), SlotID: primitives.SlotID(i)}, true
		}
	}
	return primitives.InvalidRID, false
}
