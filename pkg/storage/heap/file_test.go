package heap

import (
	"sync"
	"testing"

	"github.com/utkarsh5026/heapcore/pkg/buffer"
	"github.com/utkarsh5026/heapcore/pkg/config"
	"github.com/utkarsh5026/heapcore/pkg/dberrors"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
	"github.com/utkarsh5026/heapcore/pkg/storage/page"
	"github.com/utkarsh5026/heapcore/pkg/tuple"
	"github.com/utkarsh5026/heapcore/pkg/txn"
	"github.com/utkarsh5026/heapcore/pkg/wal"
)

type memDisk struct {
	mu     sync.Mutex
	pages  map[primitives.PageID][]byte
	nextID int32
	size   int
}

func newMemDisk(pageSize int) *memDisk {
	return &memDisk{pages: make(map[primitives.PageID][]byte), size: pageSize}
}

func (d *memDisk) ReadPage(id primitives.PageID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.pages[id]
	if !ok {
		return make([]byte, d.size), nil
	}
	out := make([]byte, d.size)
	copy(out, data)
	return out, nil
}

func (d *memDisk) WritePage(id primitives.PageID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	d.pages[id] = cp
	return nil
}

func (d *memDisk) AllocatePage() (primitives.PageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := primitives.PageID(d.nextID)
	d.nextID++
	d.pages[id] = make([]byte, d.size)
	return id, nil
}

type recordingLog struct {
	mu      sync.Mutex
	records []*wal.Record
	next    primitives.LSN
}

func (l *recordingLog) AppendLogRecord(rec *wal.Record) primitives.LSN {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec.LSN = l.next
	l.next++
	l.records = append(l.records, rec)
	return rec.LSN
}

func (l *recordingLog) all() []*wal.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*wal.Record(nil), l.records...)
}

const testPageSize = 150

func newTestHeap(t *testing.T, capacity int, log wal.LogManager) (*HeapFile, buffer.Manager) {
	t.Helper()
	disk := newMemDisk(testPageSize)
	pool, err := buffer.NewPool(capacity, testPageSize, disk, "heaptest")
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	pageCfg := config.NewPageConfig(config.WithPageSize(testPageSize))
	heapCfg := config.NewHeapFileConfig()
	h, err := CreateHeapFile(pool, heapCfg, pageCfg, log)
	if err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}
	return h, pool
}

func payload(size int, fill byte) *tuple.Tuple {
	data := make([]byte, size)
	for i := range data {
		data[i] = fill
	}
	return &tuple.Tuple{Data: data}
}

func TestCreateEmptyHeapInsertAndIterate(t *testing.T) {
	log := &recordingLog{}
	h, _ := newTestHeap(t, 8, log)
	txnCtx := txn.New()

	want := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, p := range want {
		if _, err := h.InsertTuple(&tuple.Tuple{Data: p}, txnCtx, nil); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
	}

	it := h.Begin()
	var got [][]byte
	for it.HasNext() {
		tup, err := it.Tuple()
		if err != nil {
			t.Fatalf("Tuple: %v", err)
		}
		got = append(got, tup.Data)
		it.Next()
	}

	if len(got) != len(want) {
		t.Fatalf("iterated %d tuples, want %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Errorf("tuple %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMarkDeleteThenRollbackViaHeapFile(t *testing.T) {
	log := &recordingLog{}
	h, _ := newTestHeap(t, 8, log)
	txnCtx := txn.New()

	rid, err := h.InsertTuple(payload(10, 'X'), txnCtx, nil)
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	if err := h.MarkDelete(rid, txnCtx); err != nil {
		t.Fatalf("MarkDelete: %v", err)
	}
	if _, err := h.GetTuple(rid); err == nil {
		t.Fatal("GetTuple should fail after MarkDelete")
	}

	if err := h.RollbackDelete(rid, txnCtx); err != nil {
		t.Fatalf("RollbackDelete: %v", err)
	}
	got, err := h.GetTuple(rid)
	if err != nil {
		t.Fatalf("GetTuple after rollback: %v", err)
	}
	if got.Data[0] != 'X' {
		t.Errorf("restored payload corrupted: %v", got.Data)
	}
}

func TestInsertChainsAcrossPagesAndLinksPrevPageID(t *testing.T) {
	log := &recordingLog{}
	h, pool := newTestHeap(t, 8, log)
	txnCtx := txn.New()

	// testPageSize=150, header=24, slot=8: a ~100-byte tuple leaves no room
	// for a second one on the first page, forcing a new chained page.
	big := payload(100, 'A')
	rid1, err := h.InsertTuple(big, txnCtx, nil)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	rid2, err := h.InsertTuple(payload(100, 'B'), txnCtx, nil)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}

	if rid1.PageID == rid2.PageID {
		t.Fatal("expected the second tuple to land on a different, chained page")
	}

	data, err := pool.FetchPage(rid2.PageID)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	view := page.NewView(data)
	if view.PrevPageID() != rid1.PageID {
		t.Errorf("second page's prev_page_id = %d, want %d", view.PrevPageID(), rid1.PageID)
	}
	if err := pool.UnpinPage(rid2.PageID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
}

func TestUpdateTupleDoesNotFitSurfacesTypedError(t *testing.T) {
	log := &recordingLog{}
	h, _ := newTestHeap(t, 8, log)
	txnCtx := txn.New()

	rid, err := h.InsertTuple(payload(40, 'A'), txnCtx, nil)
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	// shrink first so the update path itself is exercised cleanly...
	if _, err := h.UpdateTuple(payload(20, 'B'), rid, txnCtx); err != nil {
		t.Fatalf("shrinking UpdateTuple: %v", err)
	}

	// ...then grow far past anything a 150-byte page could ever hold.
	_, err = h.UpdateTuple(payload(200, 'C'), rid, txnCtx)
	if err == nil {
		t.Fatal("expected the oversized update to fail")
	}
	if !dberrors.Is(err, dberrors.DoesNotFit) {
		t.Errorf("error = %v, want kind DoesNotFit", err)
	}
}

func TestApplyDeleteThenReinsertReusesFreedSlot(t *testing.T) {
	log := &recordingLog{}
	h, _ := newTestHeap(t, 8, log)
	txnCtx := txn.New()

	ridA, _ := h.InsertTuple(payload(20, 'A'), txnCtx, nil)
	ridB, err := h.InsertTuple(payload(20, 'B'), txnCtx, nil)
	if err != nil {
		t.Fatalf("insert B: %v", err)
	}

	if err := h.ApplyDelete(ridB, txnCtx); err != nil {
		t.Fatalf("ApplyDelete: %v", err)
	}

	ridC, err := h.InsertTuple(payload(20, 'C'), txnCtx, nil)
	if err != nil {
		t.Fatalf("insert C: %v", err)
	}
	if ridC.PageID != ridB.PageID || ridC.SlotID != ridB.SlotID {
		t.Errorf("insert after apply-delete got %v, want reuse of freed slot %v", ridC, ridB)
	}

	gotA, err := h.GetTuple(ridA)
	if err != nil || gotA.Data[0] != 'A' {
		t.Errorf("tuple A disturbed by unrelated apply-delete: %v, %v", gotA, err)
	}
}

func TestInsertLogsThroughToPageLSN(t *testing.T) {
	log := &recordingLog{}
	h, pool := newTestHeap(t, 8, log)
	txnCtx := txn.New()

	rid, err := h.InsertTuple(payload(10, 'A'), txnCtx, nil)
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	recs := log.all()
	if len(recs) == 0 {
		t.Fatal("expected at least one WAL record")
	}
	last := recs[len(recs)-1]
	if last.Type != wal.Insert || last.RID != rid {
		t.Fatalf("last record = %+v, want an INSERT record for %v", last, rid)
	}

	data, err := pool.FetchPage(rid.PageID)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	view := page.NewView(data)
	if view.LSN() != last.LSN {
		t.Errorf("page LSN = %d, want %d", view.LSN(), last.LSN)
	}
	if err := pool.UnpinPage(rid.PageID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
}

func TestUnloggedHeapFileNeverAppendsRecords(t *testing.T) {
	log := &recordingLog{}
	disk := newMemDisk(testPageSize)
	pool, err := buffer.NewPool(8, testPageSize, disk, "unlogged")
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	pageCfg := config.NewPageConfig(config.WithPageSize(testPageSize))
	heapCfg := config.NewHeapFileConfig(config.WithUnlogged())
	h, err := CreateHeapFile(pool, heapCfg, pageCfg, log)
	if err != nil {
		t.Fatalf("CreateHeapFile: %v", err)
	}

	txnCtx := txn.New()
	if _, err := h.InsertTuple(payload(10, 'A'), txnCtx, nil); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	if len(log.all()) != 0 {
		t.Errorf("unlogged heap file appended %d WAL records, want 0", len(log.all()))
	}
}
