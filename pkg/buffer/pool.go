// Package buffer provides the buffer pool manager contract the storage
// core consumes (NewPage / FetchPage / UnpinPage) plus a reference
// implementation, grounded on ShubhamNegi4-DaemonDB's storage_engine/bufferpool
// package: pin-count bookkeeping, LRU eviction that skips pinned frames,
// and a secondary read-through byte cache fronting disk reads.
package buffer

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/heapcore/pkg/dberrors"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
	"golang.org/x/sync/singleflight"
)

// Manager is the external collaborator the slotted page and heap file
// layers consume. NewPage and FetchPage both return a pinned frame; every
// pin must be balanced by exactly one UnpinPage call.
type Manager interface {
	NewPage() (primitives.PageID, []byte, error)
	FetchPage(id primitives.PageID) ([]byte, error)
	UnpinPage(id primitives.PageID, isDirty bool) error
	FlushPage(id primitives.PageID) error
}

type frame struct {
	id       primitives.PageID
	data     []byte
	pinCount int
	dirty    bool
}

// Pool is the reference Manager implementation: a fixed-capacity pin-count
// table with LRU eviction among unpinned frames, a ristretto-backed
// secondary cache fronting disk reads, and a singleflight group collapsing
// concurrent misses on the same page into one disk read.
type Pool struct {
	mu       sync.Mutex
	capacity int
	pageSize int
	disk     DiskManager
	namespace string

	frames map[primitives.PageID]*frame
	order  *list.List
	elems  map[primitives.PageID]*list.Element

	secondary *ristretto.Cache[uint64, []byte]
	sf        singleflight.Group

	log *logrus.Entry
}

// ErrNoFreeFrame is returned by NewPage/FetchPage when every frame is
// pinned and no room can be made. The heap file layer translates this into
// dberrors.OutOfMemory.
var ErrNoFreeFrame = errors.New("buffer: no unpinned frame available")

// NewPool builds a pool of the given frame capacity, backed by disk, and
// hashes namespace (typically the heap file's path) together with the page
// id to form its secondary cache keys.
func NewPool(capacity int, pageSize int, disk DiskManager, namespace string) (*Pool, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity*pageSize) * 4,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "buffer: constructing secondary cache")
	}

	return &Pool{
		capacity:  capacity,
		pageSize:  pageSize,
		disk:      disk,
		namespace: namespace,
		frames:    make(map[primitives.PageID]*frame),
		order:     list.New(),
		elems:     make(map[primitives.PageID]*list.Element),
		secondary: cache,
		log:       logrus.WithField("component", "buffer"),
	}, nil
}

func (p *Pool) cacheKey(id primitives.PageID) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%s:%d", p.namespace, id))
}

// NewPage allocates a fresh page on disk and returns it pinned.
func (p *Pool) NewPage() (primitives.PageID, []byte, error) {
	id, err := p.disk.AllocatePage()
	if err != nil {
		return primitives.InvalidPageID, nil, errors.Wrap(err, "buffer: allocating page")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureCapacityLocked(); err != nil {
		return primitives.InvalidPageID, nil, err
	}

	data := make([]byte, p.pageSize)
	fr := &frame{id: id, data: data, pinCount: 1, dirty: true}
	p.frames[id] = fr
	p.elems[id] = p.order.PushFront(id)

	p.log.WithField("page_id", id).Debug("buffer: new page")
	return id, data, nil
}

// FetchPage pins an existing page, reading through the secondary cache and
// then disk on a miss. Concurrent misses on the same page id are collapsed
// by singleflight into one disk read.
func (p *Pool) FetchPage(id primitives.PageID) ([]byte, error) {
	p.mu.Lock()
	if fr, ok := p.frames[id]; ok {
		fr.pinCount++
		p.touchLocked(id)
		p.mu.Unlock()
		return fr.data, nil
	}
	p.mu.Unlock()

	key := p.cacheKey(id)
	v, err, _ := p.sf.Do(fmt.Sprintf("%s:%d", p.namespace, id), func() (any, error) {
		if cached, found := p.secondary.Get(key); found {
			return cached, nil
		}
		data, err := p.disk.ReadPage(id)
		if err != nil {
			return nil, err
		}
		p.secondary.Set(key, data, int64(len(data)))
		p.secondary.Wait()
		return data, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "buffer: fetching page %d", id)
	}
	data := v.([]byte)

	p.mu.Lock()
	defer p.mu.Unlock()

	if fr, ok := p.frames[id]; ok {
		fr.pinCount++
		p.touchLocked(id)
		return fr.data, nil
	}

	if err := p.ensureCapacityLocked(); err != nil {
		return nil, err
	}

	fr := &frame{id: id, data: data, pinCount: 1}
	p.frames[id] = fr
	p.elems[id] = p.order.PushFront(id)
	return fr.data, nil
}

// UnpinPage releases one pin on id, optionally marking it dirty.
func (p *Pool) UnpinPage(id primitives.PageID, isDirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fr, ok := p.frames[id]
	if !ok {
		return errors.Errorf("buffer: unpin of page %d not in pool", id)
	}
	if isDirty {
		fr.dirty = true
	}
	if fr.pinCount > 0 {
		fr.pinCount--
	}
	return nil
}

// FlushPage writes id's frame to disk if dirty.
func (p *Pool) FlushPage(id primitives.PageID) error {
	p.mu.Lock()
	fr, ok := p.frames[id]
	p.mu.Unlock()
	if !ok {
		return errors.Errorf("buffer: flush of page %d not in pool", id)
	}
	if !fr.dirty {
		return nil
	}
	if err := p.disk.WritePage(id, fr.data); err != nil {
		return err
	}
	p.mu.Lock()
	fr.dirty = false
	p.mu.Unlock()
	return nil
}

// touchLocked marks id most-recently-used. Caller holds p.mu.
func (p *Pool) touchLocked(id primitives.PageID) {
	if e, ok := p.elems[id]; ok {
		p.order.MoveToFront(e)
	}
}

// ensureCapacityLocked evicts one unpinned frame, least-recently-used
// first, if the pool is already at capacity. Caller holds p.mu.
func (p *Pool) ensureCapacityLocked() error {
	if len(p.frames) < p.capacity {
		return nil
	}

	for e := p.order.Back(); e != nil; e = e.Prev() {
		id := e.Value.(primitives.PageID)
		fr := p.frames[id]
		if fr.pinCount > 0 {
			continue
		}
		if fr.dirty {
			if err := p.disk.WritePage(id, fr.data); err != nil {
				return errors.Wrapf(err, "buffer: flushing evicted page %d", id)
			}
		}
		delete(p.frames, id)
		delete(p.elems, id)
		p.order.Remove(e)
		p.log.WithField("page_id", id).Debug("buffer: evicted frame")
		return nil
	}

	return dberrors.Wrap(ErrNoFreeFrame, dberrors.OutOfMemory, "buffer.NewPage", "every frame is pinned")
}
