package buffer

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
)

// DiskManager is the sub-collaborator the reference buffer pool uses to
// back pages with durable storage. It is not named by spec §6 directly —
// the core only ever sees the BufferPoolManager contract — but a concrete
// pool needs somewhere to read and write bytes.
type DiskManager interface {
	ReadPage(id primitives.PageID) ([]byte, error)
	WritePage(id primitives.PageID, data []byte) error
	AllocatePage() (primitives.PageID, error)
}

// FileDiskManager stores every page as a fixed-size slot in a single OS
// file, addressed by pageID*pageSize.
type FileDiskManager struct {
	mu       sync.Mutex
	file     *os.File
	pageSize int
	nextID   int32
}

// NewFileDiskManager opens (creating if needed) path as the backing file
// for a heap file's pages.
func NewFileDiskManager(path string, pageSize int) (*FileDiskManager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileDiskManager{
		file:     f,
		pageSize: pageSize,
		nextID:   int32(info.Size() / int64(pageSize)),
	}, nil
}

func (d *FileDiskManager) ReadPage(id primitives.PageID) ([]byte, error) {
	buf := make([]byte, d.pageSize)
	off := int64(id) * int64(d.pageSize)
	n, err := d.file.ReadAt(buf, off)
	if err != nil && n == 0 {
		return nil, errors.Wrapf(err, "buffer: reading page %d", id)
	}
	return buf, nil
}

func (d *FileDiskManager) WritePage(id primitives.PageID, data []byte) error {
	off := int64(id) * int64(d.pageSize)
	_, err := d.file.WriteAt(data, off)
	if err != nil {
		return errors.Wrapf(err, "buffer: writing page %d", id)
	}
	return d.file.Sync()
}

func (d *FileDiskManager) AllocatePage() (primitives.PageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := primitives.PageID(d.nextID)
	d.nextID++
	blank := make([]byte, d.pageSize)
	if err := d.WritePage(id, blank); err != nil {
		return primitives.InvalidPageID, err
	}
	return id, nil
}

func (d *FileDiskManager) Close() error {
	return d.file.Close()
}
