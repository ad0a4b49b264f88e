package wal

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
)

// LogManager is the external collaborator the slotted page layer consumes:
// append a record, get back a monotonically increasing LSN. Implementations
// must be safe for concurrent use by multiple pinned pages.
type LogManager interface {
	AppendLogRecord(rec *Record) primitives.LSN
}

// FileLogManager is a durable, append-only reference LogManager. It is not
// part of the storage core's product surface — the core only consumes the
// LogManager interface — but a real test of the core needs something
// concrete behind it.
type FileLogManager struct {
	mu      sync.Mutex
	file    *os.File
	nextLSN primitives.LSN
	log     *logrus.Entry
}

// NewFileLogManager opens (creating if needed) path as an append-only log
// file and returns a manager whose first assigned LSN is 0.
func NewFileLogManager(path string) (*FileLogManager, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR|os.O_SYNC, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogManager{
		file: f,
		log:  logrus.WithField("component", "wal"),
	}, nil
}

// AppendLogRecord assigns the next LSN to rec, serializes it, appends it to
// the log file, and returns the assigned LSN. Safe for concurrent callers.
func (m *FileLogManager) AppendLogRecord(rec *Record) primitives.LSN {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.LSN = m.nextLSN
	rec.Timestamp = time.Now().UnixNano()
	m.nextLSN++

	data := rec.Serialize()
	if _, err := m.file.Write(data); err != nil {
		m.log.WithError(err).WithField("lsn", rec.LSN).Error("wal: append failed")
	}

	m.log.WithFields(logrus.Fields{
		"lsn":  rec.LSN,
		"type": rec.Type.String(),
		"rid":  rec.RID.String(),
	}).Debug("wal: appended record")

	return rec.LSN
}

// Close releases the underlying file handle.
func (m *FileLogManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}

// Disabled logging is represented by a nil LogManager interface value
// passed to the page layer, never by a sentinel implementation — a heap
// file constructed in "unlogged" mode (see pkg/config) simply holds a nil
// LogManager field.
