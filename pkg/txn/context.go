// Package txn provides the transaction context contract the storage core
// consumes (GetTxnID / GetPrevLSN / SetPrevLSN) plus a reference
// implementation, grounded on the reference implementation's
// concurrency/transaction package but trimmed to exactly the surface the
// core needs.
package txn

import (
	"sync"
	"sync/atomic"

	"github.com/utkarsh5026/heapcore/pkg/primitives"
)

// Context is the external collaborator the page layer consumes for every
// mutating operation when logging is enabled.
type Context interface {
	GetTxnID() primitives.TxnID
	GetPrevLSN() primitives.LSN
	SetPrevLSN(lsn primitives.LSN)
}

var nextTxnID atomic.Int64

// NewTxnID allocates a process-wide unique transaction id.
func NewTxnID() primitives.TxnID {
	return primitives.TxnID(nextTxnID.Add(1))
}

// TransactionContext is the reference Context implementation: a single
// transaction's undo-chain cursor (prevLSN) plus the bookkeeping a real
// transaction manager would also track (its status) so tests can
// exercise commit/abort-shaped flows without a second, divergent type.
type TransactionContext struct {
	id      primitives.TxnID
	mu      sync.Mutex
	prevLSN primitives.LSN
	status  Status
}

// Status is the transaction's lifecycle state.
type Status int

const (
	StatusActive Status = iota
	StatusCommitted
	StatusAborted
)

// New creates a fresh, active transaction context with no prior LSN.
func New() *TransactionContext {
	return &TransactionContext{id: NewTxnID(), prevLSN: primitives.InvalidLSN, status: StatusActive}
}

func (t *TransactionContext) GetTxnID() primitives.TxnID { return t.id }

func (t *TransactionContext) GetPrevLSN() primitives.LSN {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prevLSN
}

func (t *TransactionContext) SetPrevLSN(lsn primitives.LSN) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prevLSN = lsn
}

func (t *TransactionContext) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *TransactionContext) SetStatus(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}
