// Package wal provides the log manager contract the storage core consumes
// (AppendLogRecord) plus a durable file-backed reference implementation,
// grounded on the reference implementation's pkg/log package.
package wal

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
)

// RecordType enumerates the log record kinds. INSERT, MARKDELETE, UPDATE,
// APPLYDELETE and ROLLBACKDELETE are the five kinds the slotted page layer
// emits; BEGIN/COMMIT/ABORT exist so this reference log manager can also
// serve a transaction lifecycle in tests without a second log stream.
type RecordType uint8

const (
	Begin RecordType = iota
	Commit
	Abort
	Insert
	MarkDelete
	Update
	ApplyDelete
	RollbackDelete
)

func (t RecordType) String() string {
	switch t {
	case Begin:
		return "BEGIN"
	case Commit:
		return "COMMIT"
	case Abort:
		return "ABORT"
	case Insert:
		return "INSERT"
	case MarkDelete:
		return "MARKDELETE"
	case Update:
		return "UPDATE"
	case ApplyDelete:
		return "APPLYDELETE"
	case RollbackDelete:
		return "ROLLBACKDELETE"
	default:
		return "UNKNOWN"
	}
}

// Record is a single write-ahead log entry. INSERT and APPLYDELETE carry
// the full tuple image in NewImage/OldImage respectively; UPDATE carries
// both; MARKDELETE and ROLLBACKDELETE carry neither (OldImage/NewImage are
// nil), per spec §6 — though ROLLBACKDELETE is still always emitted, even
// for a slot that was already live, to keep a transaction's undo chain
// well-formed.
type Record struct {
	LSN       primitives.LSN
	Type      RecordType
	TxnID     primitives.TxnID
	PrevLSN   primitives.LSN
	RID       primitives.RID
	OldImage  []byte // standalone-encoded tuple, or nil
	NewImage  []byte // standalone-encoded tuple, or nil
	Timestamp int64
}

// Serialize encodes the record as:
// [totalLen u32][type u8][txnID i64][prevLSN i64][pageID i32][slotID i32]
// [timestamp i64][oldLen u32][old bytes][newLen u32][new bytes]
func (r *Record) Serialize() []byte {
	body := make([]byte, 0, 64+len(r.OldImage)+len(r.NewImage))
	buf8 := make([]byte, 8)

	appendU8 := func(v uint8) { body = append(body, v) }
	appendI64 := func(v int64) {
		binary.LittleEndian.PutUint64(buf8, uint64(v))
		body = append(body, buf8...)
	}
	appendI32 := func(v int32) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		body = append(body, b...)
	}
	appendBytes := func(b []byte) {
		appendI32(int32(len(b)))
		body = append(body, b...)
	}

	appendU8(uint8(r.Type))
	appendI64(int64(r.TxnID))
	appendI64(int64(r.PrevLSN))
	appendI32(int32(r.RID.PageID))
	appendI32(int32(r.RID.SlotID))
	appendI64(r.Timestamp)
	appendBytes(r.OldImage)
	appendBytes(r.NewImage)

	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out
}

// DeserializeRecord reads a record written by Serialize from the front of
// buf, returning the record and the number of bytes consumed (including
// the leading length prefix).
func DeserializeRecord(buf []byte) (*Record, int, error) {
	if len(buf) < 4 {
		return nil, 0, errors.New("wal: buffer too short for record length")
	}
	bodyLen := binary.LittleEndian.Uint32(buf)
	total := 4 + int(bodyLen)
	if len(buf) < total {
		return nil, 0, errors.Errorf("wal: buffer too short for record body: have %d want %d", len(buf)-4, bodyLen)
	}
	body := buf[4:total]

	pos := 0
	readU8 := func() uint8 { v := body[pos]; pos++; return v }
	readI64 := func() int64 { v := int64(binary.LittleEndian.Uint64(body[pos:])); pos += 8; return v }
	readI32 := func() int32 { v := int32(binary.LittleEndian.Uint32(body[pos:])); pos += 4; return v }
	readBytes := func() []byte {
		n := readI32()
		if n == 0 {
			return nil
		}
		b := make([]byte, n)
		copy(b, body[pos:pos+int(n)])
		pos += int(n)
		return b
	}

	rec := &Record{}
	rec.Type = RecordType(readU8())
	rec.TxnID = primitives.TxnID(readI64())
	rec.PrevLSN = primitives.LSN(readI64())
	rec.RID = primitives.RID{PageID: primitives.PageID(readI32()), SlotID: primitives.SlotID(readI32())}
	rec.Timestamp = readI64()
	rec.OldImage = readBytes()
	rec.NewImage = readBytes()

	return rec, total, nil
}
