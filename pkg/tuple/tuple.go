// Package tuple implements the tuple codec: constructing a variable-length
// record from a schema and a vector of column values, and the two on-disk
// forms a page and the write-ahead log need — a standalone length-prefixed
// form and an in-place form that trusts an externally supplied length.
package tuple

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/utkarsh5026/heapcore/pkg/primitives"
)

// Tuple is an in-memory record: opaque payload bytes plus an optional RID
// set once the tuple has been read from, or successfully inserted into, a
// page. NewTuple, DecodeStandalone and DecodeInplace each give the tuple its
// own Data buffer; assigning or copying a Tuple value does not copy Data,
// so both copies share the same bytes.
type Tuple struct {
	Data      []byte
	rid       primitives.RID
	allocated bool
}

// NewTuple builds a tuple from values under schema, following the
// fixed-length-plus-trailing-varlen layout: inlined columns are serialized
// at their schema offset, non-inlined columns get either a null sentinel or
// a pointer into the trailing area at their offset, with the real payload
// appended there.
func NewTuple(values []Value, schema *Schema) (*Tuple, error) {
	if len(values) != schema.NumColumns() {
		return nil, errors.Errorf("tuple: got %d values for schema with %d columns", len(values), schema.NumColumns())
	}

	size := schema.FixedLength()
	for _, i := range schema.UninlinedColumns() {
		if values[i].IsNull() {
			continue
		}
		size += values[i].SerializedLength()
	}

	data := make([]byte, size)
	offset := schema.FixedLength()

	for i := 0; i < schema.NumColumns(); i++ {
		col := schema.Column(i)
		if col.Type.Inlined() {
			if values[i].IsNull() {
				return nil, errors.Errorf("tuple: column %q is inlined and cannot be null", col.Name)
			}
			values[i].SerializeTo(data[col.Offset:])
			continue
		}

		if values[i].IsNull() {
			binary.LittleEndian.PutUint32(data[col.Offset:], NullSentinel)
			continue
		}

		binary.LittleEndian.PutUint32(data[col.Offset:], uint32(offset))
		n := values[i].SerializeTo(data[offset:])
		offset += n
	}

	return &Tuple{Data: data, allocated: true}, nil
}

// Size returns the payload length. A freshly-built tuple always has a
// positive size as long as its schema has at least one column; a page
// rejects size-0 tuples as a programming error.
func (t *Tuple) Size() int { return len(t.Data) }

// RID returns the tuple's record identifier, valid only after the tuple
// has been read from or inserted into a page.
func (t *Tuple) RID() primitives.RID { return t.rid }

// SetRID stamps the tuple's record identifier.
func (t *Tuple) SetRID(rid primitives.RID) { t.rid = rid }

// IsAllocated reports whether Data is tuple-owned storage (true for every
// tuple built via NewTuple, DecodeStandalone, or DecodeInplace).
func (t *Tuple) IsAllocated() bool { return t.allocated }

// dataOffset returns the byte offset in t.Data at which the given column's
// payload begins, resolving non-inlined pointers.
func (t *Tuple) dataOffset(schema *Schema, columnIdx int) (int, bool) {
	col := schema.Column(columnIdx)
	if col.Type.Inlined() {
		return col.Offset, true
	}
	ptr := binary.LittleEndian.Uint32(t.Data[col.Offset:])
	if ptr == NullSentinel {
		return 0, false
	}
	return int(ptr), true
}

// GetValue decodes the columnIdx'th value out of the tuple under schema.
func (t *Tuple) GetValue(schema *Schema, columnIdx int) (Value, error) {
	col := schema.Column(columnIdx)
	offset, ok := t.dataOffset(schema, columnIdx)
	if !ok {
		return NullValue{ColType: col.Type}, nil
	}
	if col.Type.Inlined() {
		return decodeInlined(col.Type, t.Data[offset:])
	}
	return decodeVarlen(col.Type, t.Data[offset:])
}

// Project builds a new tuple containing only the columns named by
// columnIdxs (indexes into schema), laid out under keySchema. This is the
// Go analogue of the reference codec's KeyFromTuple: not required by the
// four spec'd storage components directly, but the natural extension point
// an index layer built on top of this codec would call.
func (t *Tuple) Project(schema *Schema, keySchema *Schema, columnIdxs []int) (*Tuple, error) {
	values := make([]Value, len(columnIdxs))
	for i, idx := range columnIdxs {
		v, err := t.GetValue(schema, idx)
		if err != nil {
			return nil, errors.Wrapf(err, "tuple: projecting column %d", idx)
		}
		values[i] = v
	}
	return NewTuple(values, keySchema)
}

// EncodeStandalone serializes the tuple with a u32 length prefix, used
// whenever a tuple must be self-describing outside a slot directory: WAL
// record images and the projection round-trip.
func (t *Tuple) EncodeStandalone() []byte {
	buf := make([]byte, 4+len(t.Data))
	binary.LittleEndian.PutUint32(buf, uint32(len(t.Data)))
	copy(buf[4:], t.Data)
	return buf
}

// DecodeStandalone reads a length-prefixed tuple from the front of buf and
// returns the tuple plus the number of bytes consumed.
func DecodeStandalone(buf []byte) (*Tuple, int, error) {
	if len(buf) < 4 {
		return nil, 0, errors.New("tuple: buffer too short for length prefix")
	}
	size := binary.LittleEndian.Uint32(buf)
	total := 4 + int(size)
	if len(buf) < total {
		return nil, 0, errors.Errorf("tuple: buffer too short for payload: have %d want %d", len(buf)-4, size)
	}
	data := make([]byte, size)
	copy(data, buf[4:total])
	return &Tuple{Data: data, allocated: true}, total, nil
}

// DecodeInplace reads size bytes directly from buf with no framing,
// used inside a page where the slot directory already carries the length.
// The returned tuple owns a fresh copy of the bytes so it survives after
// the caller unpins the page the bytes came from.
func DecodeInplace(buf []byte, size uint32) *Tuple {
	data := make([]byte, size)
	copy(data, buf[:size])
	return &Tuple{Data: data, allocated: true}
}
