package tuple

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Value is a typed column value ready for serialization into a tuple.
// Mirrors the reference implementation's Field interface, extended with
// IsNull for the codec's null-sentinel handling of non-inlined columns.
type Value interface {
	Type() ColumnType
	IsNull() bool
	// SerializedLength is the number of bytes SerializeTo writes: the fixed
	// width for inlined types, or length-prefix-plus-payload for varlen
	// types written into a tuple's trailing area.
	SerializedLength() int
	SerializeTo(dst []byte) int
	String() string
	Equals(Value) bool
}

// IntValue is an inlined 64-bit signed integer column value.
type IntValue int64

func (v IntValue) Type() ColumnType       { return IntType }
func (v IntValue) IsNull() bool           { return false }
func (v IntValue) SerializedLength() int  { return intWidth }
func (v IntValue) String() string         { return fmt.Sprintf("%d", int64(v)) }
func (v IntValue) Equals(o Value) bool {
	other, ok := o.(IntValue)
	return ok && v == other
}
func (v IntValue) SerializeTo(dst []byte) int {
	binary.LittleEndian.PutUint64(dst, uint64(v))
	return intWidth
}

// StringValue is a variable-length UTF-8 string column value.
type StringValue string

func (v StringValue) Type() ColumnType      { return StringType }
func (v StringValue) IsNull() bool          { return false }
func (v StringValue) SerializedLength() int { return pointerWidth + len(v) }
func (v StringValue) String() string        { return string(v) }
func (v StringValue) Equals(o Value) bool {
	other, ok := o.(StringValue)
	return ok && v == other
}
func (v StringValue) SerializeTo(dst []byte) int {
	binary.LittleEndian.PutUint32(dst, uint32(len(v)))
	copy(dst[pointerWidth:], v)
	return pointerWidth + len(v)
}

// DecimalValue is a variable-length arbitrary-precision decimal column
// value, serialized via its canonical string form.
type DecimalValue struct{ decimal.Decimal }

func NewDecimalValue(d decimal.Decimal) DecimalValue { return DecimalValue{d} }

func (v DecimalValue) Type() ColumnType { return DecimalType }
func (v DecimalValue) IsNull() bool     { return false }
func (v DecimalValue) SerializedLength() int {
	return pointerWidth + len(v.Decimal.String())
}
func (v DecimalValue) String() string { return v.Decimal.String() }
func (v DecimalValue) Equals(o Value) bool {
	other, ok := o.(DecimalValue)
	return ok && v.Decimal.Equal(other.Decimal)
}
func (v DecimalValue) SerializeTo(dst []byte) int {
	s := v.Decimal.String()
	binary.LittleEndian.PutUint32(dst, uint32(len(s)))
	copy(dst[pointerWidth:], s)
	return pointerWidth + len(s)
}

// NullValue represents a null value for a non-inlined column type.
type NullValue struct{ ColType ColumnType }

func (v NullValue) Type() ColumnType      { return v.ColType }
func (v NullValue) IsNull() bool          { return true }
func (v NullValue) SerializedLength() int { return 0 }
func (v NullValue) String() string        { return "NULL" }
func (v NullValue) Equals(o Value) bool {
	other, ok := o.(NullValue)
	return ok && v.ColType == other.ColType
}
func (v NullValue) SerializeTo(dst []byte) int { return 0 }

// decodeInlined reads a fixed-width value at the front of buf.
func decodeInlined(colType ColumnType, buf []byte) (Value, error) {
	switch colType {
	case IntType:
		if len(buf) < intWidth {
			return nil, errors.Errorf("tuple: short buffer for inlined int: have %d want %d", len(buf), intWidth)
		}
		return IntValue(binary.LittleEndian.Uint64(buf)), nil
	default:
		return nil, errors.Errorf("tuple: %s is not an inlined type", colType)
	}
}

// decodeVarlen reads a length-prefixed value at the front of buf.
func decodeVarlen(colType ColumnType, buf []byte) (Value, error) {
	if len(buf) < pointerWidth {
		return nil, errors.Errorf("tuple: short buffer for varlen length prefix")
	}
	n := binary.LittleEndian.Uint32(buf)
	if len(buf) < pointerWidth+int(n) {
		return nil, errors.Errorf("tuple: short buffer for varlen payload: have %d want %d", len(buf)-pointerWidth, n)
	}
	payload := buf[pointerWidth : pointerWidth+int(n)]
	switch colType {
	case StringType:
		return StringValue(string(payload)), nil
	case DecimalType:
		d, err := decimal.NewFromString(string(payload))
		if err != nil {
			return nil, errors.Wrap(err, "tuple: decoding decimal value")
		}
		return NewDecimalValue(d), nil
	default:
		return nil, errors.Errorf("tuple: %s is not a varlen type", colType)
	}
}
