package tuple

// ColumnType enumerates the value types a schema column can hold. Inlined
// (fixed-width) types are serialized directly at the column's offset; all
// other types are variable-length and get an offset pointer (or a null
// sentinel) at the column's offset with the real payload appended to the
// tuple's trailing area.
type ColumnType int

const (
	IntType ColumnType = iota
	StringType
	DecimalType
)

func (t ColumnType) String() string {
	switch t {
	case IntType:
		return "INT"
	case StringType:
		return "STRING"
	case DecimalType:
		return "DECIMAL"
	default:
		return "UNKNOWN"
	}
}

// Inlined reports whether values of this type are serialized in place at
// the column's fixed offset rather than through an offset pointer into the
// trailing varlen area. Only IntType columns are inlined; a nullable
// int column is not representable in this codec, matching the source
// schema's assumption that fixed-width columns are non-null.
func (t ColumnType) Inlined() bool {
	return t == IntType
}

// pointerWidth is the width, in bytes, reserved at a non-inlined column's
// offset for either a u32 payload pointer or the null sentinel.
const pointerWidth = 4

// intWidth is the on-disk width of an inlined IntType value.
const intWidth = 8

// NullSentinel marks a non-inlined column's slot as holding no value,
// distinguishable from any legal offset because a tuple's fixed-length
// region can never be this large.
const NullSentinel uint32 = 0xFFFFFFFF

// FixedWidth returns the number of bytes this type occupies in the
// fixed-length region of a tuple: the value itself when inlined, or the
// pointer/null-sentinel slot otherwise.
func (t ColumnType) FixedWidth() int {
	if t == IntType {
		return intWidth
	}
	return pointerWidth
}
