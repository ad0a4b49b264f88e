package tuple

import (
	"testing"

	"github.com/shopspring/decimal"
)

func personSchema() *Schema {
	return NewSchema([]ColumnDef{
		{Name: "id", Type: IntType},
		{Name: "name", Type: StringType},
		{Name: "balance", Type: DecimalType},
	})
}

func TestNewTupleAndGetValueRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values []Value
	}{
		{
			name:   "all populated",
			values: []Value{IntValue(7), StringValue("alice"), NewDecimalValue(decimal.NewFromFloat(12.50))},
		},
		{
			name:   "empty string",
			values: []Value{IntValue(0), StringValue(""), NewDecimalValue(decimal.Zero)},
		},
		{
			name:   "null varlen columns",
			values: []Value{IntValue(42), NullValue{ColType: StringType}, NullValue{ColType: DecimalType}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := personSchema()
			tup, err := NewTuple(tt.values, schema)
			if err != nil {
				t.Fatalf("NewTuple: %v", err)
			}
			if tup.Size() <= 0 {
				t.Fatalf("expected positive size, got %d", tup.Size())
			}

			for i, want := range tt.values {
				got, err := tup.GetValue(schema, i)
				if err != nil {
					t.Fatalf("GetValue(%d): %v", i, err)
				}
				if !got.Equals(want) {
					t.Errorf("column %d: got %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestTupleStandaloneRoundTrip(t *testing.T) {
	schema := personSchema()
	tup, err := NewTuple([]Value{IntValue(9), StringValue("bob"), NewDecimalValue(decimal.NewFromInt(3))}, schema)
	if err != nil {
		t.Fatalf("NewTuple: %v", err)
	}

	encoded := tup.EncodeStandalone()
	decoded, n, err := DecodeStandalone(encoded)
	if err != nil {
		t.Fatalf("DecodeStandalone: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", n, len(encoded))
	}
	if string(decoded.Data) != string(tup.Data) {
		t.Errorf("decoded payload mismatch")
	}
}

func TestTupleInplaceDecode(t *testing.T) {
	schema := personSchema()
	tup, err := NewTuple([]Value{IntValue(1), StringValue("x"), NewDecimalValue(decimal.NewFromInt(1))}, schema)
	if err != nil {
		t.Fatalf("NewTuple: %v", err)
	}

	buf := make([]byte, len(tup.Data)+16)
	copy(buf[5:], tup.Data)

	decoded := DecodeInplace(buf[5:], uint32(len(tup.Data)))
	if string(decoded.Data) != string(tup.Data) {
		t.Errorf("inplace decode mismatch")
	}

	// DecodeInplace must own a copy: mutating buf must not affect decoded.
	buf[5] ^= 0xFF
	if decoded.Data[0] == buf[5] {
		t.Errorf("DecodeInplace aliased the source buffer instead of copying it")
	}
}

func TestProject(t *testing.T) {
	schema := personSchema()
	tup, err := NewTuple([]Value{IntValue(5), StringValue("carol"), NewDecimalValue(decimal.NewFromInt(0))}, schema)
	if err != nil {
		t.Fatalf("NewTuple: %v", err)
	}

	keySchema := NewSchema([]ColumnDef{{Name: "name", Type: StringType}})
	key, err := tup.Project(schema, keySchema, []int{1})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	got, err := key.GetValue(keySchema, 0)
	if err != nil {
		t.Fatalf("GetValue on projected tuple: %v", err)
	}
	if got.String() != "carol" {
		t.Errorf("projected value = %q, want %q", got.String(), "carol")
	}
}

func TestNewTupleRejectsWrongArity(t *testing.T) {
	schema := personSchema()
	_, err := NewTuple([]Value{IntValue(1)}, schema)
	if err == nil {
		t.Fatal("expected an error for a values vector shorter than the schema")
	}
}
