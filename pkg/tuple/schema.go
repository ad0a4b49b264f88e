package tuple

import "fmt"

// ColumnDef names and types a schema column before offsets are assigned.
type ColumnDef struct {
	Name string
	Type ColumnType
}

// Column is a fully laid-out schema column: its declared type plus the
// byte offset assigned to it within a tuple's fixed-length region.
type Column struct {
	Name   string
	Type   ColumnType
	Offset int
}

// Schema lays out a fixed-length region for a row: inlined columns occupy
// their real width there, non-inlined columns occupy a pointer/null-sentinel
// slot there and their payload lives in the tuple's trailing area.
type Schema struct {
	columns     []Column
	fixedLength int
	uninlined   []int
}

// NewSchema assigns offsets to defs in declaration order and returns the
// resulting layout.
func NewSchema(defs []ColumnDef) *Schema {
	s := &Schema{columns: make([]Column, len(defs))}
	cursor := 0
	for i, d := range defs {
		s.columns[i] = Column{Name: d.Name, Type: d.Type, Offset: cursor}
		cursor += d.Type.FixedWidth()
		if !d.Type.Inlined() {
			s.uninlined = append(s.uninlined, i)
		}
	}
	s.fixedLength = cursor
	return s
}

// NumColumns returns the number of columns in the schema.
func (s *Schema) NumColumns() int { return len(s.columns) }

// Column returns the i'th column's layout.
func (s *Schema) Column(i int) Column { return s.columns[i] }

// FixedLength returns the size, in bytes, of the schema's fixed-length
// region (schema.GetLength() in the reference implementation).
func (s *Schema) FixedLength() int { return s.fixedLength }

// UninlinedColumns returns the indexes of columns whose payload lives in
// the tuple's trailing varlen area.
func (s *Schema) UninlinedColumns() []int { return s.uninlined }

// FindColumn returns the index of the column with the given name, or -1.
func (s *Schema) FindColumn(name string) int {
	for i, c := range s.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(columns=%d, fixedLength=%d)", len(s.columns), s.fixedLength)
}
