package csvlog

import "github.com/windtrace/windtrace/internal/telemetry"

// TimestampColumn is the synthetic first column of every data log.
const TimestampColumn = "timestamp"

// Schema tracks the union of parameter names seen during a session, in
// first-seen order. Columns are append-only: once a name is added it is
// never removed or reordered, so every previously written row stays
// positionally valid for the columns that existed when it was written.
type Schema struct {
	columns []string
	known   map[string]struct{}
}

// NewSchema returns a schema containing only the timestamp column.
func NewSchema() *Schema {
	return &Schema{
		columns: []string{TimestampColumn},
		known:   map[string]struct{}{TimestampColumn: {}},
	}
}

// Observe appends any field names not yet part of the schema and reports
// whether the schema grew. Observing the same fields again is a no-op.
func (s *Schema) Observe(fields telemetry.Fields) bool {
	grew := false
	for _, f := range fields {
		if _, ok := s.known[f.Name]; ok {
			continue
		}
		s.columns = append(s.columns, f.Name)
		s.known[f.Name] = struct{}{}
		grew = true
	}
	return grew
}

// Header returns a copy of the current column list, timestamp first.
func (s *Schema) Header() []string {
	header := make([]string, len(s.columns))
	copy(header, s.columns)
	return header
}

// Width returns the current number of columns.
func (s *Schema) Width() int { return len(s.columns) }
