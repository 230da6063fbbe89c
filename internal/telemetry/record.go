package telemetry

import "time"

// Field is a single name/value pair extracted from a telemetry line.
// Values stay raw strings; numeric interpretation is deferred to the
// statistics layer so the data log can carry the wire text verbatim.
type Field struct {
	Name  string
	Value string
}

// Fields is an ordered collection of parsed fields. Order is first-seen
// within the line, which downstream schema discovery relies on.
type Fields []Field

// Get returns the value for name and whether it is present.
func (f Fields) Get(name string) (string, bool) {
	for _, fld := range f {
		if fld.Name == name {
			return fld.Value, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, fld := range f {
		names[i] = fld.Name
	}
	return names
}

// Len returns the number of fields.
func (f Fields) Len() int { return len(f) }

// set overwrites an existing field in place or appends a new one, keeping
// the first-seen position when a name repeats within a line.
func (f Fields) set(name, value string) Fields {
	for i := range f {
		if f[i].Name == name {
			f[i].Value = value
			return f
		}
	}
	return append(f, Field{Name: name, Value: value})
}

// Record is one successfully parsed telemetry line. It is created once per
// line and never mutated afterwards.
type Record struct {
	Timestamp time.Time
	Raw       string
	Fields    Fields
}
