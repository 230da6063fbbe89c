package telemetry

import "strings"

// ParseLine extracts ordered name/value pairs from one line of anemometer
// output. It never fails: malformed segments degrade to fewer (or zero)
// extracted fields.
//
// Two wire layouts exist. The comma layout carries one "NAME VALUE" pair
// per comma-separated segment; segments that do not split into exactly two
// non-empty tokens on the first space are dropped. The bare layout has no
// commas and pairs whitespace tokens consecutively; a trailing unpaired
// token is dropped.
func ParseLine(line string) Fields {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var fields Fields

	if strings.Contains(line, ",") {
		for _, segment := range strings.Split(line, ",") {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			name, value, ok := strings.Cut(segment, " ")
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			value = strings.TrimSpace(value)
			if name == "" || value == "" {
				continue
			}
			fields = fields.set(name, value)
		}
		return fields
	}

	tokens := strings.Fields(line)
	for i := 0; i+1 < len(tokens); i += 2 {
		fields = fields.set(tokens[i], tokens[i+1])
	}
	return fields
}
