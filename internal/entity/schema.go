package entity

// Extend returns schema followed by every name in names that is not yet
// present, in the order of names. The input slice is never modified and
// existing entries never move.
func Extend(schema, names []string) []string {
	out := make([]string, len(schema), len(schema)+len(names))
	copy(out, schema)

	seen := make(map[string]struct{}, len(out)+len(names))
	for _, n := range out {
		seen[n] = struct{}{}
	}
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Schema is the append-only column list of a single run. The first page
// folded in fixes the initial order; later pages only append.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{index: make(map[string]int)}
}

// Fold appends the names not yet present and reports how many were added.
func (s *Schema) Fold(names []string) int {
	added := 0
	for _, n := range names {
		if _, ok := s.index[n]; ok {
			continue
		}
		s.index[n] = len(s.names)
		s.names = append(s.names, n)
		added++
	}
	return added
}

// Position returns the column index of name.
func (s *Schema) Position(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Names returns a copy of the schema in column order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.names)
}
