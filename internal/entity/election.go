package entity

// EntityRef is one row of the index page: a municipality and the link to its results.
type EntityRef struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	DetailURL string `json:"detail_url"`
}

// EntitySummary holds the turnout figures of a detail page. Missing or
// unparsable values are 0.
type EntitySummary struct {
	Registered int `json:"registered"`
	Issued     int `json:"issued"`
	Valid      int `json:"valid"`
}

// CategoryTally maps party names to vote counts. Order keeps the names in the
// order they first appeared on the page.
type CategoryTally struct {
	Counts map[string]int
	Order  []string
}

// NewCategoryTally returns an empty tally.
func NewCategoryTally() CategoryTally {
	return CategoryTally{Counts: make(map[string]int)}
}

// Set records count for name. A repeated name overwrites the count but keeps
// its first position in Order.
func (t *CategoryTally) Set(name string, count int) {
	if t.Counts == nil {
		t.Counts = make(map[string]int)
	}
	if _, seen := t.Counts[name]; !seen {
		t.Order = append(t.Order, name)
	}
	t.Counts[name] = count
}

// Len returns the number of distinct categories.
func (t CategoryTally) Len() int {
	return len(t.Order)
}

// DetailPage is everything extracted from one detail page.
type DetailPage struct {
	Summary EntitySummary
	Tally   CategoryTally
}

// OutputRow is one municipality in the consolidated dataset.
type OutputRow struct {
	Code    string         `json:"code"`
	Name    string         `json:"name"`
	Summary EntitySummary  `json:"summary"`
	Counts  map[string]int `json:"counts"`
}

// Count returns the votes for category, 0 when the party did not run there.
func (r OutputRow) Count(category string) int {
	return r.Counts[category]
}
