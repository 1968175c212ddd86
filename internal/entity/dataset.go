package entity

import "strconv"

// SummaryColumns are the fixed leading columns of every dataset.
var SummaryColumns = []string{"code", "name", "registered", "issued", "valid"}

// Dataset is the consolidated result of one run.
type Dataset struct {
	Schema []string    `json:"schema"`
	Rows   []OutputRow `json:"rows"`
	Report RunReport   `json:"report"`
}

// Header returns the summary columns followed by the category schema.
func (d *Dataset) Header() []string {
	h := make([]string, 0, len(SummaryColumns)+len(d.Schema))
	h = append(h, SummaryColumns...)
	return append(h, d.Schema...)
}

// Values returns the numeric columns of row aligned to the header, starting
// at "registered". Categories absent from the row are 0.
func (d *Dataset) Values(row OutputRow) []int {
	v := make([]int, 0, 3+len(d.Schema))
	v = append(v, row.Summary.Registered, row.Summary.Issued, row.Summary.Valid)
	for _, name := range d.Schema {
		v = append(v, row.Count(name))
	}
	return v
}

// Records renders every row as text, aligned to Header.
func (d *Dataset) Records() [][]string {
	records := make([][]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		rec := make([]string, 0, len(SummaryColumns)+len(d.Schema))
		rec = append(rec, row.Code, row.Name)
		for _, n := range d.Values(row) {
			rec = append(rec, strconv.Itoa(n))
		}
		records = append(records, rec)
	}
	return records
}
