package tabular

// Sheet is a named, ordered sequence of records.
type Sheet struct {
	Name string
	Rows []Record
}

// Columns returns the column order declared by the first row.
func (s Sheet) Columns() []string {
	if len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[0].Columns()
}

// Dataset holds the sheets of one decoded file in file order.
type Dataset struct {
	Sheets []Sheet
}

// Add appends a sheet. Names are not deduplicated.
func (d *Dataset) Add(s Sheet) {
	d.Sheets = append(d.Sheets, s)
}

// Sheet looks up the first sheet with the given name.
func (d *Dataset) Sheet(name string) (Sheet, bool) {
	if d == nil {
		return Sheet{}, false
	}
	for _, s := range d.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// Names lists sheet names in order.
func (d *Dataset) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.Sheets))
	for i, s := range d.Sheets {
		names[i] = s.Name
	}
	return names
}

// Len returns the number of sheets.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Sheets)
}
