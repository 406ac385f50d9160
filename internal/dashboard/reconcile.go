// Package dashboard reshapes flat emission records into the company, year and
// data point grid the dashboard displays.
package dashboard

import (
	"sort"

	"github.com/sells-group/disclosure-dashboard/internal/model"
)

// NotAvailable is displayed for cells without an answer.
const NotAvailable = "N/A"

// View is the reconciled dashboard.
type View struct {
	// Cells maps company -> year -> data point label -> record.
	Cells map[string]map[int]map[string]model.EmissionRecord `json:"cells"`
	// Companies in first-seen input order.
	Companies []string `json:"companies"`
	// Years per company in first-seen input order.
	Years map[string][]int `json:"years"`
	// Columns are the data point labels present, in display order.
	Columns []string `json:"columns"`
}

// Reconcile groups records by company, year and label. Input order decides
// company and year order. Init placeholders create the company and year but
// never a column. A repeated (company, year, label) keeps the last record.
func Reconcile(records []model.EmissionRecord) *View {
	v := &View{
		Cells:     make(map[string]map[int]map[string]model.EmissionRecord),
		Companies: []string{},
		Years:     make(map[string][]int),
		Columns:   []string{},
	}
	seenColumn := make(map[string]bool)

	for _, rec := range records {
		years, ok := v.Cells[rec.CompanyName]
		if !ok {
			years = make(map[int]map[string]model.EmissionRecord)
			v.Cells[rec.CompanyName] = years
			v.Companies = append(v.Companies, rec.CompanyName)
		}
		labels, ok := years[rec.Year]
		if !ok {
			labels = make(map[string]model.EmissionRecord)
			years[rec.Year] = labels
			v.Years[rec.CompanyName] = append(v.Years[rec.CompanyName], rec.Year)
		}

		if rec.DataPointType == model.LabelInit {
			continue
		}
		labels[rec.DataPointType] = rec
		if !seenColumn[rec.DataPointType] {
			seenColumn[rec.DataPointType] = true
			v.Columns = append(v.Columns, rec.DataPointType)
		}
	}

	sortColumns(v.Columns)
	return v
}

// sortColumns orders preferred labels first, in preferred order. Other labels
// follow in first-seen order.
func sortColumns(cols []string) {
	rank := make(map[string]int, len(model.PreferredColumns))
	for i, l := range model.PreferredColumns {
		rank[l] = i
	}
	key := func(l string) int {
		if r, ok := rank[l]; ok {
			return r
		}
		return len(model.PreferredColumns)
	}
	sort.SliceStable(cols, func(i, j int) bool {
		return key(cols[i]) < key(cols[j])
	})
}

// Cell looks up one record. ok is false when the company has no record for
// that year and label.
func (v *View) Cell(company string, year int, label string) (model.EmissionRecord, bool) {
	rec, ok := v.Cells[company][year][label]
	return rec, ok
}

// Row is one (company, year) line of the grid, with one cell per column.
type Row struct {
	Company string `json:"company"`
	Year    int    `json:"year"`
	Cells   []Cell `json:"cells"`
}

// Cell is one grid value.
type Cell struct {
	Label    string                `json:"label"`
	Display  string                `json:"display"`
	Record   *model.EmissionRecord `json:"record,omitempty"`
	Approval *model.Approval       `json:"approval,omitempty"`
}

// Rows flattens the view in display order.
func (v *View) Rows() []Row {
	rows := []Row{}
	for _, company := range v.Companies {
		for _, year := range v.Years[company] {
			row := Row{Company: company, Year: year, Cells: make([]Cell, len(v.Columns))}
			for i, col := range v.Columns {
				c := Cell{Label: col, Display: NotAvailable}
				if rec, ok := v.Cell(company, year, col); ok {
					if rec.HasAnswer() {
						c.Display = rec.FinalAnswer
					}
					approval := rec.Approval()
					c.Record = &rec
					c.Approval = &approval
				}
				row.Cells[i] = c
			}
			rows = append(rows, row)
		}
	}
	return rows
}
