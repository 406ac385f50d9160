// Package export renders the reconciled dashboard as an XLSX workbook.
package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/disclosure-dashboard/internal/dashboard"
)

// Sheet names.
const (
	DashboardSheet = "Dashboard"
	EvidenceSheet  = "Evidence"
)

var evidenceHeader = []string{"Company", "Year", "Data Point", "Answer", "Document", "Page", "Quote"}

// Workbook builds the dashboard and evidence sheets for a view.
func Workbook(v *dashboard.View) (*xlsx.File, error) {
	f := xlsx.NewFile()

	grid, err := f.AddSheet(DashboardSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add dashboard sheet")
	}
	evidence, err := f.AddSheet(EvidenceSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add evidence sheet")
	}

	header := append([]string{"Company", "Year"}, v.Columns...)
	addRow(grid, header)
	addRow(evidence, evidenceHeader)

	for _, row := range v.Rows() {
		year := strconv.Itoa(row.Year)
		line := make([]string, 0, len(row.Cells)+2)
		line = append(line, row.Company, year)
		for _, c := range row.Cells {
			line = append(line, c.Display)
			if c.Record == nil {
				continue
			}
			for _, ev := range c.Record.Evidence {
				page := ""
				if ev.PageNumber > 0 {
					page = strconv.Itoa(ev.PageNumber)
				}
				addRow(evidence, []string{row.Company, year, c.Label, ev.Answer, ev.DocumentName, page, ev.Quotes})
			}
		}
		addRow(grid, line)
	}

	return f, nil
}

// WriteXLSX writes the workbook for v to w.
func WriteXLSX(w io.Writer, v *dashboard.View) error {
	f, err := Workbook(v)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// SaveXLSX writes the workbook for v to path.
func SaveXLSX(path string, v *dashboard.View) error {
	f, err := Workbook(v)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
