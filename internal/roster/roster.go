// Package roster reads lists of (company, year) pairs to add to the dashboard
// from YAML, CSV or XLSX files.
package roster

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"
)

// Entry is one company and disclosure year.
type Entry struct {
	Company string `yaml:"company"`
	Year    int    `yaml:"year"`
}

// File is the YAML roster layout.
type File struct {
	Companies []Entry `yaml:"companies"`
}

// Load reads a roster, choosing the parser from the file extension.
func Load(path string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "roster: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ParseYAML(f)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "roster: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ParseCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("roster: unsupported file type %q", filepath.Ext(path))
	}
}

// ParseYAML decodes a `companies:` list.
func ParseYAML(r io.Reader) ([]Entry, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "roster: decode yaml")
	}
	for i, e := range f.Companies {
		f.Companies[i].Company = strings.TrimSpace(e.Company)
		if err := validate(f.Companies[i], i+1); err != nil {
			return nil, err
		}
	}
	return f.Companies, nil
}

// ParseCSV reads rows with a header naming the company and year columns.
func ParseCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "roster: read csv")
	}
	return fromRows(rows)
}

// ReadXLSX reads the first sheet of a workbook with the same layout as ParseCSV.
func ReadXLSX(path string) ([]Entry, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("roster: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]Entry, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	companyCol, yearCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "company", "company_name", "companyname":
			companyCol = i
		case "year":
			yearCol = i
		}
	}
	if companyCol < 0 || yearCol < 0 {
		return nil, eris.New("roster: header must name company and year columns")
	}

	var entries []Entry
	for n, row := range rows[1:] {
		line := n + 2
		if isBlank(row) {
			continue
		}
		if companyCol >= len(row) || yearCol >= len(row) {
			return nil, eris.Errorf("roster: row %d: missing columns", line)
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[yearCol]))
		if err != nil {
			return nil, eris.Wrapf(err, "roster: row %d: invalid year %q", line, row[yearCol])
		}
		e := Entry{Company: strings.TrimSpace(row[companyCol]), Year: year}
		if err := validate(e, line); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func validate(e Entry, line int) error {
	if e.Company == "" {
		return eris.Errorf("roster: entry %d: company is required", line)
	}
	if e.Year <= 0 {
		return eris.Errorf("roster: entry %d: year must be positive", line)
	}
	return nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
