package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load reads a dataset from a .csv or .xlsx file.
func Load(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset %q: %w", path, err)
		}
		defer f.Close()

		d, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("read dataset %q: %w", path, err)
		}
		return d, nil
	}
}

// ReadCSV parses a header-driven CSV dataset.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRows(rows)
}

// LoadXLSX reads the first sheet of a workbook.
func LoadXLSX(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %q has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

type columns struct {
	county, state, date, total, code, months int
}

func indexColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	cols := columns{state: -1}
	var missing []string
	required := []struct {
		name string
		dst  *int
	}{
		{ColCounty, &cols.county},
		{ColDate, &cols.date},
		{ColEVTotal, &cols.total},
		{ColCountyEncoded, &cols.code},
		{ColMonthsSinceStart, &cols.months},
	}
	for _, c := range required {
		i, ok := idx[c.name]
		if !ok {
			missing = append(missing, c.name)
			continue
		}
		*c.dst = i
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	if i, ok := idx[ColState]; ok {
		cols.state = i
	}
	return cols, nil
}

func fromRows(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.New("dataset is empty")
	}
	cols, err := indexColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var (
		records []Record
		skipped int
	)
	for _, row := range rows[1:] {
		rec, ok := parseRow(row, cols)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset has no usable rows (%d skipped)", skipped)
	}

	d := New(records)
	d.skipped = skipped
	return d, nil
}

func parseRow(row []string, cols columns) (Record, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	county := get(cols.county)
	if county == "" {
		return Record{}, false
	}
	date, err := ParseDate(get(cols.date))
	if err != nil {
		return Record{}, false
	}
	total, err := parseNumber(get(cols.total))
	if err != nil {
		return Record{}, false
	}
	code, err := parseInt(get(cols.code))
	if err != nil {
		return Record{}, false
	}
	months, err := parseInt(get(cols.months))
	if err != nil {
		return Record{}, false
	}

	return Record{
		County:           county,
		State:            get(cols.state),
		Date:             date,
		EVTotal:          total,
		CountyCode:       code,
		MonthsSinceStart: months,
	}, true
}
