package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

var forecastHeaders = []string{"Date", "Predicted EV Total", "Cumulative", "Source", "Monthly % Change"}

func formatChange(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// WriteCSV writes the forecast table.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(forecastHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range r.Forecast {
		row := []string{
			p.Date.Format(dateLayout),
			strconv.FormatInt(p.Predicted, 10),
			strconv.FormatFloat(p.Cumulative, 'f', -1, 64),
			SourceForecast,
			formatChange(p.ChangePct),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sheet names of the exported workbook.
const (
	SheetForecast = "Forecast"
	SheetHistory  = "History"
	SheetSummary  = "Summary"
)

// Workbook builds an XLSX workbook with forecast, history and summary sheets.
// The caller closes it.
func (r *Report) Workbook() (_ *excelize.File, err error) {
	f := excelize.NewFile()
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetForecast); err != nil {
		return nil, fmt.Errorf("rename sheet %s: %w", SheetForecast, err)
	}

	for i, header := range forecastHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetForecast, cell, header)
		f.SetColWidth(SheetForecast, colName(i), colName(i), 20)
	}
	for i, p := range r.Forecast {
		row := i + 2
		f.SetCellValue(SheetForecast, fmt.Sprintf("A%d", row), p.Date.Format(dateLayout))
		f.SetCellValue(SheetForecast, fmt.Sprintf("B%d", row), p.Predicted)
		f.SetCellValue(SheetForecast, fmt.Sprintf("C%d", row), p.Cumulative)
		f.SetCellValue(SheetForecast, fmt.Sprintf("D%d", row), SourceForecast)
		if p.ChangePct != nil {
			f.SetCellValue(SheetForecast, fmt.Sprintf("E%d", row), *p.ChangePct)
		}
	}

	if _, err := f.NewSheet(SheetHistory); err != nil {
		return nil, fmt.Errorf("add sheet %s: %w", SheetHistory, err)
	}
	historyHeaders := []string{"Date", "Electric Vehicle (EV) Total", "Cumulative", "Source"}
	for i, header := range historyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetHistory, cell, header)
		f.SetColWidth(SheetHistory, colName(i), colName(i), 24)
	}
	for i, h := range r.History {
		row := i + 2
		f.SetCellValue(SheetHistory, fmt.Sprintf("A%d", row), h.Date.Format(dateLayout))
		f.SetCellValue(SheetHistory, fmt.Sprintf("B%d", row), h.Total)
		f.SetCellValue(SheetHistory, fmt.Sprintf("C%d", row), h.Cumulative)
		f.SetCellValue(SheetHistory, fmt.Sprintf("D%d", row), SourceHistorical)
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, fmt.Errorf("add sheet %s: %w", SheetSummary, err)
	}
	summary := [][]any{
		{"County", r.Summary.County},
		{"Current EV Count", r.Summary.Current},
		{"Projected EV Count", r.Summary.Projected},
		{"Growth (%)", r.Summary.GrowthPct},
		{"Forecast Through", r.Summary.Through.Format(dateLayout)},
		{"Horizon (months)", r.Summary.Horizon},
	}
	for i, row := range summary {
		for j, value := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			f.SetCellValue(SheetSummary, cell, value)
		}
	}
	f.SetColWidth(SheetSummary, "A", "B", 22)

	return f, nil
}

// WriteXLSX writes the workbook to w.
func (r *Report) WriteXLSX(w io.Writer) error {
	f, err := r.Workbook()
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func colName(i int) string {
	name, _ := excelize.ColumnNumberToName(i + 1)
	return name
}
