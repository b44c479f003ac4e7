package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"visitorlog/internal/visitor"
)

// Header is the fixed column order of every export.
var Header = []string{"Name", "Surname", "Company", "Host", "Date", "Time In", "Time Out"}

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Visitors"
)

// ExportFilename is visitor_log_<date>.<ext> for the day of now.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("visitor_log_%s.%s", now.Format(visitor.DateLayout), ext)
}

func exportRow(r visitor.Record) []string {
	out := r.TimeOut
	if out == "" {
		out = "N/A"
	}
	return []string{r.Name, r.Surname, r.Company, r.Host, r.Date, r.TimeIn, out}
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, records []visitor.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(exportRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same table as WriteCSV as a single-sheet workbook.
func WriteXLSX(w io.Writer, records []visitor.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	for i, r := range records {
		if err := setRow(f, i+2, exportRow(r)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetName, "A", "G", 16); err != nil {
		return err
	}
	return f.Write(w)
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheetName, cell, &cells)
}
