package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Attendance"

// Columns of the attendance sheet
var Columns = []string{
	"Name",
	"Surname",
	"Father's name",
	"Faculty",
	"Direction",
	"Group",
	"Status",
	"Arrival time",
	"Late time",
	"Probability",
	"Mean distance",
	"Variance",
	"Std deviation",
}

// XLSXWriter writes the report spreadsheet into Dir.
type XLSXWriter struct {
	Dir string
}

// FileName returns the spreadsheet name for a session ended at r.EndedAt.
func FileName(r *Report) string {
	return fmt.Sprintf("attendance_%s.xlsx", r.EndedAt.Format(constants.ReportTimestampLayout))
}

// Deliver writes the spreadsheet and adds its path to r.Files.
func (w *XLSXWriter) Deliver(_ context.Context, r *Report) error {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.Wrap(apperror.KindPersistence, err, "create report directory")
	}

	path := filepath.Join(dir, FileName(r))
	if err := WriteXLSX(path, r); err != nil {
		return apperror.Wrap(apperror.KindPersistence, err, "write report "+path)
	}
	r.Files = append(r.Files, path)
	return nil
}

// WriteXLSX writes one row per entry, in ledger order. Statistics that are
// zero are left blank.
func WriteXLSX(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	for i, e := range r.Entries {
		p := e.Person
		row := []any{
			p.Name,
			p.Surname,
			p.FatherName,
			p.Faculty,
			p.Direction,
			p.Group,
			e.Status.Label(),
			formatClock(e.ArrivalTime),
			formatClock(e.LateTime),
			blankIfZero(e.Probability, "%.2f%%", 100),
			blankIfZero(e.Mean, "%.4f", 1),
			blankIfZero(e.Variance, "%.4f", 1),
			blankIfZero(e.StdDev, "%.4f", 1),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func blankIfZero(v float64, format string, scale float64) string {
	if v <= 0 {
		return ""
	}
	return fmt.Sprintf(format, v*scale)
}
