// Package export renders payroll runs as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gartstein/timetrack/internal/timesheet/workflow"
)

var header = []string{"Date", "Employee", "Email", "Regular", "Overtime", "PTO", "Unpaid", "Notes"}

// WriteCSV writes the payroll rows with a header line.
func WriteCSV(w io.Writer, rows []workflow.PayrollRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			row.UserName,
			row.Email,
			fmt.Sprintf("%.2f", row.Regular),
			fmt.Sprintf("%.2f", row.Overtime),
			fmt.Sprintf("%.2f", row.PTO),
			fmt.Sprintf("%.2f", row.Unpaid),
			row.Notes,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Filename names the download for a given payroll month.
func Filename(year, month int) string {
	return fmt.Sprintf("payroll_%d_%02d.csv", year, month)
}
