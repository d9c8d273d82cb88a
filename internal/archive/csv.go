package archive

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/wolfman30/oneroot-leads/internal/leads"
)

// CSVHeader is the first row of every lead export.
var CSVHeader = []string{"Phone Number", "Source", "Notes", "Device Type", "Timestamp", "Page URL"}

const csvTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ExportFileName names a download taken at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("oneroot_phone_numbers_%s.csv", now.UTC().Format("2006-01-02"))
}

// WriteCSV renders rows in insertion order.
func WriteCSV(w io.Writer, rows []leads.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("archive: write header: %w", err)
	}
	for _, l := range rows {
		ts := ""
		if !l.Timestamp.IsZero() {
			ts = l.Timestamp.UTC().Format(csvTimestampLayout)
		}
		record := []string{l.PhoneNumber, string(l.Source), l.Notes, string(l.DeviceType), ts, l.PageURL}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("archive: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("archive: flush: %w", err)
	}
	return nil
}
