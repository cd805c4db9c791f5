package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// Column order and header names are a compatibility contract with
// downstream consumers of the report.
var csvHeader = []string{"User", "Joined At", "Left At", "Duration"}

// FormatTimestamp renders a timestamp for the report in the fixed
// reference timezone it already carries.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatDuration renders a duration as H:MM:SS with no sub-second
// component.
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// WriteCSV serializes the aggregate as the tabular record set the
// sink delivers.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.User,
			FormatTimestamp(e.JoinedAt),
			FormatTimestamp(e.LeftAt),
			FormatDuration(e.Duration),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", e.User, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
