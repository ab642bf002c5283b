// Package submission holds the append-only sinks for submitted applications.
package submission

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

const (
	DefaultCSVPath  = "gram_sahayak_db.csv"
	TimestampLayout = "2006-01-02 15:04:05"
)

var csvHeader = []string{"Timestamp", "Farmer Name", "Land Area", "Scheme", "Loan Amount"}

// CSVLog appends one row per submission. The header is written when the file
// is missing or empty.
type CSVLog struct {
	mu       sync.Mutex
	path     string
	location *time.Location
}

var _ contractx.SubmissionLog = (*CSVLog)(nil)

func NewCSVLog(path string, loc *time.Location) *CSVLog {
	if path == "" {
		path = DefaultCSVPath
	}
	if loc == nil {
		loc = time.Local
	}
	return &CSVLog{path: path, location: loc}
}

func (l *CSVLog) Append(ctx context.Context, sub contractx.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create dir: %v", contractx.ErrSubmission, err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", contractx.ErrSubmission, l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", contractx.ErrSubmission, l.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("%w: write header: %v", contractx.ErrSubmission, err)
		}
	}
	row := []string{
		sub.Timestamp.In(l.location).Format(TimestampLayout),
		sub.Name,
		sub.Area,
		sub.Scheme,
		sub.Amount,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("%w: write row: %v", contractx.ErrSubmission, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush: %v", contractx.ErrSubmission, err)
	}
	return nil
}
