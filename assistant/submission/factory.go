package submission

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
)

// Log is a submission sink that may hold resources.
type Log interface {
	contractx.SubmissionLog
	io.Closer
}

type csvCloser struct{ *CSVLog }

func (csvCloser) Close() error { return nil }

// Open builds the configured backend.
func Open(ctx context.Context, backend, csvPath, dsn string) (Log, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendCSV:
		return csvCloser{NewCSVLog(csvPath, time.Local)}, nil
	case BackendPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: unknown submission backend %q", contractx.ErrConfig, backend)
	}
}
