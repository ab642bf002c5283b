package submission

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID          int64     `bun:"id,pk,autoincrement"`
	SubmittedAt time.Time `bun:"submitted_at,notnull"`
	SessionID   string    `bun:"session_id"`
	FarmerName  string    `bun:"farmer_name,notnull"`
	LandArea    string    `bun:"land_area,notnull"`
	Scheme      string    `bun:"scheme,notnull"`
	LoanAmount  string    `bun:"loan_amount,notnull"`
}

func rowFrom(sub contractx.Submission) *submissionRow {
	return &submissionRow{
		SubmittedAt: sub.Timestamp.UTC(),
		SessionID:   sub.SessionID,
		FarmerName:  sub.Name,
		LandArea:    sub.Area,
		Scheme:      sub.Scheme,
		LoanAmount:  sub.Amount,
	}
}

// PostgresLog writes submissions to the submissions table.
type PostgresLog struct {
	db *bun.DB
}

var _ contractx.SubmissionLog = (*PostgresLog)(nil)

// NewBunDB opens a lazy connection pool; nothing is dialed until first use.
func NewBunDB(dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrConfig)
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func NewPostgresLog(db *bun.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

// OpenPostgres connects and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresLog, error) {
	db, err := NewBunDB(dsn)
	if err != nil {
		return nil, err
	}
	l := NewPostgresLog(db)
	if err := l.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *PostgresLog) createTableQuery() *bun.CreateTableQuery {
	return l.db.NewCreateTable().Model((*submissionRow)(nil)).IfNotExists()
}

func (l *PostgresLog) insertQuery(sub contractx.Submission) *bun.InsertQuery {
	return l.db.NewInsert().Model(rowFrom(sub))
}

func (l *PostgresLog) Migrate(ctx context.Context) error {
	if _, err := l.createTableQuery().Exec(ctx); err != nil {
		return fmt.Errorf("%w: create submissions table: %v", contractx.ErrSubmission, err)
	}
	return nil
}

func (l *PostgresLog) Append(ctx context.Context, sub contractx.Submission) error {
	if _, err := l.insertQuery(sub).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert submission: %v", contractx.ErrSubmission, err)
	}
	return nil
}

func (l *PostgresLog) Close() error {
	return l.db.Close()
}
