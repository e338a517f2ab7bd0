package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"paygate-hq/ceres/pkg/validator/verdict"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id               TEXT PRIMARY KEY,
	ts               TEXT NOT NULL,
	request_id       TEXT NOT NULL,
	merchant_id      TEXT NOT NULL,
	beneficiary_type TEXT NOT NULL,
	tax_id           TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	ruleset_version  TEXT NOT NULL,
	errors           TEXT NOT NULL DEFAULT '[]',
	warnings         TEXT NOT NULL DEFAULT '[]',
	escalations      TEXT NOT NULL DEFAULT '[]',
	error            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_ts ON audit_entries(ts);
CREATE INDEX IF NOT EXISTS idx_audit_entries_merchant ON audit_entries(merchant_id, ts);
`

// SQLiteSink stores audit entries in a local sqlite database.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the audit database at path.
// ":memory:" gives an ephemeral store for tests.
func OpenSQLite(path string) (*SQLiteSink, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// One writer; sqlite serializes writes anyway and this avoids
	// SQLITE_BUSY churn under load.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply audit schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Record inserts one entry.
func (s *SQLiteSink) Record(ctx context.Context, entry Entry) error {
	errorsJSON, err := marshalDiags(entry.Errors)
	if err != nil {
		return err
	}
	warningsJSON, err := marshalDiags(entry.Warnings)
	if err != nil {
		return err
	}
	escalationsJSON, err := marshalDiags(entry.Escalations)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_entries
			(id, ts, request_id, merchant_id, beneficiary_type, tax_id,
			 status, ruleset_version, errors, warnings, escalations, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.RequestID,
		entry.MerchantID,
		entry.BeneficiaryType,
		entry.TaxID,
		entry.Status,
		entry.RulesetVersion,
		errorsJSON,
		warningsJSON,
		escalationsJSON,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Prune deletes entries older than cutoff and returns how many went.
func (s *SQLiteSink) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_entries WHERE ts < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored entries.
func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func marshalDiags(diags []verdict.Diagnostic) (string, error) {
	if len(diags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(diags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	return string(b), nil
}
