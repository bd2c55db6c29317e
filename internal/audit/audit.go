// Package audit persists an append-only record of every successful token
// redemption, uniquely keyed by jti.
package audit

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentmint-dev/agentmint/internal/errors"
	"github.com/agentmint-dev/agentmint/internal/logger"
)

const (
	maxSubLen    = 256
	maxActionLen = 64
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	jti TEXT PRIMARY KEY,
	sub TEXT NOT NULL,
	action TEXT NOT NULL,
	verified_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_verified_at ON audit_log(verified_at);
`

// Log is the audit store. The single database handle is serialized behind a
// mutex; readers of Recent queue behind writers.
type Log struct {
	mu sync.Mutex
	db *sql.DB
}

// Entry is one redemption record.
type Entry struct {
	JTI        string `json:"jti"`
	Sub        string `json:"sub"`
	Action     string `json:"action"`
	VerifiedAt string `json:"verified_at"`
}

// Open creates or opens the audit database at path and bootstraps the schema.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Database(err)
	}
	// A single connection keeps writes ordered and matches the mutex
	// discipline around the handle.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Database(err)
	}
	logger.Database().Info().Str("path", path).Msg("audit store ready")
	return &Log{db: db}, nil
}

// OpenInMemory opens a throwaway database for tests.
func OpenInMemory() (*Log, error) {
	return Open(":memory:")
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append inserts one redemption row. A uniqueness violation on jti surfaces
// as a database error; callers treat it as equivalent to replay. Sub and
// action are truncated at rune boundaries as defense-in-depth against
// upstream validation gaps.
func (l *Log) Append(jti, sub, action string, verifiedAt time.Time) error {
	sub = truncate(sub, maxSubLen)
	action = truncate(action, maxActionLen)

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(
		"INSERT INTO audit_log (jti, sub, action, verified_at) VALUES (?, ?, ?, ?)",
		jti, sub, action, verifiedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Database(err)
	}
	return nil
}

// Recent returns up to limit rows in descending insertion order.
func (l *Log) Recent(limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(
		"SELECT jti, sub, action, verified_at FROM audit_log ORDER BY rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.Database(err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.JTI, &e.Sub, &e.Action, &e.VerifiedAt); err != nil {
			return nil, errors.Database(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Database(err)
	}
	return entries, nil
}

// IsDuplicate reports whether err is the jti uniqueness violation.
func IsDuplicate(err error) bool {
	appErr, ok := err.(*errors.AppError)
	return ok && appErr.Code == errors.CodeDatabase &&
		strings.Contains(appErr.Detail, "UNIQUE constraint failed")
}

// truncate cuts s to at most max runes without splitting a character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
