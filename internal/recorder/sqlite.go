package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"StockSentinel/internal/logger"
	"StockSentinel/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists alerts and quotes to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers query the history while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r, err := NewSQLRecorder(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

// NewSQLRecorder wraps an open database and runs migrations.
func NewSQLRecorder(db *sql.DB) (*SQLiteRecorder, error) {
	r := &SQLiteRecorder{db: db, log: logger.Component("recorder")}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			chat_id     INTEGER,
			price       INTEGER,
			reference   INTEGER,
			change_pct  REAL,
			open_pct    REAL,
			recipients  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,

		`CREATE TABLE IF NOT EXISTS quotes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			code        TEXT NOT NULL,
			current     INTEGER,
			open        INTEGER,
			high        INTEGER,
			low         INTEGER,
			prev_close  INTEGER,
			change_rate REAL,
			volume      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_ts ON quotes(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAlert(a *model.Alert, recipients int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO alerts
		(id, timestamp, kind, chat_id, price, reference, change_pct, open_pct, recipients)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.FiredAt.Unix(), string(a.Kind), a.ChatID,
		a.Price, a.Reference, a.ChangePct, a.OpenPct, recipients,
	)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordQuote(code string, q *model.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO quotes
		(timestamp, code, current, open, high, low, prev_close, change_rate, volume)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		q.Timestamp.Unix(), code, q.Current, q.Open, q.High, q.Low,
		q.PrevClose, q.ChangeRate, q.Volume,
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
