package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// Journal persists closed trades to a sqlite database. A nil *Journal is a
// valid no-op journal.
type Journal struct {
	db *sql.DB
}

// Open opens (and if needed creates) the journal database at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		path = "data/journal.db"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeJournalWriteFailed, err, "failed to create journal directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to open journal database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := configureSQLite(db); err != nil {
		_ = db.Close()

		return nil, err
	}

	journal := &Journal{db: db}
	if err := journal.migrate(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return journal, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA synchronous = NORMAL;`,
		`PRAGMA busy_timeout = 5000;`,
	}

	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(errors.ErrCodeJournalWriteFailed, err, "apply sqlite pragma failed: %s", stmt)
		}
	}

	return nil
}

func (j *Journal) migrate() error {
	schema := `CREATE TABLE IF NOT EXISTS closed_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		entry_price REAL NOT NULL,
		entry_time TEXT NOT NULL,
		exit_price REAL NOT NULL,
		exit_time TEXT NOT NULL,
		quantity REAL NOT NULL,
		pnl REAL NOT NULL,
		pnl_pct REAL NOT NULL,
		reason TEXT NOT NULL
	);`

	if _, err := j.db.Exec(schema); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to migrate journal schema", err)
	}

	return nil
}

// RecordClosedTrade appends one completed round trip to the journal.
func (j *Journal) RecordClosedTrade(trade types.ClosedTrade) error {
	if j == nil {
		return nil
	}

	_, err := j.db.Exec(
		`INSERT INTO closed_trades (symbol, entry_price, entry_time, exit_price, exit_time, quantity, pnl, pnl_pct, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Symbol,
		trade.EntryPrice,
		trade.EntryTime.UTC().Format(time.RFC3339Nano),
		trade.ExitPrice,
		trade.ExitTime.UTC().Format(time.RFC3339Nano),
		trade.Quantity,
		trade.PnL,
		trade.PnLPercent,
		trade.Reason,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to record closed trade", err)
	}

	return nil
}

// ListClosedTrades returns up to limit most recent closed trades, newest
// first. limit <= 0 returns everything.
func (j *Journal) ListClosedTrades(limit int) ([]types.ClosedTrade, error) {
	if j == nil {
		return nil, nil
	}

	query := `SELECT symbol, entry_price, entry_time, exit_price, exit_time, quantity, pnl, pnl_pct, reason
		FROM closed_trades ORDER BY id DESC`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = j.db.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = j.db.Query(query)
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to query closed trades", err)
	}
	defer rows.Close()

	trades := make([]types.ClosedTrade, 0)

	for rows.Next() {
		var (
			trade     types.ClosedTrade
			entryTime string
			exitTime  string
		)

		if err := rows.Scan(
			&trade.Symbol,
			&trade.EntryPrice,
			&entryTime,
			&trade.ExitPrice,
			&exitTime,
			&trade.Quantity,
			&trade.PnL,
			&trade.PnLPercent,
			&trade.Reason,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to scan closed trade", err)
		}

		if trade.EntryTime, err = time.Parse(time.RFC3339Nano, entryTime); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to parse entry time", err)
		}

		if trade.ExitTime, err = time.Parse(time.RFC3339Nano, exitTime); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to parse exit time", err)
		}

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalQueryFailed, "failed to iterate closed trades", err)
	}

	return trades, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}

	return j.db.Close()
}
