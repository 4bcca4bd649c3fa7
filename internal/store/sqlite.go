package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lox/holdemtable/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	table_id    TEXT    NOT NULL,
	hand_number INTEGER NOT NULL,
	player_id   TEXT    NOT NULL,
	action      TEXT    NOT NULL,
	amount      INTEGER NOT NULL,
	round_total INTEGER NOT NULL,
	phase       TEXT    NOT NULL,
	ts          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS actions_by_hand ON actions (table_id, hand_number, id);
`

// SQLiteHistory stores action records in a sqlite database.
type SQLiteHistory struct {
	db *sql.DB
}

// OpenSQLiteHistory opens (or creates) the database at path.
func OpenSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}
	return &SQLiteHistory{db: db}, nil
}

func (h *SQLiteHistory) Append(ctx context.Context, records ...game.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO actions
		(table_id, hand_number, player_id, action, amount, round_total, phase, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, r.TableID, r.HandNumber, r.PlayerID, string(r.Action),
			r.Amount, r.RoundTotal, r.Phase.String(), r.Timestamp.UnixNano())
		if err != nil {
			return fmt.Errorf("insert action record: %w", err)
		}
	}
	return tx.Commit()
}

func (h *SQLiteHistory) Hand(ctx context.Context, tableID string, handNumber int) ([]game.ActionRecord, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT player_id, action, amount, round_total, phase, ts
		FROM actions WHERE table_id = ? AND hand_number = ? ORDER BY id`, tableID, handNumber)
	if err != nil {
		return nil, fmt.Errorf("query hand %s/%d: %w", tableID, handNumber, err)
	}
	defer rows.Close()

	var out []game.ActionRecord
	for rows.Next() {
		var (
			r      = game.ActionRecord{TableID: tableID, HandNumber: handNumber}
			action string
			phase  string
			ts     int64
		)
		if err := rows.Scan(&r.PlayerID, &action, &r.Amount, &r.RoundTotal, &phase, &ts); err != nil {
			return nil, fmt.Errorf("scan action record: %w", err)
		}
		r.Action = game.Action(action)
		if err := r.Phase.UnmarshalText([]byte(phase)); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
