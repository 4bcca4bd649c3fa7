// Package store persists table snapshots and hand history.
//
// Snapshots hold the latest state of each table, enough for
// game.RestoreTable to pick up a hand where it stopped. History is an
// append-only log of action records.
package store

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/holdemtable/internal/game"
)

// ErrNotFound is returned when no snapshot exists for a table.
var ErrNotFound = errors.New("store: not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshots keeps the latest snapshot per table.
type Snapshots interface {
	Save(ctx context.Context, s game.Snapshot) error
	Load(ctx context.Context, tableID string) (game.Snapshot, error)
	Delete(ctx context.Context, tableID string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// History records every action taken at every table.
type History interface {
	Append(ctx context.Context, records ...game.ActionRecord) error
	Hand(ctx context.Context, tableID string, handNumber int) ([]game.ActionRecord, error)
	Close() error
}

func encodeSnapshot(s game.Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSnapshot(data []byte) (game.Snapshot, error) {
	var s game.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return game.Snapshot{}, err
	}
	return s, nil
}
