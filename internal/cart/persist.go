package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/restrobazaar/storefront/internal/session"
)

// SessionPersister keeps the cart snapshot under the session's cart key.
type SessionPersister struct {
	Sessions session.Store
}

// Load implements Persister.
func (p SessionPersister) Load(ctx context.Context, sessionID string) (State, error) {
	var st State
	if _, err := p.Sessions.GetJSON(ctx, sessionID, session.KeyCart, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Save implements Persister.
func (p SessionPersister) Save(ctx context.Context, sessionID string, state State) error {
	return p.Sessions.SetJSON(ctx, sessionID, session.KeyCart, state)
}

// DB is the subset of pgxpool.Pool used by PostgresPersister.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	loadSnapshotSQL = `SELECT state FROM cart_snapshots WHERE session_id = $1`
	saveSnapshotSQL = `INSERT INTO cart_snapshots (session_id, state, line_count, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (session_id) DO UPDATE SET state = EXCLUDED.state, line_count = EXCLUDED.line_count, updated_at = now()`
)

// PostgresPersister keeps cart snapshots in the cart_snapshots table.
type PostgresPersister struct {
	DB DB
}

// Load implements Persister. A session without a row has an empty cart.
func (p PostgresPersister) Load(ctx context.Context, sessionID string) (State, error) {
	var raw []byte
	err := p.DB.QueryRow(ctx, loadSnapshotSQL, sessionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("select cart snapshot: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return st, nil
}

// Save implements Persister.
func (p PostgresPersister) Save(ctx context.Context, sessionID string, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if _, err := p.DB.Exec(ctx, saveSnapshotSQL, sessionID, raw, len(state.Lines)); err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}
	return nil
}
