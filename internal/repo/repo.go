package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Snapshot keys, one per state container.
const (
	KeyCurrency      = "pulsepact-currency"
	KeyWallet        = "pulsepact-wallet"
	KeyNotifications = "pulsepact-notifications"
	KeyPacts         = "pulsepact-storage"
	KeyStreak        = "pulsepact-streak"
)

// Keys lists every snapshot key.
var Keys = []string{KeyCurrency, KeyWallet, KeyNotifications, KeyPacts, KeyStreak}

var ErrNotFound = errors.New("not found")

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

// envelope is the persisted shape of a snapshot.
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

func (r Repo) q(q Querier) Querier {
	if q != nil {
		return q
	}
	return r.DB
}

func (r Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// LoadSnapshot decodes the state stored under key into dst. A missing key
// returns ErrNotFound and leaves dst untouched.
func (r Repo) LoadSnapshot(ctx context.Context, q Querier, key string, dst any) error {
	var payload string
	err := r.q(q).QueryRowContext(ctx, `SELECT value_json FROM snapshots WHERE key=?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return fmt.Errorf("load %s: decode envelope: %w", key, err)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return ErrNotFound
	}
	if err := json.Unmarshal(env.State, dst); err != nil {
		return fmt.Errorf("load %s: decode state: %w", key, err)
	}
	return nil
}

// SaveSnapshot replaces the state stored under key.
func (r Repo) SaveSnapshot(ctx context.Context, q Querier, key string, state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("save %s: encode state: %w", key, err)
	}
	payload, err := json.Marshal(envelope{State: raw})
	if err != nil {
		return fmt.Errorf("save %s: encode envelope: %w", key, err)
	}
	now := r.now().UTC().Format(time.RFC3339)
	_, err = r.q(q).ExecContext(ctx, `INSERT INTO snapshots(key,value_json,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value_json=excluded.value_json, updated_at=excluded.updated_at`, key, string(payload), now)
	if err != nil {
		return fmt.Errorf("save %s: upsert: %w", key, err)
	}
	return nil
}

func (r Repo) DeleteSnapshot(ctx context.Context, q Querier, key string) error {
	res, err := r.q(q).ExecContext(ctx, `DELETE FROM snapshots WHERE key=?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SnapshotInfo describes one stored snapshot without decoding it.
type SnapshotInfo struct {
	Key       string `json:"key"`
	UpdatedAt string `json:"updated_at"`
	Bytes     int    `json:"bytes"`
}

func (r Repo) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key,updated_at,LENGTH(value_json) FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []SnapshotInfo
	for rows.Next() {
		var s SnapshotInfo
		if err := rows.Scan(&s.Key, &s.UpdatedAt, &s.Bytes); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
