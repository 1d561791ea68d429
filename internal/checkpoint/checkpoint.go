// Package checkpoint persists the last-synchronized (proxy, block) pair
// to sqlite, the way geth-17-indexer persists indexed log rows, so a CLI
// invocation of the sync loop can resume at a block checkpoint instead of
// replaying from genesis (spec.md §7: "No retry is performed at engine
// level; the caller is expected to resume at a block checkpoint.").
//
// This is a CLI-level convenience, not an engine component: the engine
// itself is stateless across invocations (spec.md §5), so nothing in
// internal/migration or internal/diff reads or writes this store.
package checkpoint

import (
	"context"
	"database/sql"
	"math/big"

	_ "modernc.org/sqlite"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/errs"
)

// Store wraps a sqlite-backed checkpoint table keyed by proxy address.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.Config, err, "open checkpoint database", "path", path)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints(
		proxy TEXT PRIMARY KEY,
		block TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Config, err, "create checkpoint schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save records the last block successfully synchronized to proxy.
func (s *Store) Save(ctx context.Context, proxy common.Address, block *big.Int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO checkpoints(proxy, block) VALUES (?, ?)
		ON CONFLICT(proxy) DO UPDATE SET block = excluded.block`, proxy.Hex(), block.String())
	if err != nil {
		return errs.Wrap(errs.Config, err, "save checkpoint", "proxy", proxy, "block", block)
	}
	return nil
}

// Load returns the last checkpointed block for proxy, or nil if none has
// been recorded yet.
func (s *Store) Load(ctx context.Context, proxy common.Address) (*big.Int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT block FROM checkpoints WHERE proxy = ?`, proxy.Hex()).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Config, err, "load checkpoint", "proxy", proxy)
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errs.New(errs.Config, "corrupt checkpoint block value", "proxy", proxy, "raw", raw)
	}
	return n, nil
}
