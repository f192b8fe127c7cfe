// Package store persists discovered external players and the cloud's
// authorization of them in SQLite, so bindings survive restarts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	_ "modernc.org/sqlite"

	"extmedia/internal/emp"
)

var log = logging.Logger("store")

// DB wraps the SQLite database. It implements emp.PlayerStore.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

var _ emp.PlayerStore = (*DB)(nil)

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			local_player_id   TEXT PRIMARY KEY,
			spi_version       TEXT NOT NULL DEFAULT '',
			validation_method TEXT NOT NULL DEFAULT '',
			validation_data   TEXT NOT NULL DEFAULT '[]',
			discovered        INTEGER NOT NULL DEFAULT 0,
			authorized        INTEGER NOT NULL DEFAULT 0,
			player_id         TEXT NOT NULL DEFAULT '',
			skill_token       TEXT NOT NULL DEFAULT '',
			updated_at        DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create players table: %w", err)
	}

	log.Debugw("store opened", "path", path)
	return &DB{db: db, path: path}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// SaveDiscovered upserts the discovery metadata of players, keeping any
// authorization already stored for them.
func (d *DB) SaveDiscovered(ctx context.Context, players []emp.DiscoveredPlayer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range players {
		data, err := json.Marshal(p.ValidationData)
		if err != nil {
			return fmt.Errorf("encode validation data: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO players (local_player_id, spi_version, validation_method, validation_data, discovered, updated_at)
			VALUES (?, ?, ?, ?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(local_player_id) DO UPDATE SET
				spi_version       = excluded.spi_version,
				validation_method = excluded.validation_method,
				validation_data   = excluded.validation_data,
				discovered        = 1,
				updated_at        = CURRENT_TIMESTAMP`,
			p.LocalPlayerID, p.SPIVersion, p.ValidationMethod, string(data),
		); err != nil {
			return fmt.Errorf("save discovered %s: %w", p.LocalPlayerID, err)
		}
	}
	return tx.Commit()
}

// SaveAuthorization records the cloud's verdict for one player.
func (d *DB) SaveAuthorization(ctx context.Context, auth emp.Authorization) error {
	authorized := 0
	playerID, skillToken := "", ""
	if auth.Authorized {
		authorized = 1
		playerID, skillToken = auth.PlayerID, auth.SkillToken
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO players (local_player_id, authorized, player_id, skill_token, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(local_player_id) DO UPDATE SET
			authorized  = excluded.authorized,
			player_id   = excluded.player_id,
			skill_token = excluded.skill_token,
			updated_at  = CURRENT_TIMESTAMP`,
		auth.LocalPlayerID, authorized, playerID, skillToken,
	)
	if err != nil {
		return fmt.Errorf("save authorization %s: %w", auth.LocalPlayerID, err)
	}
	return nil
}

// RemovePlayer deletes everything stored about a player.
func (d *DB) RemovePlayer(ctx context.Context, localPlayerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.db.ExecContext(ctx, `DELETE FROM players WHERE local_player_id = ?`, localPlayerID); err != nil {
		return fmt.Errorf("remove player %s: %w", localPlayerID, err)
	}
	return nil
}

// DiscoveredPlayers returns the players that have been discovered, ordered
// by local id.
func (d *DB) DiscoveredPlayers(ctx context.Context) ([]emp.DiscoveredPlayer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT local_player_id, spi_version, validation_method, validation_data
		FROM players WHERE discovered = 1 ORDER BY local_player_id`)
	if err != nil {
		return nil, fmt.Errorf("query discovered: %w", err)
	}
	defer rows.Close()

	var out []emp.DiscoveredPlayer
	for rows.Next() {
		var (
			p    emp.DiscoveredPlayer
			data string
		)
		if err := rows.Scan(&p.LocalPlayerID, &p.SPIVersion, &p.ValidationMethod, &data); err != nil {
			return nil, fmt.Errorf("scan discovered: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &p.ValidationData); err != nil {
			log.Warnw("bad validation data", "player", p.LocalPlayerID, "err", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Authorizations returns every stored authorization, ordered by local id.
func (d *DB) Authorizations(ctx context.Context) ([]emp.Authorization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT local_player_id, authorized, player_id, skill_token
		FROM players ORDER BY local_player_id`)
	if err != nil {
		return nil, fmt.Errorf("query authorizations: %w", err)
	}
	defer rows.Close()

	var out []emp.Authorization
	for rows.Next() {
		var (
			a          emp.Authorization
			authorized int
		)
		if err := rows.Scan(&a.LocalPlayerID, &authorized, &a.PlayerID, &a.SkillToken); err != nil {
			return nil, fmt.Errorf("scan authorization: %w", err)
		}
		a.Authorized = authorized != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// Restore replays stored authorizations into the agent.
func (d *DB) Restore(ctx context.Context, agent *emp.Agent) error {
	auths, err := d.Authorizations(ctx)
	if err != nil {
		return err
	}
	for _, a := range auths {
		if !a.Authorized {
			continue
		}
		if err := agent.Authorize(a); err != nil {
			return fmt.Errorf("restore %s: %w", a.LocalPlayerID, err)
		}
	}
	log.Infow("authorizations restored", "count", len(auths))
	return nil
}
