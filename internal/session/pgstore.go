package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PGStore persists session records to PostgreSQL. Each session is one row
// holding the same JSON document the file store would write, upserted
// wholesale on every mutation, so the Store contract is unchanged.
type PGStore struct {
	db *sql.DB
}

// OpenPG connects to a PostgreSQL session database at connStr and applies
// any pending migrations.
func OpenPG(connStr string) (*PGStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("session db open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session db ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("session db migrate: %w", err)
	}
	return &PGStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Save upserts the full session document.
func (p *PGStore) Save(ctx context.Context, s *Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", s.SessionID, err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		s.SessionID, s.CreatedAt, doc,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.SessionID, err)
	}
	return nil
}

// Load reads one session document, returning ErrNotFound when absent.
func (p *PGStore) Load(ctx context.Context, id string) (*Session, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM sessions WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &s, nil
}

// List returns every parseable session row, skipping documents that fail to
// unmarshal with a diagnostic.
func (p *PGStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, doc FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		var s Session
		if err := json.Unmarshal(doc, &s); err != nil {
			slog.Warn("skipping unreadable session record", "id", id, "error", err)
			continue
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// Close closes the database.
func (p *PGStore) Close() error {
	return p.db.Close()
}
