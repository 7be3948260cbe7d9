// Package storage persists user-created room definitions so that a
// restarted server comes back with the same rooms. Chat messages are
// never persisted.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// RoomRecord is the persisted shape of a user-created room.
type RoomRecord struct {
	Name        string
	Owner       string
	Description string
	MaxMembers  int
	CreatedAt   int64
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database file and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS rooms (
	name        TEXT PRIMARY KEY,
	owner       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	max_members INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("migrate rooms table: %w", err)
	}
	return nil
}

// SaveRoom inserts or replaces the room definition.
func (s *Store) SaveRoom(rec RoomRecord) error {
	if s == nil || s.db == nil {
		return ErrNotOpen
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO rooms (name, owner, description, max_members, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Name, rec.Owner, rec.Description, rec.MaxMembers, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save room %q: %w", rec.Name, err)
	}
	return nil
}

// DeleteRoom removes the room definition. Deleting an absent room is not
// an error.
func (s *Store) DeleteRoom(name string) error {
	if s == nil || s.db == nil {
		return ErrNotOpen
	}
	if _, err := s.db.Exec(`DELETE FROM rooms WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete room %q: %w", name, err)
	}
	return nil
}

// LoadRooms returns every persisted room definition, sorted by name.
func (s *Store) LoadRooms() ([]RoomRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := s.db.Query(`SELECT name, owner, description, max_members, created_at FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	defer rows.Close()

	var records []RoomRecord
	for rows.Next() {
		var rec RoomRecord
		if err := rows.Scan(&rec.Name, &rec.Owner, &rec.Description, &rec.MaxMembers, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room rows: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
