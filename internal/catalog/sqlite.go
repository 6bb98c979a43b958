package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRecordStore struct {
	db *sql.DB
}

// NewSQLiteRecordStore opens (or creates) the catalog table in the SQLite
// database at dbPath.
func NewSQLiteRecordStore(dbPath string) (*SQLiteRecordStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			thumbnail TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create videos table: %w", err)
	}

	return &SQLiteRecordStore{db: db}, nil
}

func (s *SQLiteRecordStore) Create(ctx context.Context, rec Record) (Record, error) {
	rec.ID = NewID()
	rec.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id, title, description, thumbnail, link, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Description, rec.Thumbnail, rec.Link, rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert video: %w", err)
	}
	return rec, nil
}

func (s *SQLiteRecordStore) Read(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, thumbnail, link, created_at FROM videos WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read video: %w", err)
	}
	return rec, nil
}

func (s *SQLiteRecordStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, thumbnail, link, created_at FROM videos ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Delete removes and returns the record in one statement.
func (s *SQLiteRecordStore) Delete(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`DELETE FROM videos WHERE id = ? RETURNING id, title, description, thumbnail, link, created_at`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to delete video: %w", err)
	}
	return rec, nil
}

func (s *SQLiteRecordStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Thumbnail, &rec.Link, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	recs := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}
	return recs, nil
}
