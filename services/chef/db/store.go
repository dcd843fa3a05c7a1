package db

import (
	"context"
	"database/sql"
	"time"
)

const (
	SkipPage     = "page"
	SkipDownload = "download"
	SkipNoPdf    = "no_pdf"
)

// Skip is one recoverable failure recorded during a run, with enough
// context to investigate it manually.
type Skip struct {
	At       time.Time
	Kind     string
	Category string
	BookId   string
	Url      string
	Error    string
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

func (s *Store) RecordSkip(ctx context.Context, skip Skip) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO skips (at, kind, category, book_id, url, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		skip.At.Unix(), skip.Kind, skip.Category, skip.BookId, skip.Url, skip.Error,
	)
	return err
}

func (s *Store) Skips(ctx context.Context) ([]Skip, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT at, kind, category, book_id, url, error FROM skips ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skips []Skip
	for rows.Next() {
		var skip Skip
		var at int64
		err = rows.Scan(&at, &skip.Kind, &skip.Category, &skip.BookId, &skip.Url, &skip.Error)
		if err != nil {
			return nil, err
		}
		skip.At = time.Unix(at, 0)
		skips = append(skips, skip)
	}
	return skips, rows.Err()
}

// SaveCrossrefIndex replaces the cached cross-reference index snapshot.
func (s *Store) SaveCrossrefIndex(ctx context.Context, contents []byte, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO crossref_index (id, fetched_at, contents)
		 VALUES (1, ?, ?)`,
		fetchedAt.Unix(), string(contents),
	)
	return err
}

// CrossrefIndex returns the cached index snapshot and when it was fetched.
// sql.ErrNoRows when no snapshot has been saved yet.
func (s *Store) CrossrefIndex(ctx context.Context) ([]byte, time.Time, error) {
	var fetchedAt int64
	var contents string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT fetched_at, contents FROM crossref_index WHERE id = 1`,
	).Scan(&fetchedAt, &contents)
	if err != nil {
		return nil, time.Time{}, err
	}
	return []byte(contents), time.Unix(fetchedAt, 0), nil
}
