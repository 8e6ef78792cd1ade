package screenshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgColumns = `id, owner_id, asset_url, thumbnail_url, original_name, title, mime_type,
	size_bytes, width, height, created_at, expires_at, view_count, is_public,
	storage_key, thumbnail_key, delete_token`

// PostgresStore is a RecordStore backed by the screenshots table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert stores rec unless its id is in use or was retired by a delete.
func (s *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var retired bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM retired_ids WHERE id = $1)`,
		rec.ID,
	).Scan(&retired)
	if err != nil {
		return fmt.Errorf("check retired id: %w", err)
	}
	if retired {
		return ErrIDTaken
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO screenshots (`+pgColumns+`)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NULLIF($16, ''), NULLIF($17, ''))`,
		rec.ID, rec.OwnerID, rec.AssetURL, rec.ThumbnailURL, rec.OriginalName, rec.Title, rec.MimeType,
		rec.SizeBytes, rec.Width, rec.Height, rec.CreatedAt, rec.ExpiresAt, rec.ViewCount, rec.IsPublic,
		rec.StorageKey, rec.ThumbnailKey, rec.DeleteToken,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrIDTaken
		}
		return fmt.Errorf("insert screenshot: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID fetches a record by its short id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+pgColumns+` FROM screenshots WHERE id = $1`,
		id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get screenshot by id: %w", err)
	}
	return rec, nil
}

// ListByOwner returns the owner's records, newest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]*Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgColumns+` FROM screenshots
		 WHERE owner_id = $1
		 ORDER BY created_at DESC, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list screenshots: %w", err)
	}
	defer rows.Close()

	recs := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan screenshot: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list screenshots: %w", err)
	}
	return recs, nil
}

// Update persists the mutable fields of rec.
func (s *PostgresStore) Update(ctx context.Context, rec *Record) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE screenshots
		 SET title = $2, expires_at = $3, is_public = $4, view_count = $5
		 WHERE id = $1`,
		rec.ID, rec.Title, rec.ExpiresAt, rec.IsPublic, rec.ViewCount,
	)
	if err != nil {
		return fmt.Errorf("update screenshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view count in a single statement.
func (s *PostgresStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`UPDATE screenshots SET view_count = view_count + 1
		 WHERE id = $1
		 RETURNING view_count`,
		id,
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return n, nil
}

// Delete removes the record and retires its id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `DELETE FROM screenshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete screenshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO retired_ids (id) VALUES ($1) ON CONFLICT DO NOTHING`,
		id,
	)
	if err != nil {
		return fmt.Errorf("retire id: %w", err)
	}

	return tx.Commit(ctx)
}

func scanRecord(row pgx.Row) (*Record, error) {
	rec := &Record{}
	var owner, thumbKey, token *string
	err := row.Scan(
		&rec.ID, &owner, &rec.AssetURL, &rec.ThumbnailURL, &rec.OriginalName, &rec.Title, &rec.MimeType,
		&rec.SizeBytes, &rec.Width, &rec.Height, &rec.CreatedAt, &rec.ExpiresAt, &rec.ViewCount, &rec.IsPublic,
		&rec.StorageKey, &thumbKey, &token,
	)
	if err != nil {
		return nil, err
	}
	rec.OwnerID = deref(owner)
	rec.ThumbnailKey = deref(thumbKey)
	rec.DeleteToken = deref(token)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.ExpiresAt != nil {
		t := rec.ExpiresAt.UTC()
		rec.ExpiresAt = &t
	}
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
