package screenshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

// Extended sqlite result codes for a violated PRIMARY KEY or UNIQUE constraint.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// sqliteRow is the on-disk shape of a record. Timestamps are unix nanoseconds.
type sqliteRow struct {
	ID           string         `db:"id"`
	OwnerID      sql.NullString `db:"owner_id"`
	AssetURL     string         `db:"asset_url"`
	ThumbnailURL string         `db:"thumbnail_url"`
	OriginalName string         `db:"original_name"`
	Title        string         `db:"title"`
	MimeType     string         `db:"mime_type"`
	SizeBytes    int64          `db:"size_bytes"`
	Width        int            `db:"width"`
	Height       int            `db:"height"`
	CreatedAt    int64          `db:"created_at"`
	ExpiresAt    sql.NullInt64  `db:"expires_at"`
	ViewCount    int64          `db:"view_count"`
	IsPublic     bool           `db:"is_public"`
	StorageKey   string         `db:"storage_key"`
	ThumbnailKey string         `db:"thumbnail_key"`
	DeleteToken  string         `db:"delete_token"`
}

const sqliteColumns = `"id", "owner_id", "asset_url", "thumbnail_url", "original_name", "title", "mime_type",
	"size_bytes", "width", "height", "created_at", "expires_at", "view_count", "is_public",
	"storage_key", "thumbnail_key", "delete_token"`

// SQLiteStore is a RecordStore on an embedded sqlite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps the retire-then-insert checks consistent; ":memory:"
	// databases would otherwise differ per connection
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.ApplyMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ApplyMigrations creates the tables needed by the store.
func (s *SQLiteStore) ApplyMigrations() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS "screenshots" (
			"id" TEXT PRIMARY KEY,
			"owner_id" TEXT,
			"asset_url" TEXT NOT NULL,
			"thumbnail_url" TEXT NOT NULL,
			"original_name" TEXT NOT NULL,
			"title" TEXT NOT NULL,
			"mime_type" TEXT NOT NULL,
			"size_bytes" INTEGER NOT NULL,
			"width" INTEGER NOT NULL DEFAULT 0,
			"height" INTEGER NOT NULL DEFAULT 0,
			"created_at" INTEGER NOT NULL,
			"expires_at" INTEGER,
			"view_count" INTEGER NOT NULL DEFAULT 0,
			"is_public" BOOLEAN NOT NULL DEFAULT 1,
			"storage_key" TEXT NOT NULL,
			"thumbnail_key" TEXT NOT NULL DEFAULT '',
			"delete_token" TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS "screenshots_owner_created" ON "screenshots" ("owner_id", "created_at" DESC)`,
		`CREATE TABLE IF NOT EXISTS "retired_ids" ("id" TEXT PRIMARY KEY)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create sqlite schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert stores rec unless its id is in use or was retired by a delete.
func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var retired int
	if err := tx.GetContext(ctx, &retired, `SELECT COUNT(*) FROM "retired_ids" WHERE "id" = $1`, rec.ID); err != nil {
		return fmt.Errorf("check retired id: %w", err)
	}
	if retired > 0 {
		return ErrIDTaken
	}

	row := toSQLiteRow(rec)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO "screenshots" (`+sqliteColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		row.ID, row.OwnerID, row.AssetURL, row.ThumbnailURL, row.OriginalName, row.Title, row.MimeType,
		row.SizeBytes, row.Width, row.Height, row.CreatedAt, row.ExpiresAt, row.ViewCount, row.IsPublic,
		row.StorageKey, row.ThumbnailKey, row.DeleteToken,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrIDTaken
		}
		return fmt.Errorf("insert screenshot: %w", err)
	}

	return tx.Commit()
}

// GetByID fetches a record by its short id.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*Record, error) {
	var row sqliteRow
	err := s.db.GetContext(ctx, &row, `SELECT `+sqliteColumns+` FROM "screenshots" WHERE "id" = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get screenshot by id: %w", err)
	}
	return row.record(), nil
}

// ListByOwner returns the owner's records, newest first.
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]*Record, error) {
	var rows []sqliteRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+sqliteColumns+` FROM "screenshots" WHERE "owner_id" = $1 ORDER BY "created_at" DESC, "id"`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list screenshots: %w", err)
	}

	recs := make([]*Record, 0, len(rows))
	for i := range rows {
		recs = append(recs, rows[i].record())
	}
	return recs, nil
}

// Update persists the mutable fields of rec.
func (s *SQLiteStore) Update(ctx context.Context, rec *Record) error {
	row := toSQLiteRow(rec)
	res, err := s.db.ExecContext(ctx,
		`UPDATE "screenshots" SET "title" = $1, "expires_at" = $2, "is_public" = $3, "view_count" = $4 WHERE "id" = $5`,
		row.Title, row.ExpiresAt, row.IsPublic, row.ViewCount, row.ID,
	)
	if err != nil {
		return fmt.Errorf("update screenshot: %w", err)
	}
	return requireAffected(res)
}

// IncrementViews bumps the view count in a single statement.
func (s *SQLiteStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		`UPDATE "screenshots" SET "view_count" = "view_count" + 1 WHERE "id" = $1 RETURNING "view_count"`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return n, nil
}

// Delete removes the record and retires its id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM "screenshots" WHERE "id" = $1`, id)
	if err != nil {
		return fmt.Errorf("delete screenshot: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO "retired_ids" ("id") VALUES ($1)`, id); err != nil {
		return fmt.Errorf("retire id: %w", err)
	}

	return tx.Commit()
}

// isSQLiteUniqueViolation checks the driver's extended result code.
func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqliteConstraintPrimaryKey || code == sqliteConstraintUnique
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func toSQLiteRow(rec *Record) sqliteRow {
	row := sqliteRow{
		ID:           rec.ID,
		OwnerID:      sql.NullString{String: rec.OwnerID, Valid: rec.OwnerID != ""},
		AssetURL:     rec.AssetURL,
		ThumbnailURL: rec.ThumbnailURL,
		OriginalName: rec.OriginalName,
		Title:        rec.Title,
		MimeType:     rec.MimeType,
		SizeBytes:    rec.SizeBytes,
		Width:        rec.Width,
		Height:       rec.Height,
		CreatedAt:    rec.CreatedAt.UnixNano(),
		ViewCount:    rec.ViewCount,
		IsPublic:     rec.IsPublic,
		StorageKey:   rec.StorageKey,
		ThumbnailKey: rec.ThumbnailKey,
		DeleteToken:  rec.DeleteToken,
	}
	if rec.ExpiresAt != nil {
		row.ExpiresAt = sql.NullInt64{Int64: rec.ExpiresAt.UnixNano(), Valid: true}
	}
	return row
}

func (r *sqliteRow) record() *Record {
	rec := &Record{
		ID:           r.ID,
		OwnerID:      r.OwnerID.String,
		AssetURL:     r.AssetURL,
		ThumbnailURL: r.ThumbnailURL,
		OriginalName: r.OriginalName,
		Title:        r.Title,
		MimeType:     r.MimeType,
		SizeBytes:    r.SizeBytes,
		Width:        r.Width,
		Height:       r.Height,
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
		ViewCount:    r.ViewCount,
		IsPublic:     r.IsPublic,
		StorageKey:   r.StorageKey,
		ThumbnailKey: r.ThumbnailKey,
		DeleteToken:  r.DeleteToken,
	}
	if r.ExpiresAt.Valid {
		t := time.Unix(0, r.ExpiresAt.Int64).UTC()
		rec.ExpiresAt = &t
	}
	return rec
}
