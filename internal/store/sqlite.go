package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/listing-intake/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id         TEXT PRIMARY KEY,
	created_by TEXT,
	canonical  TEXT NOT NULL,
	mode       TEXT NOT NULL DEFAULT 'draft',
	locked     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS listing_facts (
	id             TEXT PRIMARY KEY,
	listing_id     TEXT NOT NULL REFERENCES listings(id),
	canonical_path TEXT NOT NULL,
	value          TEXT NOT NULL,
	source_type    TEXT NOT NULL,
	source_ref     TEXT,
	document_id    TEXT,
	page_number    INTEGER NOT NULL DEFAULT 0,
	confidence     REAL NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'proposed',
	document_index INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS listing_images (
	id                       TEXT PRIMARY KEY,
	listing_id               TEXT NOT NULL REFERENCES listings(id),
	filename                 TEXT NOT NULL,
	storage_ref              TEXT,
	ai_suggested_label       TEXT,
	ai_suggested_description TEXT,
	ai_suggested_room_type   TEXT,
	ai_suggested_order       INTEGER,
	final_label              TEXT,
	final_description        TEXT,
	final_room_type          TEXT,
	photo_type               TEXT,
	display_order            INTEGER NOT NULL DEFAULT 0,
	order_locked             INTEGER NOT NULL DEFAULT 0,
	is_primary               INTEGER NOT NULL DEFAULT 0,
	upload_index             INTEGER NOT NULL DEFAULT 0,
	uploaded_at              DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS geo_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listing_facts_listing_id ON listing_facts(listing_id);
CREATE INDEX IF NOT EXISTS idx_listing_facts_path ON listing_facts(listing_id, canonical_path);
CREATE INDEX IF NOT EXISTS idx_listing_images_listing_id ON listing_images(listing_id);
CREATE INDEX IF NOT EXISTS idx_geo_cache_expires_at ON geo_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateListing(ctx context.Context, createdBy string) (*model.ListingRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	canonical := model.NewCanonicalListing()

	canonicalJSON, err := json.Marshal(canonical)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal canonical")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO listings (id, created_by, canonical, mode, locked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id, createdBy, string(canonicalJSON), string(model.ModeDraft), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert listing")
	}

	return &model.ListingRecord{
		ID:        id,
		CreatedBy: createdBy,
		Canonical: canonical,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetListing(ctx context.Context, listingID string) (*model.ListingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_by, canonical, created_at, updated_at FROM listings WHERE id = ?`,
		listingID,
	)

	var rec model.ListingRecord
	var createdBy sql.NullString
	var canonicalJSON string
	err := row.Scan(&rec.ID, &createdBy, &canonicalJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("listing not found: %s", listingID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan listing")
	}
	rec.CreatedBy = createdBy.String

	rec.Canonical = &model.CanonicalListing{}
	if err := json.Unmarshal([]byte(canonicalJSON), rec.Canonical); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal canonical")
	}
	return &rec, nil
}

func (s *SQLiteStore) PutCanonical(ctx context.Context, listingID string, c *model.CanonicalListing) error {
	canonicalJSON, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal canonical")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET canonical = ?, mode = ?, locked = ?, updated_at = ? WHERE id = ?`,
		string(canonicalJSON), string(c.State.Mode), boolToInt(c.State.Locked), time.Now().UTC(), listingID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update canonical %s", listingID)
	}
	return checkRowsAffected(res, "listing", listingID)
}

func (s *SQLiteStore) AppendFacts(ctx context.Context, facts []model.FieldFact) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin facts tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range facts {
		f := &facts[i]
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now().UTC()
		}

		valueJSON, err := json.Marshal(f.Value)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal fact value %s", f.CanonicalPath)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO listing_facts
			 (id, listing_id, canonical_path, value, source_type, source_ref, document_id, page_number, confidence, status, document_index, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.ListingID, f.CanonicalPath, string(valueJSON),
			string(f.Provenance.SourceType), f.Provenance.SourceRef, f.Provenance.DocumentID,
			f.Provenance.PageNumber, f.Provenance.Confidence, string(f.Status), f.DocumentIndex, f.CreatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert fact %s", f.CanonicalPath)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit facts")
}

func (s *SQLiteStore) ListFacts(ctx context.Context, listingID string) ([]model.FieldFact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, listing_id, canonical_path, value, source_type, source_ref, document_id, page_number, confidence, status, document_index, created_at
		 FROM listing_facts WHERE listing_id = ? ORDER BY created_at, id`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list facts")
	}
	defer rows.Close()

	var facts []model.FieldFact
	for rows.Next() {
		var f model.FieldFact
		var valueJSON string
		var sourceRef, documentID sql.NullString
		err := rows.Scan(&f.ID, &f.ListingID, &f.CanonicalPath, &valueJSON,
			&f.Provenance.SourceType, &sourceRef, &documentID,
			&f.Provenance.PageNumber, &f.Provenance.Confidence, &f.Status, &f.DocumentIndex, &f.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fact")
		}
		f.Provenance.SourceRef = sourceRef.String
		f.Provenance.DocumentID = documentID.String
		if err := json.Unmarshal([]byte(valueJSON), &f.Value); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal fact value")
		}
		facts = append(facts, f)
	}
	return facts, eris.Wrap(rows.Err(), "sqlite: list facts iterate")
}

func (s *SQLiteStore) AddImage(ctx context.Context, img *model.Image) error {
	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listing_images
		 (id, listing_id, filename, storage_ref, ai_suggested_label, ai_suggested_description, ai_suggested_room_type, ai_suggested_order,
		  final_label, final_description, final_room_type, photo_type, display_order, order_locked, is_primary, upload_index, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID, img.ListingID, img.Filename, img.StorageRef,
		img.AISuggestedLabel, img.AISuggestedDescription, img.AISuggestedRoomType, img.AISuggestedOrder,
		img.FinalLabel, img.FinalDescription, img.FinalRoomType, img.PhotoType,
		img.DisplayOrder, boolToInt(img.OrderLocked), boolToInt(img.IsPrimary), img.UploadIndex, img.UploadedAt,
	)
	return eris.Wrap(err, "sqlite: insert image")
}

func (s *SQLiteStore) ListImages(ctx context.Context, listingID string) ([]model.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, listing_id, filename, storage_ref, ai_suggested_label, ai_suggested_description, ai_suggested_room_type, ai_suggested_order,
		        final_label, final_description, final_room_type, photo_type, display_order, order_locked, is_primary, upload_index, uploaded_at
		 FROM listing_images WHERE listing_id = ? ORDER BY upload_index`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list images")
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, eris.Wrap(rows.Err(), "sqlite: list images iterate")
}

func (s *SQLiteStore) UpdateImage(ctx context.Context, img *model.Image) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listing_images SET
		   ai_suggested_label = ?, ai_suggested_description = ?, ai_suggested_room_type = ?, ai_suggested_order = ?,
		   final_label = ?, final_description = ?, final_room_type = ?, photo_type = ?,
		   display_order = ?, order_locked = ?, is_primary = ?
		 WHERE id = ?`,
		img.AISuggestedLabel, img.AISuggestedDescription, img.AISuggestedRoomType, img.AISuggestedOrder,
		img.FinalLabel, img.FinalDescription, img.FinalRoomType, img.PhotoType,
		img.DisplayOrder, boolToInt(img.OrderLocked), boolToInt(img.IsPrimary), img.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update image %s", img.ID)
	}
	return checkRowsAffected(res, "image", img.ID)
}

func (s *SQLiteStore) GetGeoCache(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM geo_cache WHERE key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	)

	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get geo cache")
	}
	return []byte(value), true, nil
}

func (s *SQLiteStore) PutGeoCache(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geo_cache (key, value, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, string(value), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: put geo cache")
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanImage(rows *sql.Rows) (*model.Image, error) {
	var img model.Image
	var storageRef sql.NullString
	var orderLocked, isPrimary int
	err := rows.Scan(&img.ID, &img.ListingID, &img.Filename, &storageRef,
		&img.AISuggestedLabel, &img.AISuggestedDescription, &img.AISuggestedRoomType, &img.AISuggestedOrder,
		&img.FinalLabel, &img.FinalDescription, &img.FinalRoomType, &img.PhotoType,
		&img.DisplayOrder, &orderLocked, &isPrimary, &img.UploadIndex, &img.UploadedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan image")
	}
	img.StorageRef = storageRef.String
	img.OrderLocked = orderLocked != 0
	img.IsPrimary = isPrimary != 0
	return &img, nil
}
