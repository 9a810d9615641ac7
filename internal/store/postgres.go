package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-intake/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id         TEXT PRIMARY KEY,
	created_by TEXT,
	canonical  JSONB NOT NULL,
	mode       TEXT NOT NULL DEFAULT 'draft',
	locked     BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS listing_facts (
	id             TEXT PRIMARY KEY,
	listing_id     TEXT NOT NULL REFERENCES listings(id),
	canonical_path TEXT NOT NULL,
	value          JSONB NOT NULL,
	source_type    TEXT NOT NULL,
	source_ref     TEXT,
	document_id    TEXT,
	page_number    INTEGER NOT NULL DEFAULT 0,
	confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'proposed',
	document_index INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
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
	order_locked             BOOLEAN NOT NULL DEFAULT false,
	is_primary               BOOLEAN NOT NULL DEFAULT false,
	upload_index             INTEGER NOT NULL DEFAULT 0,
	uploaded_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geo_cache (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listing_facts_listing_id ON listing_facts(listing_id);
CREATE INDEX IF NOT EXISTS idx_listing_facts_path ON listing_facts(listing_id, canonical_path);
CREATE INDEX IF NOT EXISTS idx_listing_images_listing_id ON listing_images(listing_id);
CREATE INDEX IF NOT EXISTS idx_geo_cache_expires_at ON geo_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateListing(ctx context.Context, createdBy string) (*model.ListingRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	canonical := model.NewCanonicalListing()

	canonicalJSON, err := json.Marshal(canonical)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal canonical")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO listings (id, created_by, canonical, mode, locked, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, false, $5, $6)`,
		id, createdBy, canonicalJSON, string(model.ModeDraft), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert listing")
	}

	return &model.ListingRecord{
		ID:        id,
		CreatedBy: createdBy,
		Canonical: canonical,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetListing(ctx context.Context, listingID string) (*model.ListingRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, created_by, canonical, created_at, updated_at FROM listings WHERE id = $1`,
		listingID,
	)

	var rec model.ListingRecord
	var createdBy *string
	var canonicalJSON []byte
	err := row.Scan(&rec.ID, &createdBy, &canonicalJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("listing not found: %s", listingID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get listing")
	}
	if createdBy != nil {
		rec.CreatedBy = *createdBy
	}

	rec.Canonical = &model.CanonicalListing{}
	if err := json.Unmarshal(canonicalJSON, rec.Canonical); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal canonical")
	}
	return &rec, nil
}

func (s *PostgresStore) PutCanonical(ctx context.Context, listingID string, c *model.CanonicalListing) error {
	canonicalJSON, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal canonical")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET canonical = $1, mode = $2, locked = $3, updated_at = $4 WHERE id = $5`,
		canonicalJSON, string(c.State.Mode), c.State.Locked, time.Now().UTC(), listingID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update canonical %s", listingID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("listing not found: %s", listingID)
	}
	return nil
}

func (s *PostgresStore) AppendFacts(ctx context.Context, facts []model.FieldFact) error {
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
			return eris.Wrapf(err, "postgres: marshal fact value %s", f.CanonicalPath)
		}

		_, err = s.pool.Exec(ctx,
			`INSERT INTO listing_facts
			 (id, listing_id, canonical_path, value, source_type, source_ref, document_id, page_number, confidence, status, document_index, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			f.ID, f.ListingID, f.CanonicalPath, valueJSON,
			string(f.Provenance.SourceType), f.Provenance.SourceRef, f.Provenance.DocumentID,
			f.Provenance.PageNumber, f.Provenance.Confidence, string(f.Status), f.DocumentIndex, f.CreatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert fact %s", f.CanonicalPath)
		}
	}
	return nil
}

func (s *PostgresStore) ListFacts(ctx context.Context, listingID string) ([]model.FieldFact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, listing_id, canonical_path, value, source_type, source_ref, document_id, page_number, confidence, status, document_index, created_at
		 FROM listing_facts WHERE listing_id = $1 ORDER BY created_at, id`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list facts")
	}
	defer rows.Close()

	var facts []model.FieldFact
	for rows.Next() {
		var f model.FieldFact
		var valueJSON []byte
		var sourceRef, documentID *string
		err := rows.Scan(&f.ID, &f.ListingID, &f.CanonicalPath, &valueJSON,
			&f.Provenance.SourceType, &sourceRef, &documentID,
			&f.Provenance.PageNumber, &f.Provenance.Confidence, &f.Status, &f.DocumentIndex, &f.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan fact")
		}
		if sourceRef != nil {
			f.Provenance.SourceRef = *sourceRef
		}
		if documentID != nil {
			f.Provenance.DocumentID = *documentID
		}
		if err := json.Unmarshal(valueJSON, &f.Value); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal fact value")
		}
		facts = append(facts, f)
	}
	return facts, eris.Wrap(rows.Err(), "postgres: list facts iterate")
}

func (s *PostgresStore) AddImage(ctx context.Context, img *model.Image) error {
	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO listing_images
		 (id, listing_id, filename, storage_ref, ai_suggested_label, ai_suggested_description, ai_suggested_room_type, ai_suggested_order,
		  final_label, final_description, final_room_type, photo_type, display_order, order_locked, is_primary, upload_index, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		img.ID, img.ListingID, img.Filename, img.StorageRef,
		img.AISuggestedLabel, img.AISuggestedDescription, img.AISuggestedRoomType, img.AISuggestedOrder,
		img.FinalLabel, img.FinalDescription, img.FinalRoomType, img.PhotoType,
		img.DisplayOrder, img.OrderLocked, img.IsPrimary, img.UploadIndex, img.UploadedAt,
	)
	return eris.Wrap(err, "postgres: insert image")
}

func (s *PostgresStore) ListImages(ctx context.Context, listingID string) ([]model.Image, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, listing_id, filename, storage_ref, ai_suggested_label, ai_suggested_description, ai_suggested_room_type, ai_suggested_order,
		        final_label, final_description, final_room_type, photo_type, display_order, order_locked, is_primary, upload_index, uploaded_at
		 FROM listing_images WHERE listing_id = $1 ORDER BY upload_index`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list images")
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		var img model.Image
		var storageRef *string
		err := rows.Scan(&img.ID, &img.ListingID, &img.Filename, &storageRef,
			&img.AISuggestedLabel, &img.AISuggestedDescription, &img.AISuggestedRoomType, &img.AISuggestedOrder,
			&img.FinalLabel, &img.FinalDescription, &img.FinalRoomType, &img.PhotoType,
			&img.DisplayOrder, &img.OrderLocked, &img.IsPrimary, &img.UploadIndex, &img.UploadedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan image")
		}
		if storageRef != nil {
			img.StorageRef = *storageRef
		}
		images = append(images, img)
	}
	return images, eris.Wrap(rows.Err(), "postgres: list images iterate")
}

func (s *PostgresStore) UpdateImage(ctx context.Context, img *model.Image) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listing_images SET
		   ai_suggested_label = $1, ai_suggested_description = $2, ai_suggested_room_type = $3, ai_suggested_order = $4,
		   final_label = $5, final_description = $6, final_room_type = $7, photo_type = $8,
		   display_order = $9, order_locked = $10, is_primary = $11
		 WHERE id = $12`,
		img.AISuggestedLabel, img.AISuggestedDescription, img.AISuggestedRoomType, img.AISuggestedOrder,
		img.FinalLabel, img.FinalDescription, img.FinalRoomType, img.PhotoType,
		img.DisplayOrder, img.OrderLocked, img.IsPrimary, img.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update image %s", img.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("image not found: %s", img.ID)
	}
	return nil
}

func (s *PostgresStore) GetGeoCache(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT value FROM geo_cache WHERE key = $1 AND expires_at > now()`,
		key,
	)

	var value []byte
	err := row.Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: get geo cache")
	}
	return value, true, nil
}

func (s *PostgresStore) PutGeoCache(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO geo_cache (key, value, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		key, value, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: put geo cache")
}
