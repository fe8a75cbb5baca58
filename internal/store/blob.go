package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"vetrian/internal/utils"
	"vetrian/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const registrantFileTableName = "registrant_files"

type registrantFile struct {
	Key         string    `db:"key"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	Data        []byte    `db:"data"`
	CreatedAt   time.Time `db:"created_at"`
}

// BlobRepository keeps uploads that are held in memory inside Postgres.
type BlobRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewBlobRepository(pool *pgxpool.Pool) *BlobRepository {
	return &BlobRepository{pool: pool, now: time.Now}
}

func (r *BlobRepository) Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read upload %s: %w", key, err)
	}

	file := registrantFile{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
		CreatedAt:   r.now().UTC(),
	}

	query, args, err := psql().
		Insert(registrantFileTableName).
		SetMap(utils.StructToMap(file)).
		Suffix("ON CONFLICT (key) DO UPDATE SET content_type = EXCLUDED.content_type, size = EXCLUDED.size, data = EXCLUDED.data").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate file insert: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to store file")
}

func (r *BlobRepository) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	query, args, err := psql().
		Select(utils.StructTagValues(registrantFile{})...).
		From(registrantFileTableName).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate file query: %w", err)
	}

	var file registrantFile
	err = pgxscan.Get(ctx, r.pool, &file, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrFileNotFound
		}
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(file.Data)), nil
}

func (r *BlobRepository) Remove(ctx context.Context, key string) error {
	query, args, err := psql().
		Delete(registrantFileTableName).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate file delete: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return types.ErrFileNotFound
	}

	return nil
}
