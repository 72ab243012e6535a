package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/lib/pq"
)

// TagRepository handles tags and the record_tags join table.
type TagRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTagRepository(db *sql.DB, logger *slog.Logger) *TagRepository {
	return &TagRepository{db: db, logger: logger}
}

func (r *TagRepository) FindTag(ctx context.Context, id int64) (*models.Tag, error) {
	return r.findTag(ctx, `SELECT id, name, slug, color FROM tags WHERE id = $1`, id)
}

func (r *TagRepository) FindTagByName(ctx context.Context, name string) (*models.Tag, error) {
	return r.findTag(ctx, `SELECT id, name, slug, color FROM tags WHERE LOWER(name) = LOWER($1)`, name)
}

func (r *TagRepository) findTag(ctx context.Context, query string, arg any) (*models.Tag, error) {
	var tag models.Tag

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", protocol.ErrTagNotFound, arg)
		}

		return nil, fmt.Errorf("failed to query tag: %w", err)
	}

	return &tag, nil
}

// CreateTag inserts tag. When a tag with the same name already exists,
// for instance created by a concurrent run, its id is returned instead.
func (r *TagRepository) CreateTag(ctx context.Context, tag models.Tag) (int64, error) {
	var id int64

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug, color) VALUES ($1, $2, $3) RETURNING id
	`, tag.Name, tag.Slug, tag.Color).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !isPQError(err, uniqueViolation) {
		return 0, fmt.Errorf("failed to create tag %q: %w", tag.Name, err)
	}

	existing, findErr := r.FindTagByName(ctx, tag.Name)
	if findErr != nil {
		return 0, findErr
	}

	return existing.ID, nil
}

func (r *TagRepository) RecordTags(ctx context.Context, recordID int64) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.color
		FROM record_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.record_id = $1
		ORDER BY rt.created_at, t.id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query record tags: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	tags := make([]models.Tag, 0)

	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.Color); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}

		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record tags: %w", err)
	}

	return tags, nil
}

// AttachTags links tagIDs to recordID in one statement; existing links are
// left alone.
func (r *TagRepository) AttachTags(ctx context.Context, recordID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	var exists bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM module_records WHERE id = $1 AND deleted_at IS NULL)
	`, recordID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check record %d: %w", recordID, err)
	}

	if !exists {
		return persistence.NewRecordError("AttachTags", recordID, protocol.ErrRecordNotFound)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO record_tags (record_id, tag_id)
		SELECT DISTINCT $1::bigint, UNNEST($2::bigint[])
		ON CONFLICT DO NOTHING
	`, recordID, pq.Array(tagIDs))
	if err != nil {
		if isPQError(err, foreignKeyViolation) {
			return persistence.NewRecordError("AttachTags", recordID, protocol.ErrTagNotFound)
		}

		return persistence.NewRecordError("AttachTags", recordID, err)
	}

	return nil
}

func (r *TagRepository) DetachTags(ctx context.Context, recordID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		DELETE FROM record_tags WHERE record_id = $1 AND tag_id = ANY($2::bigint[])
	`, recordID, pq.Array(tagIDs))
	if err != nil {
		return persistence.NewRecordError("DetachTags", recordID, err)
	}

	return nil
}
