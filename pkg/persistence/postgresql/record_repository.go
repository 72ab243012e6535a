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
)

// RecordRepository stores module records as jsonb field maps. Deleted
// records are kept with deleted_at set and are invisible to every read.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRecordRepository(db *sql.DB, logger *slog.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

const recordColumns = `id, module_id, data, created_by, updated_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		record    models.Record
		raw       []byte
		createdBy sql.NullInt64
		updatedBy sql.NullInt64
	)

	if err := row.Scan(&record.ID, &record.ModuleID, &raw, &createdBy, &updatedBy, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}

	data, err := decodeData(raw)
	if err != nil {
		return nil, err
	}

	record.Data = data
	record.CreatedBy = nullInt64Ptr(createdBy)
	record.UpdatedBy = nullInt64Ptr(updatedBy)

	return &record, nil
}

func (r *RecordRepository) FindRecord(ctx context.Context, id int64) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM module_records WHERE id = $1 AND deleted_at IS NULL`, id)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("FindRecord", id, protocol.ErrRecordNotFound)
		}

		return nil, persistence.NewRecordError("FindRecord", id, err)
	}

	return record, nil
}

func (r *RecordRepository) CreateRecord(ctx context.Context, moduleID int64, data map[string]any, createdBy *int64) (int64, error) {
	encoded, err := encodeData(data)
	if err != nil {
		return 0, err
	}

	var id int64

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO module_records (module_id, data, created_by, updated_by)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`, moduleID, encoded, createdBy).Scan(&id)
	if err != nil {
		if isPQError(err, foreignKeyViolation) {
			return 0, persistence.NewRecordError("CreateRecord", 0, protocol.ErrModuleNotFound)
		}

		return 0, persistence.NewRecordError("CreateRecord", 0, err)
	}

	return id, nil
}

// UpdateRecord merges fields into the stored jsonb with the || operator.
func (r *RecordRepository) UpdateRecord(ctx context.Context, id int64, fields map[string]any, updatedBy *int64) error {
	encoded, err := encodeData(fields)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE module_records
		SET data = data || $2::jsonb,
			updated_by = COALESCE($3::bigint, updated_by),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, encoded, updatedBy)
	if err != nil {
		return persistence.NewRecordError("UpdateRecord", id, err)
	}

	return expectAffected(result, persistence.NewRecordError("UpdateRecord", id, protocol.ErrRecordNotFound))
}

func (r *RecordRepository) DeleteRecord(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE module_records SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return persistence.NewRecordError("DeleteRecord", id, err)
	}

	return expectAffected(result, persistence.NewRecordError("DeleteRecord", id, protocol.ErrRecordNotFound))
}

// fieldMatch compares the text form of the field, or of any element when
// the field holds a list, so 7 and "7" are equal.
const fieldMatch = `
	module_id = $1 AND deleted_at IS NULL AND (
		(jsonb_typeof(data->$2::text) <> 'array' AND data->>$2::text = $3::text)
		OR (jsonb_typeof(data->$2::text) = 'array' AND EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(data->$2::text) AS element WHERE element = $3::text
		))
	)
`

func (r *RecordRepository) FindRecordsByField(ctx context.Context, moduleID int64, field string, value any) ([]*models.Record, error) {
	text, ok := models.ValueOf(value).String()
	if !ok {
		return []*models.Record{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM module_records WHERE `+fieldMatch+` ORDER BY id`, moduleID, field, text)
	if err != nil {
		return nil, fmt.Errorf("failed to query records by %s: %w", field, err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	records := make([]*models.Record, 0)

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

func (r *RecordRepository) CountRecordsByField(ctx context.Context, moduleID int64, field string, value any) (int, error) {
	text, ok := models.ValueOf(value).String()
	if !ok {
		return 0, nil
	}

	var count int

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM module_records WHERE `+fieldMatch, moduleID, field, text).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records by %s: %w", field, err)
	}

	return count, nil
}

func expectAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}

	return &v.Int64
}
