package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/amirulm/aidlog/internal/repository"
)

// ActivityRepository implements repository.ActivityRepository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `
	id, title, type, occurred_at, occurred_at_raw,
	count_number, count_text, location, lat, lng, note,
	attachment_kind, attachment_file_id, attachment_url,
	reporter_id, created_at, modified_at
`

// Insert stores a new record. All columns are written in one statement
// so a failed insert leaves no partial row behind.
func (r *ActivityRepository) Insert(ctx context.Context, rec *activity.Record) error {
	query := `
		INSERT INTO activities (` + activityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	kind, fileID, publicURL := flattenAttachment(rec.Attachment)
	lat, lng := flattenCoordinates(rec.Coordinates)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Title,
		rec.Type,
		rec.OccurredAt,
		rec.OccurredAtRaw,
		rec.Count.Number,
		rec.Count.Text,
		rec.Location,
		lat,
		lng,
		rec.Note,
		kind,
		fileID,
		publicURL,
		rec.ReporterID,
		rec.CreatedAt,
		rec.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// Update rewrites an existing record keyed by its ID.
func (r *ActivityRepository) Update(ctx context.Context, rec *activity.Record) error {
	query := `
		UPDATE activities
		SET title = ?, type = ?, occurred_at = ?, occurred_at_raw = ?,
		    count_number = ?, count_text = ?, location = ?, lat = ?, lng = ?,
		    note = ?, attachment_kind = ?, attachment_file_id = ?,
		    attachment_url = ?, modified_at = ?
		WHERE id = ?
	`

	kind, fileID, publicURL := flattenAttachment(rec.Attachment)
	lat, lng := flattenCoordinates(rec.Coordinates)

	result, err := r.db.ExecContext(ctx, query,
		rec.Title,
		rec.Type,
		rec.OccurredAt,
		rec.OccurredAtRaw,
		rec.Count.Number,
		rec.Count.Text,
		rec.Location,
		lat,
		lng,
		rec.Note,
		kind,
		fileID,
		publicURL,
		rec.ModifiedAt,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a record.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Get retrieves a record by its full ID.
func (r *ActivityRepository) Get(ctx context.Context, id string) (*activity.Record, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = ?`

	rec, err := scanActivity(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return rec, nil
}

// ResolveID expands a full ID or unique prefix to the full ID.
func (r *ActivityRepository) ResolveID(ctx context.Context, idOrPrefix string) (string, error) {
	if idOrPrefix == "" {
		return "", repository.ErrInvalidInput
	}

	query := `SELECT id FROM activities WHERE id = ? OR id LIKE ? ESCAPE '\' LIMIT 2`
	rows, err := r.db.QueryContext(ctx, query, idOrPrefix, escapeLike(idOrPrefix)+"%")
	if err != nil {
		return "", fmt.Errorf("failed to resolve id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating id rows: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", repository.ErrNotFound
	case 1:
		return ids[0], nil
	default:
		// Exact match wins even when the prefix is shared.
		for _, id := range ids {
			if id == idOrPrefix {
				return id, nil
			}
		}
		return "", repository.ErrAmbiguousID
	}
}

// ListRecent returns records ordered by occurred_at descending.
func (r *ActivityRepository) ListRecent(ctx context.Context, limit, offset int) ([]activity.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + activityColumns + `
		FROM activities
		ORDER BY occurred_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	return collectActivities(rows)
}

// ListBetween returns records with occurred_at in [from, to), ascending.
func (r *ActivityRepository) ListBetween(ctx context.Context, from, to time.Time) ([]activity.Record, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	return collectActivities(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*activity.Record, error) {
	var (
		rec      activity.Record
		number   sql.NullInt64
		lat, lng sql.NullFloat64
		kind     string
		fileID   string
		url      string
	)

	err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.Type,
		&rec.OccurredAt,
		&rec.OccurredAtRaw,
		&number,
		&rec.Count.Text,
		&rec.Location,
		&lat,
		&lng,
		&rec.Note,
		&kind,
		&fileID,
		&url,
		&rec.ReporterID,
		&rec.CreatedAt,
		&rec.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if number.Valid {
		rec.Count.Number = &number.Int64
	}
	if lat.Valid && lng.Valid {
		rec.Coordinates = &activity.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if kind != "" {
		rec.Attachment = &activity.Attachment{
			Kind:      activity.AttachmentKind(kind),
			FileID:    fileID,
			PublicURL: url,
		}
	}
	return &rec, nil
}

func collectActivities(rows *sql.Rows) ([]activity.Record, error) {
	var recs []activity.Record
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return recs, nil
}

func flattenAttachment(att *activity.Attachment) (kind, fileID, publicURL string) {
	if att == nil {
		return "", "", ""
	}
	return string(att.Kind), att.FileID, att.PublicURL
}

func flattenCoordinates(coords *activity.Coordinates) (lat, lng any) {
	if coords == nil {
		return nil, nil
	}
	return coords.Lat, coords.Lng
}
