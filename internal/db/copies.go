package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/exam-grader/internal/types"
)

const copyColumns = `id, exam_id, file_path, original_name, content_type, student_name, grade,
	annotations, competencies, extracted_text, status, error, corrected_at, created_at, updated_at`

func scanCopy(row pgx.Row) (*types.Copy, error) {
	var c types.Copy
	var annotations, competencies []byte
	err := row.Scan(&c.ID, &c.ExamID, &c.FilePath, &c.OriginalName, &c.ContentType, &c.StudentName,
		&c.Grade, &annotations, &competencies, &c.ExtractedText, &c.Status, &c.Error,
		&c.CorrectedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(annotations, &c.Annotations); err != nil {
		return nil, fmt.Errorf("failed to decode annotations: %w", err)
	}
	if err := unmarshalJSONB(competencies, &c.Competencies); err != nil {
		return nil, fmt.Errorf("failed to decode competencies: %w", err)
	}
	c.FileURL = types.CopyFileURL(c.ExamID, c.ID)
	return &c, nil
}

// CreateCopy inserts a pending copy and returns the stored row.
func (db *DB) CreateCopy(ctx context.Context, c *types.Copy) (*types.Copy, error) {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created, err := scanCopy(db.pool.QueryRow(ctx,
		`INSERT INTO copies (id, exam_id, file_path, original_name, content_type, student_name, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+copyColumns,
		id, c.ExamID, c.FilePath, c.OriginalName, c.ContentType, c.StudentName, types.CopyStatusPending,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create copy: %w", err)
	}
	return created, nil
}

// GetCopy retrieves a copy by ID. Returns nil, nil when no copy matches.
func (db *DB) GetCopy(ctx context.Context, id uuid.UUID) (*types.Copy, error) {
	c, err := scanCopy(db.pool.QueryRow(ctx,
		`SELECT `+copyColumns+` FROM copies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get copy: %w", err)
	}
	return c, nil
}

// ListCopies returns the copies of an exam in upload order.
// An empty status lists every copy.
func (db *DB) ListCopies(ctx context.Context, examID uuid.UUID, status types.CopyStatus) ([]types.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM copies WHERE exam_id = $1`
	args := []any{examID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list copies: %w", err)
	}
	defer rows.Close()

	copies := []types.Copy{}
	for rows.Next() {
		c, err := scanCopy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan copy: %w", err)
		}
		copies = append(copies, *c)
	}
	return copies, rows.Err()
}

// SaveCorrection stores the outcome of an automatic correction and marks the copy corrected.
func (db *DB) SaveCorrection(ctx context.Context, copyID uuid.UUID, result types.Correction) (*types.Copy, error) {
	annotations, err := marshalJSONB(result.Annotations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotations: %w", err)
	}
	competencies, err := marshalJSONB(result.Competencies)
	if err != nil {
		return nil, fmt.Errorf("failed to encode competencies: %w", err)
	}

	c, err := scanCopy(db.pool.QueryRow(ctx,
		`UPDATE copies
		 SET grade = $1, annotations = $2, competencies = $3, extracted_text = $4,
		     status = $5, error = '', corrected_at = $6, updated_at = NOW(),
		     student_name = CASE WHEN student_name = '' THEN $7 ELSE student_name END
		 WHERE id = $8
		 RETURNING `+copyColumns,
		result.Grade, annotations, competencies, result.ExtractedText,
		types.CopyStatusCorrected, time.Now().UTC(), result.StudentName, copyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("copy %s: %w", copyID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to save correction: %w", err)
	}
	return c, nil
}

// MarkCopyFailed records a grading failure. The previous grade, if any, is kept.
func (db *DB) MarkCopyFailed(ctx context.Context, copyID uuid.UUID, reason string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE copies SET status = $1, error = $2, updated_at = NOW() WHERE id = $3`,
		types.CopyStatusFailed, reason, copyID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark copy failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("copy %s: %w", copyID, ErrNotFound)
	}
	return nil
}

// ReviewCopy stores a professor's grade. Annotations are replaced only when non-nil.
func (db *DB) ReviewCopy(ctx context.Context, copyID uuid.UUID, grade float64, annotations map[string]any) (*types.Copy, error) {
	encoded, err := marshalJSONB(annotations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotations: %w", err)
	}

	c, err := scanCopy(db.pool.QueryRow(ctx,
		`UPDATE copies
		 SET grade = $1, annotations = COALESCE($2, annotations), status = $3, error = '',
		     corrected_at = COALESCE(corrected_at, NOW()), updated_at = NOW()
		 WHERE id = $4
		 RETURNING `+copyColumns,
		grade, encoded, types.CopyStatusReviewed, copyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("copy %s: %w", copyID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to review copy: %w", err)
	}
	return c, nil
}

// DeleteCopy deletes a copy with its claims and chat messages (via cascade).
func (db *DB) DeleteCopy(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM copies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete copy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("copy %s: %w", id, ErrNotFound)
	}
	return nil
}
