package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/exam-grader/internal/types"
)

const examColumns = `id, course, exam_date, max_score, description, answer_key, created_by, created_at, updated_at`

func scanExam(row pgx.Row) (*types.Exam, error) {
	var e types.Exam
	err := row.Scan(&e.ID, &e.Course, &e.Date.Time, &e.MaxScore, &e.Description, &e.AnswerKey,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExam inserts an exam and returns the stored row.
// A zero MaxScore is stored as types.DefaultMaxScore.
func (db *DB) CreateExam(ctx context.Context, exam *types.Exam) (*types.Exam, error) {
	maxScore := exam.MaxScore
	if maxScore <= 0 {
		maxScore = types.DefaultMaxScore
	}
	created, err := scanExam(db.pool.QueryRow(ctx,
		`INSERT INTO exams (course, exam_date, max_score, description, answer_key, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+examColumns,
		exam.Course, exam.Date.Time, maxScore, exam.Description, exam.AnswerKey, exam.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	return created, nil
}

// GetExam retrieves an exam by ID. Returns nil, nil when no exam matches.
func (db *DB) GetExam(ctx context.Context, id uuid.UUID) (*types.Exam, error) {
	exam, err := scanExam(db.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// ListExams returns every exam, most recent date first.
func (db *DB) ListExams(ctx context.Context) ([]types.Exam, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams ORDER BY exam_date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	defer rows.Close()

	exams := []types.Exam{}
	for rows.Next() {
		exam, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exam: %w", err)
		}
		exams = append(exams, *exam)
	}
	return exams, rows.Err()
}

// UpdateExam writes the editable fields of exam and returns the stored row.
func (db *DB) UpdateExam(ctx context.Context, exam *types.Exam) (*types.Exam, error) {
	updated, err := scanExam(db.pool.QueryRow(ctx,
		`UPDATE exams
		 SET course = $1, exam_date = $2, max_score = $3, description = $4, answer_key = $5, updated_at = NOW()
		 WHERE id = $6
		 RETURNING `+examColumns,
		exam.Course, exam.Date.Time, exam.MaxScore, exam.Description, exam.AnswerKey, exam.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("exam %s: %w", exam.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	return updated, nil
}

// DeleteExam deletes an exam with its copies, claims and chat messages (via cascade).
func (db *DB) DeleteExam(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return nil
}
