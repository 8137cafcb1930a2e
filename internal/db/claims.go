package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/exam-grader/internal/types"
)

const claimColumns = `id, copy_id, exam_id, kind, message, response, status, created_by, created_at, resolved_at`

func scanClaim(row pgx.Row) (*types.Claim, error) {
	var c types.Claim
	err := row.Scan(&c.ID, &c.CopyID, &c.ExamID, &c.Kind, &c.Message, &c.Response, &c.Status,
		&c.CreatedBy, &c.CreatedAt, &c.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClaim records a rectification request or flag in the pending state.
func (db *DB) CreateClaim(ctx context.Context, claim *types.Claim) (*types.Claim, error) {
	created, err := scanClaim(db.pool.QueryRow(ctx,
		`INSERT INTO claims (copy_id, exam_id, kind, message, response, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+claimColumns,
		claim.CopyID, claim.ExamID, claim.Kind, claim.Message, claim.Response, types.ClaimPending, claim.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}
	return created, nil
}

// GetClaim retrieves a claim by ID. Returns nil, nil when no claim matches.
func (db *DB) GetClaim(ctx context.Context, id uuid.UUID) (*types.Claim, error) {
	claim, err := scanClaim(db.pool.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// ListClaims returns the claims of an exam, oldest first. An empty status lists all claims.
func (db *DB) ListClaims(ctx context.Context, examID uuid.UUID, status types.ClaimStatus) ([]types.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE exam_id = $1`
	args := []any{examID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := []types.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, *claim)
	}
	return claims, rows.Err()
}

// ResolveClaim marks a claim resolved. The response is replaced only when non-nil.
func (db *DB) ResolveClaim(ctx context.Context, id uuid.UUID, response *string) (*types.Claim, error) {
	claim, err := scanClaim(db.pool.QueryRow(ctx,
		`UPDATE claims
		 SET status = $1, response = COALESCE($2, response), resolved_at = NOW()
		 WHERE id = $3
		 RETURNING `+claimColumns,
		types.ClaimResolved, response, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("claim %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve claim: %w", err)
	}
	return claim, nil
}
