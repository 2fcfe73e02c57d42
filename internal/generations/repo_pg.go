package generations

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a generation record.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO generations (
	id, user_id, request_id, kind, outcome, error_code, attempts, latency_ms, provider, model, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.RequestID,
		rec.Kind,
		rec.Outcome,
		nullString(rec.ErrorCode),
		rec.Attempts,
		rec.LatencyMs,
		nullString(rec.Provider),
		nullString(rec.Model),
		rec.CreatedAt,
	)
	return err
}

// ListByUser returns a user's records, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	const query = `
SELECT id, user_id, request_id, kind, outcome, error_code, attempts, latency_ms, provider, model, created_at
FROM generations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var errorCode, provider, model sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.RequestID,
			&rec.Kind,
			&rec.Outcome,
			&errorCode,
			&rec.Attempts,
			&rec.LatencyMs,
			&provider,
			&model,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.ErrorCode = errorCode.String
		rec.Provider = provider.String
		rec.Model = model.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
