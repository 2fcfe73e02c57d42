package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore keeps usage rows in the generation_usage table.
type PGStore struct {
	DB   *sql.DB
	plan Plan
	now  func() time.Time
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB, plan Plan) *PGStore {
	return &PGStore{DB: db, plan: plan, now: time.Now}
}

func (s *PGStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *PGStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *PGStore) Consume(ctx context.Context, userID string, n int) (u Usage, err error) {
	if n <= 0 {
		return s.ensure(ctx, userID)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if u.Used+n > u.Limit {
		err = ErrLimitReached
		return Usage{}, err
	}
	u.Used += n
	if _, err = tx.ExecContext(ctx, `
UPDATE generation_usage SET used = $1 WHERE user_id = $2`, u.Used, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// Refund gives back n units in the current period. A refund that lands after
// the period rolled over is clamped at zero.
func (s *PGStore) Refund(ctx context.Context, userID string, n int) (u Usage, err error) {
	if n <= 0 {
		return s.ensure(ctx, userID)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	u.Used -= n
	if u.Used < 0 {
		u.Used = 0
	}
	if _, err = tx.ExecContext(ctx, `
UPDATE generation_usage SET used = $1 WHERE user_id = $2`, u.Used, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *PGStore) Reset(ctx context.Context, userID string) (Usage, error) {
	u := s.plan.fresh(s.now().UTC())
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO generation_usage (user_id, plan, limit_amount, used, resets_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (user_id) DO UPDATE SET used = 0, plan = EXCLUDED.plan, limit_amount = EXCLUDED.limit_amount, resets_at = EXCLUDED.resets_at`,
		userID, u.Plan, u.Limit, u.ResetsAt); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *PGStore) ensure(ctx context.Context, userID string) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// lockAndEnsure row-locks the user's usage, creating it or starting a new
// period as needed. The configured limit always wins over the stored one.
func (s *PGStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Usage, error) {
	now := s.now().UTC()
	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT plan, limit_amount, used, resets_at FROM generation_usage WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&u.Plan, &u.Limit, &u.Used, &u.ResetsAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Usage{}, err
		}
		u = s.plan.fresh(now)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO generation_usage (user_id, plan, limit_amount, used, resets_at) VALUES ($1, $2, $3, $4, $5)`,
			userID, u.Plan, u.Limit, u.Used, u.ResetsAt); err != nil {
			return Usage{}, err
		}
		return u, nil
	}

	u.Plan, u.Limit = s.plan.Name, s.plan.Limit
	if expired(u, now) {
		u.Used = 0
		u.ResetsAt = nextReset(now)
		if _, err := tx.ExecContext(ctx, `UPDATE generation_usage SET used = $1, resets_at = $2 WHERE user_id = $3`, u.Used, u.ResetsAt, userID); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}
