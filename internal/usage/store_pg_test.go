package usage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestPGStore(t *testing.T, now time.Time) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := NewPGStore(db, Plan{Name: "Daily", Limit: 3})
	store.now = func() time.Time { return now }
	return store, mock
}

func TestPGStoreConsumeCreatesRow(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store, mock := newTestPGStore(t, now)
	resetsAt := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan, limit_amount, used, resets_at FROM generation_usage").
		WithArgs("user-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO generation_usage").
		WithArgs("user-1", "Daily", 3, 0, resetsAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE generation_usage SET used").
		WithArgs(1, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := store.Consume(context.Background(), "user-1", 1)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if u.Used != 1 || u.Limit != 3 || !u.ResetsAt.Equal(resetsAt) {
		t.Fatalf("unexpected usage %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreConsumeRollsBackAtLimit(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store, mock := newTestPGStore(t, now)
	resetsAt := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan, limit_amount, used, resets_at FROM generation_usage").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "limit_amount", "used", "resets_at"}).
			AddRow("Daily", 3, 3, resetsAt))
	mock.ExpectRollback()

	if _, err := store.Consume(context.Background(), "user-1", 1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreEnsureStartsNewPeriod(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	store, mock := newTestPGStore(t, now)
	stale := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	next := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan, limit_amount, used, resets_at FROM generation_usage").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "limit_amount", "used", "resets_at"}).
			AddRow("Daily", 3, 3, stale))
	mock.ExpectExec("UPDATE generation_usage SET used = \\$1, resets_at = \\$2").
		WithArgs(0, next, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := store.EnsurePeriod(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsurePeriod: %v", err)
	}
	if u.Used != 0 || !u.ResetsAt.Equal(next) {
		t.Fatalf("unexpected usage %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreRefundDecrementsUsed(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store, mock := newTestPGStore(t, now)
	resetsAt := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan, limit_amount, used, resets_at FROM generation_usage").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "limit_amount", "used", "resets_at"}).
			AddRow("Daily", 3, 2, resetsAt))
	mock.ExpectExec("UPDATE generation_usage SET used").
		WithArgs(1, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := store.Refund(context.Background(), "user-1", 1)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if u.Used != 1 {
		t.Fatalf("expected used=1, got %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
