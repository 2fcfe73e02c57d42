package generations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	rec := Record{
		ID:        "gen-1",
		UserID:    "user-1",
		RequestID: "req-1",
		Kind:      "compatibility-report",
		Outcome:   OutcomeFallback,
		Attempts:  3,
		LatencyMs: 1200,
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO generations").
		WithArgs(
			rec.ID,
			rec.UserID,
			rec.RequestID,
			rec.Kind,
			rec.Outcome,
			sql.NullString{}, // error_code
			rec.Attempts,
			rec.LatencyMs,
			sql.NullString{String: "openai", Valid: true},
			sql.NullString{String: "gpt-4o-mini", Valid: true},
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	created := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "request_id", "kind", "outcome", "error_code", "attempts", "latency_ms", "provider", "model", "created_at",
	}).
		AddRow("gen-2", "user-1", "req-2", "structured-reflection", OutcomeFailed, "UNKNOWN_ERROR", 1, 800, "openai", "gpt-4o-mini", created).
		AddRow("gen-1", "user-1", "req-1", "card-interpretation", OutcomeGenerated, nil, 1, 900, nil, nil, created.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, user_id, request_id, kind, outcome").
		WithArgs("user-1", 20, 0).
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	items, err := repo.ListByUser(context.Background(), "user-1", 20, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ErrorCode != "UNKNOWN_ERROR" || items[1].ErrorCode != "" || items[1].Provider != "" {
		t.Fatalf("unexpected null handling: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
