package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var leadColumns = []string{"id", "session_id", "name", "contact", "message", "language", "created_at"}

func TestPostgresStoreCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithDB(mock)
	created := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	lead := &Lead{ID: "l-1", SessionID: "s-1", Name: "Anna", Contact: "anna@example.com", Language: "it", CreatedAt: created}

	mock.ExpectExec("INSERT INTO support_leads").
		WithArgs("l-1", "s-1", "Anna", "anna@example.com", "", "it", created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.Create(context.Background(), lead); err != nil {
		t.Fatalf("create: %v", err)
	}

	mock.ExpectExec("INSERT INTO support_leads").
		WithArgs("l-2", "", "", "x", "", "en", created).
		WillReturnError(errors.New("connection reset"))
	if err := store.Create(context.Background(), &Lead{ID: "l-2", Contact: "x", Language: "en", CreatedAt: created}); err == nil {
		t.Fatal("expected insert error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithDB(mock)
	created := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, session_id, name, contact, message, language, created_at").
		WithArgs("l-1").
		WillReturnRows(pgxmock.NewRows(leadColumns).AddRow("l-1", "s-1", "Anna", "anna@example.com", "hi", "it", created))
	lead, err := store.GetByID(context.Background(), "l-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lead.Name != "Anna" || !lead.CreatedAt.Equal(created) {
		t.Errorf("unexpected lead %+v", lead)
	}

	mock.ExpectQuery("SELECT id, session_id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithDB(mock)
	created := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("FROM support_leads").
		WithArgs(50, 10).
		WillReturnRows(pgxmock.NewRows(leadColumns).
			AddRow("l-2", "", "Bruno", "bruno@example.com", "", "en", created.Add(time.Hour)).
			AddRow("l-1", "s-1", "Anna", "anna@example.com", "hi", "it", created))

	leads, err := store.List(context.Background(), ListFilter{Offset: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 2 || leads[0].ID != "l-2" {
		t.Fatalf("unexpected leads %+v", leads)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
