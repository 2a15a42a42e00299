package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

func TestAuditInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec("INSERT INTO admin_audit_log").
		WithArgs("7", "admin", "roles", "default", "3", nil, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := AuditRepository{DB: db}
	err = repo.Insert(context.Background(), domain.AuditEntry{
		ActorID: "7", ActorName: "admin", Entity: "roles", Action: "default", RecordID: "3", CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO admin_audit_log").WillReturnError(errors.New("disk full"))

	err = AuditRepository{DB: db}.Insert(context.Background(), domain.AuditEntry{ActorID: "1", Entity: "users", Action: "delete"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestAuditListFiltersByEntity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("SELECT id, actor_id.*FROM admin_audit_log WHERE entity = \\? ORDER BY id DESC LIMIT \\?").
		WithArgs("users", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor_id", "actor_name", "entity", "action", "record_id", "request_id", "created_at"}).
			AddRow(int64(9), "7", "admin", "users", "restore", "8", "req-1", at).
			AddRow(int64(4), "7", "admin", "users", "create", "8", "", at))

	entries, err := AuditRepository{DB: db}.List(context.Background(), "users", 0)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != 9 || entries[0].Action != "restore" || entries[0].RequestID != "req-1" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if !entries[1].CreatedAt.Equal(at) {
		t.Fatalf("created_at not scanned, got %v", entries[1].CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("information_schema\\.tables").WithArgs("admin_audit_log").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS admin_audit_log").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := (AuditRepository{DB: db}).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema error: %v", err)
	}

	mock.ExpectQuery("information_schema\\.tables").WithArgs("admin_audit_log").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("admin_audit_log"))
	if err := (AuditRepository{DB: db}).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditWithoutDB(t *testing.T) {
	if err := (AuditRepository{}).Insert(context.Background(), domain.AuditEntry{}); err == nil {
		t.Fatalf("expected error without db")
	}
}
