package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	intdb "github.com/feridsherif/crms-frontend/internal/db"
	"github.com/feridsherif/crms-frontend/internal/domain"
)

const auditTable = "admin_audit_log"

const createAuditTable = `
CREATE TABLE IF NOT EXISTS admin_audit_log (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	actor_id VARCHAR(64) NOT NULL,
	actor_name VARCHAR(128) NULL,
	entity VARCHAR(32) NOT NULL,
	action VARCHAR(32) NOT NULL,
	record_id VARCHAR(64) NULL,
	request_id VARCHAR(64) NULL,
	created_at DATETIME NOT NULL,
	INDEX idx_admin_audit_log_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// AuditRepository stores the admin audit trail in MySQL.
type AuditRepository struct {
	DB *sql.DB
}

// EnsureSchema creates admin_audit_log when it is missing.
func (r AuditRepository) EnsureSchema(ctx context.Context) error {
	if r.DB == nil {
		return errors.New("audit repository has no database")
	}
	if intdb.HasTable(ctx, r.DB, auditTable) {
		return nil
	}
	if _, err := r.DB.ExecContext(ctx, createAuditTable); err != nil {
		return errors.Wrap(err, "create admin_audit_log")
	}
	return nil
}

// Insert appends one entry.
func (r AuditRepository) Insert(ctx context.Context, e domain.AuditEntry) error {
	if r.DB == nil {
		return errors.New("audit repository has no database")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO admin_audit_log (actor_id, actor_name, entity, action, record_id, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ActorID, intdb.NullIfEmpty(e.ActorName), e.Entity, e.Action,
		intdb.NullIfEmpty(e.RecordID), intdb.NullIfEmpty(e.RequestID), e.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert audit entry")
	}
	return nil
}

// List returns the most recent entries, newest first. entity may be empty.
func (r AuditRepository) List(ctx context.Context, entity string, limit int) ([]domain.AuditEntry, error) {
	if r.DB == nil {
		return nil, errors.New("audit repository has no database")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, actor_id, COALESCE(actor_name,''), entity, action,
		       COALESCE(record_id,''), COALESCE(request_id,''), created_at
		FROM admin_audit_log`
	args := []any{}
	if entity != "" {
		query += ` WHERE entity = ?`
		args = append(args, entity)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query audit entries")
	}
	defer rows.Close()

	out := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorName, &e.Entity, &e.Action, &e.RecordID, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan audit entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate audit entries")
	}
	return out, nil
}
