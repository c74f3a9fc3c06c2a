package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cruiselens/payments-backend/internal/models"
)

type auditLogsRepo struct{ db *sql.DB }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	details, err := json.Marshal(l.Details)
	if err != nil {
		return err
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_logs(id, entity_type, entity_id, action, details, created_at) VALUES(?,?,?,?,?,?)`,
		l.ID, l.EntityType, l.EntityID, l.Action, string(details), l.CreatedAt.UTC().Format(tsLayout),
	)
	return err
}

func (r *auditLogsRepo) ListByEntity(ctx context.Context, entityID string) ([]models.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_type, entity_id, action, details, created_at
		   FROM audit_logs WHERE entity_id = ? ORDER BY created_at, rowid`,
		entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var (
			l         models.AuditLog
			details   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&l.ID, &l.EntityType, &l.EntityID, &l.Action, &details, &createdAt); err != nil {
			return nil, err
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &l.Details); err != nil {
				return nil, err
			}
		}
		l.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		out = append(out, l)
	}
	return out, rows.Err()
}
