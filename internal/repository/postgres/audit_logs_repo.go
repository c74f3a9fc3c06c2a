package postgres

import (
	"context"
	"encoding/json"

	"github.com/cruiselens/payments-backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	details, err := json.Marshal(l.Details)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs(id, entity_type, entity_id, action, details, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		l.ID, l.EntityType, l.EntityID, l.Action, string(details), l.CreatedAt,
	)
	return err
}

func (r *auditLogsRepo) ListByEntity(ctx context.Context, entityID string) ([]models.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, entity_type, entity_id, action, details, created_at
		   FROM audit_logs
		  WHERE entity_id=$1
		  ORDER BY created_at`,
		entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var (
			l   models.AuditLog
			raw []byte
		)
		if err := rows.Scan(&l.ID, &l.EntityType, &l.EntityID, &l.Action, &raw, &l.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &l.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
