package postgres

import (
	repo "github.com/cruiselens/payments-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Applications: &applicationsRepo{pool},
		AuditLogs:    &auditLogsRepo{pool},
	}
}
