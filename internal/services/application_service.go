package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cruiselens/payments-backend/internal/models"
	repo "github.com/cruiselens/payments-backend/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type ApplicationService struct {
	apps    repo.Applications
	logs    repo.AuditLogs
	timeout time.Duration
}

func NewApplicationService(apps repo.Applications, logs repo.AuditLogs, timeout time.Duration) *ApplicationService {
	return &ApplicationService{apps: apps, logs: logs, timeout: timeout}
}

// Details returns the stored record. An unknown txnid gets an empty pending
// placeholder so the frontend can poll before the callback lands.
func (s *ApplicationService) Details(ctx context.Context, txnID string) (models.Application, error) {
	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		return models.Application{}, fmt.Errorf("%w: txnid required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	app, err := s.apps.EnsurePending(ctx, txnID)
	if err != nil {
		return models.Application{}, storeErr("ensure application", err)
	}
	return app, nil
}

func (s *ApplicationService) List(ctx context.Context, limit, offset int) ([]models.Application, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	apps, err := s.apps.List(ctx, limit, offset)
	if err != nil {
		return nil, storeErr("list applications", err)
	}
	return apps, nil
}

// History lists the audit trail of one transaction, oldest first.
func (s *ApplicationService) History(ctx context.Context, txnID string) ([]models.AuditLog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	logs, err := s.logs.ListByEntity(ctx, txnID)
	if err != nil {
		return nil, storeErr("list audit logs", err)
	}
	return logs, nil
}
