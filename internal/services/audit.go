package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/cruiselens/payments-backend/internal/models"
	repo "github.com/cruiselens/payments-backend/internal/repository"
	"github.com/cruiselens/payments-backend/internal/worker"
	"github.com/google/uuid"
)

// Auditor writes audit log entries through the worker pool so a slow audit
// table never holds up a gateway callback. Entries are dropped when the
// queue is full or the pool is stopped. A nil Auditor drops entries.
type Auditor struct {
	logs    repo.AuditLogs
	wp      *worker.Pool
	timeout time.Duration
}

func NewAuditor(logs repo.AuditLogs, wp *worker.Pool, timeout time.Duration) *Auditor {
	return &Auditor{logs: logs, wp: wp, timeout: timeout}
}

func (a *Auditor) Record(txnID, action string, details map[string]any) {
	if a == nil {
		return
	}
	entry := models.AuditLog{
		ID:         uuid.NewString(),
		EntityType: "application",
		EntityID:   txnID,
		Action:     action,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	err := a.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.logs.Create(ctx, entry); err != nil {
			slog.Error("audit log write", "err", err, "txnid", txnID, "action", action)
		}
	})
	if err != nil {
		slog.Warn("audit log dropped", "err", err, "txnid", txnID, "action", action)
	}
}
