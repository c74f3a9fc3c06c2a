package repository

import (
	"context"
	"errors"

	"github.com/cruiselens/payments-backend/internal/models"
)

var ErrNotFound = errors.New("record not found")

// UpsertResult says what an upsert did to the stored row.
type UpsertResult int

const (
	UpsertRefused  UpsertResult = iota // stored record kept, patch not written
	UpsertInserted                     // no row existed, one was created
	UpsertUpdated                      // existing row took the patch
)

func (r UpsertResult) Applied() bool { return r != UpsertRefused }

// Applications is the narrow store surface the payment protocol needs.
// Implementations hold no business rules.
type Applications interface {
	InsertPending(ctx context.Context, app models.Application) (models.Application, error)
	FindByTxnID(ctx context.Context, txnID string) (models.Application, error)

	// UpsertByTxnID applies a callback patch in one atomic statement. It
	// inserts when the txnid is unknown and updates when the stored record
	// is pending or already carries the same status and a matching amount.
	UpsertByTxnID(ctx context.Context, txnID string, patch models.CallbackPatch) (models.Application, UpsertResult, error)

	// EnsurePending returns the record, creating an empty pending
	// placeholder when the txnid is unknown.
	EnsurePending(ctx context.Context, txnID string) (models.Application, error)

	List(ctx context.Context, limit, offset int) ([]models.Application, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
	ListByEntity(ctx context.Context, entityID string) ([]models.AuditLog, error)
}

type Repositories struct {
	Applications Applications
	AuditLogs    AuditLogs
}
