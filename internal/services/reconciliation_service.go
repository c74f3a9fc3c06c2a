package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cruiselens/payments-backend/internal/logger"
	"github.com/cruiselens/payments-backend/internal/metrics"
	"github.com/cruiselens/payments-backend/internal/models"
	"github.com/cruiselens/payments-backend/internal/payu"
	repo "github.com/cruiselens/payments-backend/internal/repository"
	"github.com/shopspring/decimal"
)

type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "created"  // no record existed, built from the callback
	OutcomeApplied  OutcomeKind = "applied"  // pending moved to a terminal status
	OutcomeReplayed OutcomeKind = "replayed" // same terminal status delivered again
	OutcomeConflict OutcomeKind = "conflict" // a different terminal status was already stored
)

type Outcome struct {
	Kind        OutcomeKind
	Application models.Application
}

// ReconciliationService applies verified gateway callbacks to stored
// applications. The first terminal status wins.
type ReconciliationService struct {
	apps     repo.Applications
	verifier *payu.Verifier
	audit    *Auditor
	timeout  time.Duration
}

func NewReconciliationService(apps repo.Applications, v *payu.Verifier, audit *Auditor, timeout time.Duration) *ReconciliationService {
	return &ReconciliationService{apps: apps, verifier: v, audit: audit, timeout: timeout}
}

func (s *ReconciliationService) HandleCallback(ctx context.Context, fields map[string]string) (Outcome, error) {
	log := logger.FromContext(ctx)

	txnID := strings.TrimSpace(fields["txnid"])
	if txnID == "" {
		metrics.CallbacksTotal.WithLabelValues("invalid").Inc()
		return Outcome{}, fmt.Errorf("%w: txnid required", ErrValidation)
	}
	if !s.verifier.Verify(fields) {
		metrics.CallbacksTotal.WithLabelValues("rejected").Inc()
		log.Warn("payu callback rejected", "security", true, "reason", "hash mismatch",
			"txnid", txnID, "status", fields["status"], "amount", fields["amount"])
		return Outcome{}, ErrAuthentication
	}

	patch, err := patchFromCallback(fields)
	if err != nil {
		return Outcome{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, err := s.apps.FindByTxnID(sctx, txnID)
	found := err == nil
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		metrics.CallbacksTotal.WithLabelValues("store_error").Inc()
		return Outcome{}, storeErr("find application", err)
	}

	if found {
		if err := s.checkAmount(ctx, current, patch); err != nil {
			return Outcome{}, err
		}
		if current.Status.Terminal() && current.Status != patch.Status {
			return s.conflict(ctx, current, patch), nil
		}
	}

	app, res, err := s.apps.UpsertByTxnID(sctx, txnID, patch)
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("store_error").Inc()
		return Outcome{}, storeErr("upsert application", err)
	}
	if !res.Applied() {
		// Another callback got in between the read and the write.
		current, err = s.apps.FindByTxnID(sctx, txnID)
		if err != nil {
			metrics.CallbacksTotal.WithLabelValues("store_error").Inc()
			return Outcome{}, storeErr("reread application", err)
		}
		if err := s.checkAmount(ctx, current, patch); err != nil {
			return Outcome{}, err
		}
		return s.conflict(ctx, current, patch), nil
	}

	kind := OutcomeApplied
	action := models.AuditApplied
	switch {
	case res == repo.UpsertInserted:
		kind, action = OutcomeCreated, models.AuditCreated
		log.Warn("callback for unknown txnid, record created from callback", "txnid", txnID, "status", patch.Status)
	case !found, current.Status == patch.Status:
		// !found: a concurrent callback created the row after our read
		kind, action = OutcomeReplayed, models.AuditReplayed
	}

	s.audit.Record(txnID, action, map[string]any{
		"status":            string(patch.Status),
		"amount":            patch.Amount,
		"gateway_reference": patch.GatewayReference,
	})
	metrics.CallbacksTotal.WithLabelValues(string(kind)).Inc()
	log.Info("payu callback reconciled", "txnid", txnID, "outcome", kind, "status", app.Status)

	return Outcome{Kind: kind, Application: app}, nil
}

// checkAmount treats the stored amount as the truth. A placeholder record
// has no amount yet and accepts whatever the verified callback says.
func (s *ReconciliationService) checkAmount(ctx context.Context, current models.Application, patch models.CallbackPatch) error {
	if current.Amount == "" || amountsEqual(current.Amount, patch.Amount) {
		return nil
	}
	metrics.CallbacksTotal.WithLabelValues("amount_mismatch").Inc()
	logger.FromContext(ctx).Warn("payu callback rejected", "security", true, "reason", "amount mismatch",
		"txnid", current.TxnID, "stored_amount", current.Amount, "callback_amount", patch.Amount)
	return ErrAmountMismatch
}

func (s *ReconciliationService) conflict(ctx context.Context, current models.Application, patch models.CallbackPatch) Outcome {
	logger.FromContext(ctx).Warn("conflicting terminal callback ignored",
		"txnid", current.TxnID, "stored_status", current.Status, "callback_status", patch.Status)
	s.audit.Record(current.TxnID, models.AuditConflict, map[string]any{
		"stored_status":     string(current.Status),
		"callback_status":   string(patch.Status),
		"gateway_reference": patch.GatewayReference,
	})
	metrics.CallbacksTotal.WithLabelValues(string(OutcomeConflict)).Inc()
	return Outcome{Kind: OutcomeConflict, Application: current}
}

// MapGatewayStatus folds the gateway's status vocabulary onto ours. Only an
// explicit "success" counts as paid.
func MapGatewayStatus(s string) models.ApplicationStatus {
	if strings.EqualFold(strings.TrimSpace(s), "success") {
		return models.StatusSuccess
	}
	return models.StatusFailure
}

func patchFromCallback(fields map[string]string) (models.CallbackPatch, error) {
	amount, err := payu.FormatAmount(fields["amount"])
	if err != nil {
		return models.CallbackPatch{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return models.CallbackPatch{}, err
	}
	errMsg := fields["error_Message"]
	if errMsg == "" {
		errMsg = fields["error"]
	}
	return models.CallbackPatch{
		Status:           MapGatewayStatus(fields["status"]),
		Amount:           amount,
		FullName:         strings.TrimSpace(fields["firstname"]),
		Email:            strings.TrimSpace(fields["email"]),
		Phone:            strings.TrimSpace(fields["phone"]),
		Course:           strings.TrimSpace(fields["productinfo"]),
		GatewayReference: fields["mihpayid"],
		RawCallback:      raw,
		ErrorMessage:     errMsg,
	}, nil
}

func amountsEqual(a, b string) bool {
	da, err := decimal.NewFromString(a)
	if err != nil {
		return false
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return false
	}
	return da.Equal(db)
}
