package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cruiselens/payments-backend/internal/models"
	repo "github.com/cruiselens/payments-backend/internal/repository"
)

type applicationsRepo struct{ db *sql.DB }

func NewApplications(db *sql.DB) repo.Applications {
	return &applicationsRepo{db: db}
}

const appColumns = `txnid, status, amount, full_name, email, phone, city, dob, heard_from,
	preferred_contact, course, course_data, payment_mode,
	gateway_reference, raw_callback, error_message, created_at, updated_at`

func (r *applicationsRepo) InsertPending(ctx context.Context, a models.Application) (models.Application, error) {
	contact, err := json.Marshal(nonNil(a.PreferredContact))
	if err != nil {
		return models.Application{}, err
	}
	now := timestamp()
	row := r.db.QueryRowContext(ctx, `
INSERT INTO applications (
  txnid, status, amount, full_name, email, phone, city, dob, heard_from,
  preferred_contact, course, course_data, payment_mode, created_at, updated_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
RETURNING `+appColumns,
		a.TxnID, models.StatusPending, a.Amount, a.FullName, a.Email, a.Phone, a.City, a.DOB, a.HeardFrom,
		string(contact), a.Course, textOrNull(a.CourseData), a.PaymentMode, now, now,
	)
	return scanApplication(row)
}

func (r *applicationsRepo) FindByTxnID(ctx context.Context, txnID string) (models.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+appColumns+` FROM applications WHERE txnid = ?`, txnID)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Application{}, repo.ErrNotFound
	}
	return app, err
}

const insertCallbackSQL = `
INSERT INTO applications (
  txnid, status, amount, full_name, email, phone, course,
  gateway_reference, raw_callback, error_message, created_at, updated_at
) VALUES (?,?,?,?,?,?,?,NULLIF(?,''),?,NULLIF(?,''),?,?)
ON CONFLICT (txnid) DO NOTHING
RETURNING ` + appColumns

// Blank identity fields are filled from the callback; SET and WHERE see the
// row as it was before the update.
const updateCallbackSQL = `
UPDATE applications SET
  status            = ?,
  amount            = CASE WHEN amount = '' THEN ? ELSE amount END,
  full_name         = CASE WHEN full_name = '' THEN ? ELSE full_name END,
  email             = CASE WHEN email = '' THEN ? ELSE email END,
  phone             = CASE WHEN phone = '' THEN ? ELSE phone END,
  course            = CASE WHEN course = '' THEN ? ELSE course END,
  gateway_reference = NULLIF(?,''),
  raw_callback      = ?,
  error_message     = NULLIF(?,''),
  updated_at        = ?
WHERE txnid = ?
  AND (status = 'pending' OR status = ?)
  AND (amount = '' OR amount = ?)
RETURNING ` + appColumns

// UpsertByTxnID tries the insert first and falls back to the guarded
// update. Rows are never deleted, so a conflicting insert means the update
// sees the row.
func (r *applicationsRepo) UpsertByTxnID(ctx context.Context, txnID string, p models.CallbackPatch) (models.Application, repo.UpsertResult, error) {
	now := timestamp()
	raw := textOrNull(p.RawCallback)

	row := r.db.QueryRowContext(ctx, insertCallbackSQL,
		txnID, p.Status, p.Amount, p.FullName, p.Email, p.Phone, p.Course,
		p.GatewayReference, raw, p.ErrorMessage, now, now,
	)
	app, err := scanApplication(row)
	if err == nil {
		return app, repo.UpsertInserted, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Application{}, repo.UpsertRefused, err
	}

	row = r.db.QueryRowContext(ctx, updateCallbackSQL,
		p.Status, p.Amount, p.FullName, p.Email, p.Phone, p.Course,
		p.GatewayReference, raw, p.ErrorMessage, now,
		txnID, p.Status, p.Amount,
	)
	app, err = scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Application{}, repo.UpsertRefused, nil
	}
	if err != nil {
		return models.Application{}, repo.UpsertRefused, err
	}
	return app, repo.UpsertUpdated, nil
}

func (r *applicationsRepo) EnsurePending(ctx context.Context, txnID string) (models.Application, error) {
	now := timestamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO applications (txnid, status, amount, created_at, updated_at)
		 VALUES (?, 'pending', '', ?, ?)`,
		txnID, now, now,
	)
	if err != nil {
		return models.Application{}, fmt.Errorf("insert placeholder: %w", err)
	}
	return r.FindByTxnID(ctx, txnID)
}

func (r *applicationsRepo) List(ctx context.Context, limit, offset int) ([]models.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+appColumns+` FROM applications ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(s scanner) (models.Application, error) {
	var (
		a                    models.Application
		contact              string
		courseData, raw      sql.NullString
		gatewayRef, errorMsg sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(
		&a.TxnID, &a.Status, &a.Amount, &a.FullName, &a.Email, &a.Phone, &a.City, &a.DOB, &a.HeardFrom,
		&contact, &a.Course, &courseData, &a.PaymentMode,
		&gatewayRef, &raw, &errorMsg, &createdAt, &updatedAt,
	)
	if err != nil {
		return models.Application{}, err
	}

	if contact != "" {
		if err := json.Unmarshal([]byte(contact), &a.PreferredContact); err != nil {
			return models.Application{}, fmt.Errorf("decode preferred_contact: %w", err)
		}
	}
	if courseData.Valid {
		a.CourseData = json.RawMessage(courseData.String)
	}
	if raw.Valid {
		a.RawCallback = json.RawMessage(raw.String)
	}
	if gatewayRef.Valid {
		a.GatewayReference = &gatewayRef.String
	}
	if errorMsg.Valid {
		a.ErrorMessage = &errorMsg.String
	}
	a.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	a.UpdatedAt, _ = time.Parse(tsLayout, updatedAt)
	return a, nil
}

// fixed width so created_at sorts as text
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func timestamp() string {
	return time.Now().UTC().Format(tsLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func textOrNull(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
