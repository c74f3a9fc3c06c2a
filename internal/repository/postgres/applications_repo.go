package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cruiselens/payments-backend/internal/models"
	repo "github.com/cruiselens/payments-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type applicationsRepo struct{ pool *pgxpool.Pool }

func NewApplications(pool *pgxpool.Pool) repo.Applications {
	return &applicationsRepo{pool: pool}
}

const appColumns = `txnid, status, amount, full_name, email, phone, city, dob, heard_from,
	preferred_contact, course, course_data, payment_mode,
	gateway_reference, raw_callback, error_message, created_at, updated_at`

func (r *applicationsRepo) InsertPending(ctx context.Context, a models.Application) (models.Application, error) {
	contact, err := json.Marshal(nonNil(a.PreferredContact))
	if err != nil {
		return models.Application{}, err
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO applications (
  txnid, status, amount, full_name, email, phone, city, dob, heard_from,
  preferred_contact, course, course_data, payment_mode
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING `+appColumns,
		a.TxnID, models.StatusPending, a.Amount, a.FullName, a.Email, a.Phone, a.City, a.DOB, a.HeardFrom,
		string(contact), a.Course, jsonOrNull(a.CourseData), a.PaymentMode,
	)
	return scanApplication(row)
}

func (r *applicationsRepo) FindByTxnID(ctx context.Context, txnID string) (models.Application, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appColumns+` FROM applications WHERE txnid=$1`, txnID)
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Application{}, repo.ErrNotFound
	}
	return app, err
}

// Blank identity fields are filled from the callback so a placeholder
// row ends up with something readable; non-blank ones never change.
const upsertSQL = `
INSERT INTO applications (
  txnid, status, amount, full_name, email, phone, course,
  gateway_reference, raw_callback, error_message
) VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,NULLIF($10,''))
ON CONFLICT (txnid) DO UPDATE SET
  status            = excluded.status,
  amount            = CASE WHEN applications.amount = '' THEN excluded.amount ELSE applications.amount END,
  full_name         = CASE WHEN applications.full_name = '' THEN excluded.full_name ELSE applications.full_name END,
  email             = CASE WHEN applications.email = '' THEN excluded.email ELSE applications.email END,
  phone             = CASE WHEN applications.phone = '' THEN excluded.phone ELSE applications.phone END,
  course            = CASE WHEN applications.course = '' THEN excluded.course ELSE applications.course END,
  gateway_reference = excluded.gateway_reference,
  raw_callback      = excluded.raw_callback,
  error_message     = excluded.error_message,
  updated_at        = now()
WHERE (applications.status = 'pending' OR applications.status = excluded.status)
  AND (applications.amount = '' OR applications.amount = excluded.amount)
RETURNING ` + appColumns + `, (xmax = 0) AS inserted`

func (r *applicationsRepo) UpsertByTxnID(ctx context.Context, txnID string, p models.CallbackPatch) (models.Application, repo.UpsertResult, error) {
	row := r.pool.QueryRow(ctx, upsertSQL,
		txnID, p.Status, p.Amount, p.FullName, p.Email, p.Phone, p.Course,
		p.GatewayReference, jsonOrNull(p.RawCallback), p.ErrorMessage,
	)
	var inserted bool
	app, err := scanApplication(row, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Application{}, repo.UpsertRefused, nil
	}
	if err != nil {
		return models.Application{}, repo.UpsertRefused, err
	}
	if inserted {
		return app, repo.UpsertInserted, nil
	}
	return app, repo.UpsertUpdated, nil
}

func (r *applicationsRepo) EnsurePending(ctx context.Context, txnID string) (models.Application, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO applications (txnid, status, amount) VALUES ($1, 'pending', '')
		 ON CONFLICT (txnid) DO NOTHING`,
		txnID,
	)
	if err != nil {
		return models.Application{}, err
	}
	return r.FindByTxnID(ctx, txnID)
}

func (r *applicationsRepo) List(ctx context.Context, limit, offset int) ([]models.Application, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+appColumns+` FROM applications ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// scanApplication reads appColumns, then any extra returned columns into extra.
func scanApplication(row pgx.Row, extra ...any) (models.Application, error) {
	var (
		a          models.Application
		contact    []byte
		courseData []byte
		raw        []byte
	)
	dest := []any{
		&a.TxnID, &a.Status, &a.Amount, &a.FullName, &a.Email, &a.Phone, &a.City, &a.DOB, &a.HeardFrom,
		&contact, &a.Course, &courseData, &a.PaymentMode,
		&a.GatewayReference, &raw, &a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		return models.Application{}, err
	}
	if len(courseData) > 0 {
		a.CourseData = courseData
	}
	if len(raw) > 0 {
		a.RawCallback = raw
	}
	if len(contact) > 0 {
		if err := json.Unmarshal(contact, &a.PreferredContact); err != nil {
			return models.Application{}, fmt.Errorf("decode preferred_contact: %w", err)
		}
	}
	return a, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// jsonOrNull hands pgx raw JSON text, or nil for SQL NULL.
func jsonOrNull(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
