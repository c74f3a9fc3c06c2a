package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cruiselens/payments-backend/internal/config"
	"github.com/cruiselens/payments-backend/internal/logger"
	"github.com/cruiselens/payments-backend/internal/metrics"
	"github.com/cruiselens/payments-backend/internal/models"
	"github.com/cruiselens/payments-backend/internal/payu"
	repo "github.com/cruiselens/payments-backend/internal/repository"
	"github.com/cruiselens/payments-backend/internal/validate"
	"github.com/shopspring/decimal"
)

const (
	CallbackPath    = "/api/payu-callback"
	serviceProvider = "payu_paisa"
)

type PersonalInfo struct {
	FullName         string   `json:"fullName"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	City             string   `json:"city"`
	DOB              string   `json:"dob"`
	HeardFrom        string   `json:"heardFrom,omitempty"`
	PreferredContact []string `json:"preferredContact,omitempty"`
}

// Amount takes the client amount as a JSON number or string. Null and
// blank strings mean no amount was supplied.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("amount must be a number or a string")
	}
	*a = Amount(n)
	return nil
}

type InitiateRequest struct {
	PersonalInfo *PersonalInfo   `json:"personalInfo"`
	Course       string          `json:"course"`
	Amount       Amount          `json:"amount,omitempty"`
	CourseData   json.RawMessage `json:"courseData,omitempty"`
	PaymentMode  string          `json:"paymentMode,omitempty"`
}

// PayUParams is the form the client posts to the gateway.
type PayUParams struct {
	Key             string `json:"key"`
	TxnID           string `json:"txnid"`
	Amount          string `json:"amount"`
	FirstName       string `json:"firstname"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ProductInfo     string `json:"productinfo"`
	SURL            string `json:"surl"`
	FURL            string `json:"furl"`
	ServiceProvider string `json:"service_provider"`
	UDF1            string `json:"udf1"`
	UDF2            string `json:"udf2"`
	UDF3            string `json:"udf3"`
	UDF4            string `json:"udf4"`
	UDF5            string `json:"udf5"`
	Hash            string `json:"hash"`
}

type InitiateResult struct {
	PayUParams PayUParams `json:"payuParams"`
	PayUURL    string     `json:"payuUrl"`
}

// TxnIDGenerator hands out transaction ids that never repeat for the
// lifetime of the system.
type TxnIDGenerator interface {
	NewTxnID() string
}

type snowflakeTxnIDs struct{ node *snowflake.Node }

// NewTxnIDGenerator returns "TXN" + snowflake ids (millisecond time, node
// id and a per-millisecond sequence). Every instance needs its own node id.
func NewTxnIDGenerator(nodeID int64) (TxnIDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &snowflakeTxnIDs{node: node}, nil
}

func (g *snowflakeTxnIDs) NewTxnID() string { return "TXN" + g.node.Generate().String() }

type InitiationService struct {
	apps    repo.Applications
	signer  *payu.Signer
	ids     TxnIDGenerator
	audit   *Auditor
	timeout time.Duration

	gatewayURL    string
	callbackURL   string
	prices        map[string]string
	defaultAmount string
}

func NewInitiationService(apps repo.Applications, signer *payu.Signer, ids TxnIDGenerator, audit *Auditor, cfg config.Config) *InitiationService {
	def, err := payu.FormatAmount(cfg.DefaultAmount)
	if err != nil {
		def = "499.00"
	}
	return &InitiationService{
		apps:          apps,
		signer:        signer,
		ids:           ids,
		audit:         audit,
		timeout:       cfg.StoreTimeout,
		gatewayURL:    cfg.PayU.BaseURL,
		callbackURL:   cfg.CallbackBaseURL + CallbackPath,
		prices:        cfg.CoursePrices,
		defaultAmount: def,
	}
}

// Initiate records a pending application and returns the signed gateway
// form. Nothing is returned unless the pending record is durable.
func (s *InitiationService) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	if errs := validateInitiate(req); len(errs) > 0 {
		metrics.InitiationsTotal.WithLabelValues("invalid").Inc()
		return InitiateResult{}, fmt.Errorf("%w: %w", ErrValidation, errs)
	}
	pi := req.PersonalInfo
	course := strings.TrimSpace(req.Course)
	wireAmount, storedAmount := s.resolveAmount(course, string(req.Amount))
	txnID := s.ids.NewTxnID()

	app := models.Application{
		TxnID:            txnID,
		Status:           models.StatusPending,
		Amount:           storedAmount,
		FullName:         strings.TrimSpace(pi.FullName),
		Email:            strings.TrimSpace(pi.Email),
		Phone:            strings.TrimSpace(pi.Phone),
		City:             strings.TrimSpace(pi.City),
		DOB:              strings.TrimSpace(pi.DOB),
		HeardFrom:        pi.HeardFrom,
		PreferredContact: pi.PreferredContact,
		Course:           course,
		CourseData:       req.CourseData,
		PaymentMode:      req.PaymentMode,
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.apps.InsertPending(sctx, app); err != nil {
		metrics.InitiationsTotal.WithLabelValues("store_error").Inc()
		return InitiateResult{}, storeErr("insert pending application", err)
	}

	params := PayUParams{
		Key:             s.signer.Key(),
		TxnID:           txnID,
		Amount:          wireAmount,
		FirstName:       app.FullName,
		Email:           app.Email,
		Phone:           app.Phone,
		ProductInfo:     course,
		SURL:            s.callbackURL,
		FURL:            s.callbackURL,
		ServiceProvider: serviceProvider,
	}
	params.Hash = s.signer.Sign(payu.Params{
		Key:         params.Key,
		TxnID:       params.TxnID,
		Amount:      params.Amount,
		ProductInfo: params.ProductInfo,
		FirstName:   params.FirstName,
		Email:       params.Email,
		UDF:         [10]string{params.UDF1, params.UDF2, params.UDF3, params.UDF4, params.UDF5},
	})

	s.audit.Record(txnID, models.AuditInitiated, map[string]any{"amount": storedAmount, "course": course})
	metrics.InitiationsTotal.WithLabelValues("ok").Inc()
	logger.FromContext(ctx).Info("payment initiated", "txnid", txnID, "course", course, "amount", storedAmount)

	return InitiateResult{PayUParams: params, PayUURL: s.gatewayURL}, nil
}

// resolveAmount returns the amount as sent to the gateway and as stored.
// A caller supplied amount goes to the gateway exactly as written.
func (s *InitiationService) resolveAmount(course, supplied string) (wire, stored string) {
	if supplied != "" {
		d, err := decimal.NewFromString(supplied)
		if err == nil {
			return supplied, d.StringFixed(2)
		}
	}
	if p, ok := s.prices[course]; ok {
		return p, p
	}
	return s.defaultAmount, s.defaultAmount
}

func validateInitiate(req InitiateRequest) validate.Errs {
	var errs validate.Errs
	if req.PersonalInfo == nil {
		errs.Add(&validate.ErrField{Field: "personalInfo", Msg: "required"})
	} else {
		pi := req.PersonalInfo
		errs.Add(
			validate.Required("personalInfo.fullName", pi.FullName),
			validate.MaxLen("personalInfo.fullName", pi.FullName, 60),
			validate.NoPipe("personalInfo.fullName", pi.FullName),
			validate.Required("personalInfo.email", pi.Email),
			validate.Email("personalInfo.email", pi.Email),
			validate.Required("personalInfo.phone", pi.Phone),
		)
	}
	errs.Add(
		validate.Required("course", req.Course),
		validate.MaxLen("course", req.Course, 100),
		validate.NoPipe("course", req.Course),
		validate.PositiveAmount("amount", string(req.Amount)),
	)
	return errs
}
