package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cruiselens/payments-backend/internal/api/handlers"
	"github.com/cruiselens/payments-backend/internal/auth"
	"github.com/cruiselens/payments-backend/internal/config"
	"github.com/cruiselens/payments-backend/internal/payu"
	"github.com/cruiselens/payments-backend/internal/repository/sqlite"
	"github.com/cruiselens/payments-backend/internal/services"
	"github.com/cruiselens/payments-backend/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = payu.Credentials{Key: "testkey", Salt: "testsalt"}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		PayU:            config.PayU{Key: creds.Key, Salt: creds.Salt, BaseURL: "https://test.payu.in/_payment"},
		FrontendURL:     "https://front.example",
		CallbackBaseURL: "https://api.example",
		AllowedOrigins:  []string{"https://front.example"},
		CoursePrices:    map[string]string{"course1": "50000.00"},
		DefaultAmount:   "499.00",
		StoreTimeout:    time.Second,
		NodeID:          3,
	}

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repos := sqlite.NewRepositories(db)
	pool := worker.NewPool(1, 16)
	t.Cleanup(pool.Stop)

	ids, err := services.NewTxnIDGenerator(cfg.NodeID)
	require.NoError(t, err)
	audit := services.NewAuditor(repos.AuditLogs, pool, time.Second)
	tm := auth.NewTokenManager("secret", "payments-backend", time.Hour)
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	apps := services.NewApplicationService(repos.Applications, repos.AuditLogs, cfg.StoreTimeout)

	h := NewRouter(RouterDeps{
		Cfg: cfg,
		Payments: &handlers.PaymentsHandler{
			Initiation:     services.NewInitiationService(repos.Applications, payu.NewSigner(creds), ids, audit, cfg),
			Reconciliation: services.NewReconciliationService(repos.Applications, payu.NewVerifier(creds), audit, cfg.StoreTimeout),
			Applications:   apps,
			FrontendURL:    cfg.FrontendURL,
		},
		Admin: &handlers.AdminHandler{
			Admin:        services.NewAdminService(tm, "ops@x.com", hash),
			Applications: apps,
		},
		Tokens: tm,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func initiate(t *testing.T, srv *httptest.Server) services.PayUParams {
	t.Helper()
	body := `{"personalInfo":{"fullName":"Jane Doe","email":"jane@x.com","phone":"9999999999","city":"Pune","dob":"2000-01-01"},"course":"course1"}`
	resp, err := http.Post(srv.URL+"/api/payu-initiate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res services.InitiateResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "https://test.payu.in/_payment", res.PayUURL)
	return res.PayUParams
}

func callbackForm(t *testing.T, p services.PayUParams, status string) url.Values {
	t.Helper()
	fields := map[string]string{
		"key": p.Key, "txnid": p.TxnID, "status": status, "amount": p.Amount,
		"productinfo": p.ProductInfo, "firstname": p.FirstName, "email": p.Email,
		"mihpayid": "403993715521",
	}
	h, err := payu.NewVerifier(creds).CallbackHash(payu.ParamsFromCallback(fields))
	require.NoError(t, err)
	fields["hash"] = h

	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	return form
}

func TestPaymentFlow(t *testing.T) {
	srv := newServer(t)
	p := initiate(t, srv)
	assert.Equal(t, "50000.00", p.Amount)
	assert.Equal(t, "https://api.example/api/payu-callback", p.SURL)

	resp, err := noRedirect().PostForm(srv.URL+"/api/payu-callback", callbackForm(t, p, "success"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://front.example/payment-success?txnid="+p.TxnID, resp.Header.Get("Location"))

	resp, err = http.Get(srv.URL + "/api/payment-details?txnid=" + p.TxnID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var app map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&app))
	assert.Equal(t, "success", app["status"])
	assert.Equal(t, "50000.00", app["amount"])
	assert.Equal(t, "403993715521", app["gatewayTransactionReference"])
}

func TestCallbackWithoutKeyRedirects(t *testing.T) {
	srv := newServer(t)
	p := initiate(t, srv)

	form := callbackForm(t, p, "success")
	form.Del("key")
	form.Del("mihpayid")
	resp, err := noRedirect().PostForm(srv.URL+"/api/payu-callback", form)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://front.example/payment-success?txnid="+p.TxnID, resp.Header.Get("Location"))
}

func TestFailureCallbackAsJSON(t *testing.T) {
	srv := newServer(t)
	p := initiate(t, srv)

	form := callbackForm(t, p, "failure")
	body := map[string]string{}
	for k := range form {
		body[k] = form.Get(k)
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := noRedirect().Post(srv.URL+"/api/payu-callback", "application/json", strings.NewReader(string(raw)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://front.example/payment-failure?txnid="+p.TxnID, resp.Header.Get("Location"))
}

func TestCallbackRejections(t *testing.T) {
	srv := newServer(t)
	p := initiate(t, srv)

	forged := callbackForm(t, p, "failure")
	forged.Set("status", "success")
	noTxn := callbackForm(t, p, "success")
	noTxn.Del("txnid")
	cheap := callbackForm(t, services.PayUParams{
		Key: p.Key, TxnID: p.TxnID, Amount: "1.00", ProductInfo: p.ProductInfo, FirstName: p.FirstName, Email: p.Email,
	}, "success")

	for name, tc := range map[string]struct {
		form url.Values
		code string
	}{
		"forged":          {forged, "invalid_hash"},
		"missing txnid":   {noTxn, "validation_error"},
		"amount mismatch": {cheap, "amount_mismatch"},
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := noRedirect().PostForm(srv.URL+"/api/payu-callback", tc.form)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var apiErr map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
			assert.Equal(t, tc.code, apiErr["code"])
		})
	}

	resp, err := http.Get(srv.URL + "/api/payment-details?txnid=" + p.TxnID)
	require.NoError(t, err)
	defer resp.Body.Close()
	var app map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&app))
	assert.Equal(t, "pending", app["status"])
}

func TestInitiateValidationError(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/api/payu-initiate", "application/json", strings.NewReader(`{"course":"course1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr struct {
		Code    string `json:"code"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "validation_error", apiErr.Code)
	require.NotEmpty(t, apiErr.Details)
	assert.Equal(t, "personalInfo", apiErr.Details[0].Field)

	resp2, err := http.Post(srv.URL+"/api/payu-initiate", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestInitiateWithEmptyAmount(t *testing.T) {
	srv := newServer(t)

	body := `{"personalInfo":{"fullName":"Jane Doe","email":"jane@x.com","phone":"9999999999","city":"Pune","dob":"2000-01-01"},"course":"course1","amount":""}`
	resp, err := http.Post(srv.URL+"/api/payu-initiate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res services.InitiateResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "50000.00", res.PayUParams.Amount)
}

func TestPaymentDetails(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/payment-details")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/payment-details?txnid=TXN42")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var app map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&app))
	assert.Equal(t, "TXN42", app["txnid"])
	assert.Equal(t, "pending", app["status"])
}

func TestAdminEndpoints(t *testing.T) {
	srv := newServer(t)
	initiate(t, srv)

	resp, err := http.Get(srv.URL + "/api/admin/applications")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/admin/login", "application/json", strings.NewReader(`{"email":"ops@x.com","password":"nope"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/admin/login", "application/json", strings.NewReader(`{"email":"ops@x.com","password":"hunter2"}`))
	require.NoError(t, err)
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	resp.Body.Close()
	require.NotEmpty(t, tok.AccessToken)
	assert.Greater(t, tok.ExpiresIn, int64(3000))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/admin/applications?limit=10", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Items []map[string]any `json:"items"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 10, page.Limit)
}

func TestHealthAndCORS(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/payu-initiate", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://front.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://front.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
