package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/cruiselens/payments-backend/internal/api/httpx"
	"github.com/cruiselens/payments-backend/internal/models"
	"github.com/cruiselens/payments-backend/internal/services"
)

const maxBodyBytes = 1 << 20

type PaymentsHandler struct {
	Initiation     *services.InitiationService
	Reconciliation *services.ReconciliationService
	Applications   *services.ApplicationService
	FrontendURL    string
}

// Initiate handles POST /api/payu-initiate.
func (h *PaymentsHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req services.InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}
	res, err := h.Initiation.Initiate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// Callback handles the gateway's POST /api/payu-callback and sends the
// browser on to the matching frontend page.
func (h *PaymentsHandler) Callback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	fields, err := callbackFields(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "unreadable callback body", nil)
		return
	}
	out, err := h.Reconciliation.HandleCallback(r.Context(), fields)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.SeeOther(w, r, h.resultURL(out.Application))
}

// Details handles GET /api/payment-details?txnid=...
func (h *PaymentsHandler) Details(w http.ResponseWriter, r *http.Request) {
	txnID := r.URL.Query().Get("txnid")
	if txnID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "txnid required", nil)
		return
	}
	app, err := h.Applications.Details(r.Context(), txnID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, app)
}

func (h *PaymentsHandler) resultURL(app models.Application) string {
	page := "/payment-failure"
	if app.Status == models.StatusSuccess {
		page = "/payment-success"
	}
	return h.FrontendURL + page + "?txnid=" + url.QueryEscape(app.TxnID)
}

// callbackFields reads a form encoded or JSON callback into flat string
// fields. Only the first value of a repeated form key counts.
func callbackFields(r *http.Request) (map[string]string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			fields[k] = jsonScalar(v)
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields, nil
}

func jsonScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool, float64:
		return fmt.Sprint(t)
	default:
		var b bytes.Buffer
		_ = json.NewEncoder(&b).Encode(t)
		return string(bytes.TrimSpace(b.Bytes()))
	}
}
