package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cruiselens/payments-backend/internal/api/httpx"
	"github.com/cruiselens/payments-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	Admin        *services.AdminService
	Applications *services.ApplicationService
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "email and password required", nil)
		return
	}
	tok, exp, err := h.Admin.Login(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken: tok,
		ExpiresIn:   int64(time.Until(exp).Truncate(time.Second).Seconds()),
	})
}

// ListApplications handles GET /api/admin/applications?limit=&offset=
func (h *AdminHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	apps, err := h.Applications.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": apps, "limit": limit, "offset": offset})
}

func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Applications.History(r.Context(), chi.URLParam(r, "txnid"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, logs)
}
