package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/intake"
	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/store"
	"github.com/ardjee/forms/internal/tariff"
)

const defaultLookbackHours = 24

type handler struct {
	svc     ContractService
	pinger  Pinger
	metrics MetricsSource
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type quoteResponse struct {
	MonthlyPrice *float64 `json:"monthly_price"`
	Display      string   `json:"display"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid submission", Fields: verr.Fields})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "contract not found")
	default:
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			zap.L().Warn("api: health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	var c model.Contract
	if !decode(w, r, &c) {
		return
	}
	created, err := h.svc.Submit(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	var c model.Contract
	if !decode(w, r, &c) {
		return
	}
	amount, ok := h.svc.Quote(c)
	resp := quoteResponse{Display: tariff.FormatMonthly(amount, ok)}
	if ok {
		resp.MonthlyPrice = &amount
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ContractFilter{
		Status: model.Status(q.Get("status")),
		Type:   model.ContractType(q.Get("type")),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	contracts, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) changeFrequency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Frequency model.Frequency `json:"frequency"`
	}
	if !decode(w, r, &req) {
		return
	}
	change, err := h.svc.ChangeFrequency(r.Context(), chi.URLParam(r, "id"), req.Frequency)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (h *handler) setMonitoring(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Monitoring *bool `json:"monitoring"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Monitoring == nil {
		writeError(w, http.StatusBadRequest, "monitoring is required")
		return
	}
	change, err := h.svc.SetMonitoring(r.Context(), chi.URLParam(r, "id"), *req.Monitoring)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (h *handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.Status `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) metricsSnapshot(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r.URL.Query().Get("hours"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hours")
		return
	}
	if hours == 0 {
		hours = defaultLookbackHours
	}
	snap, err := h.metrics.Collect(r.Context(), hours)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
