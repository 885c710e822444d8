// Package handler exposes the read-side dashboard API over JSON.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-ingest/internal/domain/common"
	"github.com/FACorreiaa/finance-ingest/internal/domain/transaction"
)

// recentLimit caps the transaction listing; the dashboard paginates
// client-side over at most this many rows.
const recentLimit = 500

// DashboardHandler serves the aggregation and listing endpoints plus
// the user category override.
type DashboardHandler struct {
	store  transaction.Store
	logger *slog.Logger
}

func NewDashboardHandler(store transaction.Store, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, logger: logger}
}

type categoryTotalResponse struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

type trendPointResponse struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

type summaryResponse struct {
	TotalTransactions int64                   `json:"total_transactions"`
	Categories        []categoryTotalResponse `json:"categories"`
	Trend             []trendPointResponse    `json:"trend"`
}

// Summary returns spend-by-category, the daily trend, and the total
// record count in one response.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totals, err := h.store.CategoryTotals(ctx)
	if err != nil {
		h.serverError(w, "failed to load category totals", err)
		return
	}
	trend, err := h.store.DailyTrend(ctx)
	if err != nil {
		h.serverError(w, "failed to load daily trend", err)
		return
	}
	count, err := h.store.Count(ctx)
	if err != nil {
		h.serverError(w, "failed to count transactions", err)
		return
	}

	resp := summaryResponse{
		TotalTransactions: count,
		Categories:        make([]categoryTotalResponse, 0, len(totals)),
		Trend:             make([]trendPointResponse, 0, len(trend)),
	}
	for _, t := range totals {
		resp.Categories = append(resp.Categories, categoryTotalResponse{Category: t.Category, Total: t.Total})
	}
	for _, p := range trend {
		resp.Trend = append(resp.Trend, trendPointResponse{Date: p.Date.Format("2006-01-02"), Total: p.Total})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type transactionResponse struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	Merchant string  `json:"merchant"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Source   string  `json:"source"`
}

// Transactions lists the most recent records with their effective
// category resolved server-side.
func (h *DashboardHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.Recent(r.Context(), recentLimit)
	if err != nil {
		h.serverError(w, "failed to list transactions", err)
		return
	}

	resp := make([]transactionResponse, 0, len(records))
	for i := range records {
		rec := &records[i]
		resp = append(resp, transactionResponse{
			ID:       rec.ID.String(),
			Date:     rec.Date.Format("2006-01-02"),
			Merchant: rec.Merchant,
			Category: rec.EffectiveCategory(),
			Amount:   rec.Amount,
			Currency: rec.Currency,
			Source:   rec.Source,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type setCategoryRequest struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

// SetCategory records a user override for one transaction. The override
// always wins over rule and model labels and is never overwritten by
// later cycles.
func (h *DashboardHandler) SetCategory(w http.ResponseWriter, r *http.Request) {
	var req setCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.clientError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" || req.Category == "" {
		h.clientError(w, http.StatusBadRequest, "id and category are required")
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.clientError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := h.store.SetUserCategory(r.Context(), id, req.Category); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.clientError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.serverError(w, "failed to set user category", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *DashboardHandler) clientError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *DashboardHandler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": message})
}
