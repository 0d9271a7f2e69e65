package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/engine"
	"github.com/efreitasn/mocktrader/internal/service"
)

// OrderHandler handles HTTP requests for order and portfolio endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
	logger   *slog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, logger: logger}
}

type placeOrderRequest struct {
	Security string `json:"security"`
	Qty      int64  `json:"qty"`
}

type amendOrderRequest struct {
	Qty int64 `json:"qty"`
}

type executeOrderRequest struct {
	ExecutedQty int64 `json:"executed_qty"`
}

type orderResponse struct {
	ID          string `json:"id"`
	Security    string `json:"security"`
	OriginalQty int64  `json:"original_qty"`
	ExecutedQty int64  `json:"executed_qty"`
	PendingQty  int64  `json:"pending_qty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type positionResponse struct {
	Security string `json:"security"`
	Qty      int64  `json:"qty"`
}

// PlaceOrder handles POST /orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req placeOrderRequest
	if err := ParseJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	o, err := h.orderSvc.PlaceOrder(r.Context(), caller, req.Security, req.Qty)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildOrderResponse(o))
}

// ListOrders handles GET /orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	orders, err := h.orderSvc.ListOrders(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, buildOrderResponse(o))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	o, err := h.orderSvc.GetOrder(r.Context(), caller, chi.URLParam(r, "order_id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(o))
}

// AmendOrder handles PUT /orders/{order_id}.
func (h *OrderHandler) AmendOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req amendOrderRequest
	if err := ParseJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	o, err := h.orderSvc.AmendOrder(r.Context(), caller, chi.URLParam(r, "order_id"), req.Qty)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(o))
}

// ExecuteOrder handles POST /orders/{order_id}/execute.
func (h *OrderHandler) ExecuteOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req executeOrderRequest
	if err := ParseJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	o, err := h.orderSvc.ExecuteOrder(r.Context(), caller, chi.URLParam(r, "order_id"), req.ExecutedQty)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(o))
}

// CancelOrder handles DELETE /orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	o, err := h.orderSvc.CancelOrder(r.Context(), caller, chi.URLParam(r, "order_id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(o))
}

// GetPortfolio handles GET /portfolio.
func (h *OrderHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := h.orderSvc.GetPortfolio(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildPortfolioResponse(p))
}

// caller fetches the authenticated caller. Routes are always mounted behind
// the authenticate middleware, so a miss is answered with 401.
func (h *OrderHandler) caller(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	c, ok := callerFrom(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorized", "Not authenticated")
	}
	return c, ok
}

func buildOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:          o.OrderID,
		Security:    o.Security,
		OriginalQty: o.OriginalQty,
		ExecutedQty: o.ExecutedQty,
		PendingQty:  o.PendingQty(),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildPortfolioResponse(p *engine.Portfolio) []positionResponse {
	positions := p.Positions()
	resp := make([]positionResponse, 0, len(positions))
	for _, pos := range positions {
		resp = append(resp, positionResponse{Security: pos.Security, Qty: pos.Quantity})
	}
	return resp
}
