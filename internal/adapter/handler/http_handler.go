package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rl1809/zoo-retail/internal/core/domain"
	"github.com/rl1809/zoo-retail/internal/core/service"
	"github.com/rl1809/zoo-retail/internal/metrics"
	"github.com/rl1809/zoo-retail/internal/port"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

type HTTPHandler struct {
	carts    *service.CartService
	catalog  *service.CatalogService
	checkout *service.CheckoutService
	identity port.IdentityProvider

	metrics  *metrics.ServerMetrics
	gatherer prometheus.Gatherer
	timeout  time.Duration
}

type HTTPOption func(*HTTPHandler)

// WithHTTPMetrics records per-route metrics and serves the gatherer at /metrics.
func WithHTTPMetrics(m *metrics.ServerMetrics, gatherer prometheus.Gatherer) HTTPOption {
	return func(h *HTTPHandler) {
		h.metrics = m
		h.gatherer = gatherer
	}
}

func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPHandler) { h.timeout = d }
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Success       bool                  `json:"success"`
	Message       string                `json:"message"`
	TransactionID string                `json:"transaction_id,omitempty"`
	FailedLines   []service.LineFailure `json:"failed_lines,omitempty"`
	Retryable     *bool                 `json:"retryable,omitempty"`
}

type AddItemRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type AdjustItemRequest struct {
	Delta int `json:"delta"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type RestockResponse struct {
	Success    bool   `json:"success"`
	ItemID     string `json:"item_id"`
	StockCount int    `json:"stock_count"`
}

type CheckoutResponse struct {
	Success      bool                  `json:"success"`
	Message      string                `json:"message"`
	Confirmation *service.Confirmation `json:"confirmation"`
}

type TransactionResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	Lines       []domain.SaleLine   `json:"lines"`
}

func NewHTTPHandler(carts *service.CartService, catalog *service.CatalogService, checkout *service.CheckoutService, identity port.IdentityProvider, opts ...HTTPOption) *HTTPHandler {
	h := &HTTPHandler{
		carts:    carts,
		catalog:  catalog,
		checkout: checkout,
		identity: identity,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/health", h.HealthCheck)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(h.gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authMiddleware)
		if h.timeout > 0 {
			r.Use(middleware.Timeout(h.timeout))
		}

		r.Get("/outlets", h.ListOutlets)
		r.Get("/items/low-stock", h.LowStock)
		r.Post("/items/{itemID}/restock", h.Restock)

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", h.OpenCart)
			r.Get("/{cartID}", h.GetCart)
			r.Delete("/{cartID}", h.AbandonCart)
			r.Post("/{cartID}/items", h.AddItem)
			r.Patch("/{cartID}/items/{itemID}", h.AdjustItem)
			r.Delete("/{cartID}/items/{itemID}", h.RemoveItem)
			r.Post("/{cartID}/checkout", h.Checkout)
		})

		r.Get("/transactions/{transactionID}", h.GetTransaction)
	})

	return r
}

func (h *HTTPHandler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.Observe(route, status, time.Since(start))
	})
}

func (h *HTTPHandler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who, err := h.identity.Identify(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, MessageResponse{Success: false, Message: "unauthenticated"})
			return
		}
		ctx := context.WithValue(r.Context(), ctxIdentity, who)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) domain.Identity {
	who, _ := ctx.Value(ctxIdentity).(domain.Identity)
	return who
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListOutlets(w http.ResponseWriter, r *http.Request) {
	outlets, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outlets)
}

func (h *HTTPHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.LowStock(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if !decode(w, r, &req) {
		return
	}
	itemID := chi.URLParam(r, "itemID")
	count, err := h.catalog.Restock(r.Context(), identityFrom(r.Context()), itemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RestockResponse{Success: true, ItemID: itemID, StockCount: count})
}

func (h *HTTPHandler) OpenCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.carts.Open(identityFrom(r.Context())))
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Get(identityFrom(r.Context()), chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) AbandonCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Abandon(identityFrom(r.Context()), chi.URLParam(r, "cartID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "cart abandoned"})
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Success: false, Message: "missing required fields"})
		return
	}

	cart, err := h.carts.AddItem(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "cartID"), req.ItemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) AdjustItem(w http.ResponseWriter, r *http.Request) {
	var req AdjustItemRequest
	if !decode(w, r, &req) {
		return
	}
	cart, err := h.carts.AdjustQuantity(identityFrom(r.Context()), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"), req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(identityFrom(r.Context()), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	conf, err := h.carts.Checkout(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckoutResponse{
		Success:      true,
		Message:      "checkout complete",
		Confirmation: conf,
	})
}

func (h *HTTPHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, lines, err := h.checkout.Transaction(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "transactionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tx == nil {
		writeJSON(w, http.StatusNotFound, MessageResponse{Success: false, Message: "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, TransactionResponse{Transaction: tx, Lines: lines})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Success: false, Message: "invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	f := classify(err)
	if f.Status == http.StatusInternalServerError && errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, MessageResponse{Success: false, Message: "request timed out"})
		return
	}
	writeJSON(w, f.Status, ErrorResponse{
		Success:       false,
		Message:       f.Message,
		TransactionID: f.TransactionID,
		FailedLines:   f.FailedLines,
		Retryable:     f.Retryable,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
