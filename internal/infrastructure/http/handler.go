package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	appStock "github.com/voltshop/stocksync/internal/application/stock"
	domainStock "github.com/voltshop/stocksync/internal/domain/stock"
	"github.com/voltshop/stocksync/internal/infrastructure/id"
	"github.com/voltshop/stocksync/internal/observability"
	"github.com/voltshop/stocksync/internal/observability/logctx"
)

type Handler struct {
	stockService *appStock.Service
	idGenerator  id.Generator
}

func NewHandler(stockSvc *appStock.Service, idGen id.Generator) *Handler {
	return &Handler{
		stockService: stockSvc,
		idGenerator:  idGen,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/stock", h.method(http.MethodGet, h.handleGetStock))
	mux.HandleFunc("/cart/validate", h.method(http.MethodPost, h.handleValidate))
	mux.HandleFunc("/checkout", h.method(http.MethodPost, h.handleCheckout))
	mux.HandleFunc("/admin/stock", h.method(http.MethodPost, h.handleAdminUpdate))
	mux.HandleFunc("/admin/refresh", h.method(http.MethodPost, h.handleAdminRefresh))
	mux.HandleFunc("/admin/cache/clear", h.method(http.MethodPost, h.handleCacheClear))
	mux.HandleFunc("/debug/stock", h.method(http.MethodGet, h.handleDebug))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type stockResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		writeError(w, http.StatusBadRequest, errors.New("product_id is required"))
		return
	}
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	quantity, err := h.stockService.GetStock(r.Context(), productID, forceRefresh)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stockResponse{ProductID: productID, Quantity: quantity})
}

type validateRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.stockService.ValidateQuantity(r.Context(), req.ProductID, req.Quantity); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type checkoutRequest struct {
	CustomerID string             `json:"customer_id"`
	Items      []checkoutLineItem `json:"items"`
}

type checkoutLineItem struct {
	ProductID        string `json:"product_id"`
	Quantity         int    `json:"quantity"`
	FallbackQuantity int    `json:"fallback_quantity"`
}

type checkoutResponse struct {
	OrderID     string                   `json:"order_id"`
	Adjustments []domainStock.Adjustment `json:"adjustments"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("items are required"))
		return
	}

	items := make([]domainStock.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, domainStock.ErrInvalidQuantity)
			return
		}
		items = append(items, domainStock.LineItem{
			ProductID:        it.ProductID,
			Quantity:         it.Quantity,
			FallbackQuantity: it.FallbackQuantity,
		})
	}

	orderID := h.idGenerator.NewID()
	adjustments := h.stockService.DecrementStockAfterOrder(r.Context(), items)

	logctx.FromOr(r.Context(), observability.NopLogger()).Info("order_checkout",
		observability.F("order_id", orderID),
		observability.F("customer_id", req.CustomerID),
		observability.F("line_items", len(items)),
	)

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:     orderID,
		Adjustments: adjustments,
	})
}

type adminUpdateRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, errors.New("product_id is required"))
		return
	}

	h.stockService.UpdateStockAndNotify(req.ProductID, req.Quantity)
	writeJSON(w, http.StatusOK, stockResponse{ProductID: req.ProductID, Quantity: max(req.Quantity, 0)})
}

func (h *Handler) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	synced := h.stockService.RefreshAllProducts(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

func (h *Handler) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	h.stockService.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDebug(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.stockService.Debug())
}

func (h *Handler) method(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		handler(w, r)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainStock.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainStock.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domainStock.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domainStock.ErrUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
