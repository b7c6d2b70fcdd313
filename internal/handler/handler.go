// Package handler содержит HTTP-обработчики API сервиса заказов.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/rideorders-system/internal/middleware"
	"github.com/mmeshcher/rideorders-system/internal/model"
	"github.com/mmeshcher/rideorders-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateOrder(ctx context.Context, userID string, o *model.NewOrder) (*model.Order, error)
	ListOrders(ctx context.Context, userID string, q *model.ListQuery) ([]model.Order, int64, error)
	GetOrderByID(ctx context.Context, userID string, orderID int64) (*model.Order, error)
}

// RateLimiters объединяет ограничители частоты запросов для групп маршрутов.
type RateLimiters struct {
	General *middleware.RateLimiter
	Strict  *middleware.RateLimiter
	Public  *middleware.RateLimiter
}

// Handler реализует HTTP-обработчики API сервиса заказов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	limiters       RateLimiters
	exposeDetails  bool
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// При exposeDetails ответы об ошибках дополняются диагностическим полем.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, limiters RateLimiters, exposeDetails bool) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		limiters:       limiters,
		exposeDetails:  exposeDetails,
	}
}

type orderResponse struct {
	ID             int64   `json:"id"`
	UserID         string  `json:"userId"`
	PickupAddress  string  `json:"pickupAddress"`
	DropoffAddress string  `json:"dropoffAddress"`
	LatPickup      float64 `json:"latPickup"`
	LngPickup      float64 `json:"lngPickup"`
	LatDropoff     float64 `json:"latDropoff"`
	LngDropoff     float64 `json:"lngDropoff"`
	Amount         float64 `json:"amount"`
	OrderType      string  `json:"orderType"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		UserID:         o.UserID,
		PickupAddress:  o.PickupAddress,
		DropoffAddress: o.DropoffAddress,
		LatPickup:      o.PickupLat,
		LngPickup:      o.PickupLng,
		LatDropoff:     o.DropoffLat,
		LngDropoff:     o.DropoffLng,
		Amount:         o.Amount,
		OrderType:      string(o.OrderType),
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      o.UpdatedAt.Format(time.RFC3339),
	}
}

type createOrderResponse struct {
	Message string        `json:"message"`
	Order   orderResponse `json:"order"`
}

// CreateOrder создаёт заказ для текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	defer r.Body.Close()

	var req validation.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	newOrder, err := validation.ValidateCreateOrder(req)
	if err != nil {
		h.handleError(w, err, "create order")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), claims.Subject, newOrder)
	if err != nil {
		h.handleError(w, err, "create order")
		return
	}

	h.writeJSON(w, http.StatusCreated, createOrderResponse{
		Message: "Order created successfully",
		Order:   toOrderResponse(order),
	})
}

type paginationResponse struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

type listOrdersResponse struct {
	Message    string             `json:"message"`
	Orders     []orderResponse    `json:"orders"`
	Pagination paginationResponse `json:"pagination"`
}

// ListOrders возвращает страницу заказов текущего пользователя с учётом фильтров.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	query, err := validation.ParseListQuery(r.URL.Query())
	if err != nil {
		h.handleError(w, err, "list orders")
		return
	}

	orders, total, err := h.service.ListOrders(r.Context(), claims.Subject, query)
	if err != nil {
		h.handleError(w, err, "list orders")
		return
	}

	resp := listOrdersResponse{
		Message: "Orders retrieved successfully",
		Orders:  make([]orderResponse, 0, len(orders)),
		Pagination: paginationResponse{
			Total:  total,
			Limit:  query.Limit,
			Offset: query.Offset,
			// Формула сохранена для совместимости, при offset не кратном limit
			// она неточна.
			HasMore: int64(query.Offset+query.Limit) < total,
		},
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type getOrderResponse struct {
	Message string        `json:"message"`
	Order   orderResponse `json:"order"`
}

// GetOrder возвращает один заказ текущего пользователя по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	orderID, err := validation.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		h.handleError(w, err, "get order")
		return
	}

	order, err := h.service.GetOrderByID(r.Context(), claims.Subject, orderID)
	if err != nil {
		h.handleError(w, err, "get order")
		return
	}

	h.writeJSON(w, http.StatusOK, getOrderResponse{
		Message: "Order retrieved successfully",
		Order:   toOrderResponse(order),
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health возвращает признак работоспособности сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}
