package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/rideorders-system/internal/auth"
	"github.com/mmeshcher/rideorders-system/internal/middleware"
	"github.com/mmeshcher/rideorders-system/internal/model"
	"github.com/mmeshcher/rideorders-system/internal/repository"
)

type stubService struct {
	createdOrder *model.Order
	createErr    error
	gotNewOrder  *model.NewOrder

	listOrders []model.Order
	listTotal  int64
	listErr    error
	gotQuery   *model.ListQuery

	getOrder *model.Order
	getErr   error
	gotID    int64

	gotUserID string
}

func (s *stubService) CreateOrder(ctx context.Context, userID string, o *model.NewOrder) (*model.Order, error) {
	s.gotUserID = userID
	s.gotNewOrder = o
	return s.createdOrder, s.createErr
}

func (s *stubService) ListOrders(ctx context.Context, userID string, q *model.ListQuery) ([]model.Order, int64, error) {
	s.gotUserID = userID
	s.gotQuery = q
	return s.listOrders, s.listTotal, s.listErr
}

func (s *stubService) GetOrderByID(ctx context.Context, userID string, orderID int64) (*model.Order, error) {
	s.gotUserID = userID
	s.gotID = orderID
	return s.getOrder, s.getErr
}

type stubVerifier struct {
	claims *auth.Claims
	err    error
}

func (s *stubVerifier) Verify(tokenString string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	authMiddleware := middleware.NewAuthMiddleware(&stubVerifier{
		claims: &auth.Claims{Subject: "user-1", Email: "user@example.com"},
	})

	limiters := RateLimiters{
		General: middleware.NewRateLimiter(1000, time.Minute),
		Strict:  middleware.NewRateLimiter(1000, time.Minute),
		Public:  middleware.NewRateLimiter(1000, time.Minute),
	}

	return NewHandler(svc, logger, authMiddleware, limiters, false)
}

func sampleOrder() *model.Order {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:             7,
		UserID:         "user-1",
		PickupAddress:  "A",
		DropoffAddress: "B",
		PickupLat:      40.7,
		PickupLng:      -74.0,
		DropoffLat:     40.8,
		DropoffLng:     -73.9,
		Amount:         25.5,
		OrderType:      model.OrderTypeDelivery,
		Status:         model.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func TestCreateOrder_Success(t *testing.T) {
	svc := &stubService{createdOrder: sampleOrder()}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body := []byte(`{"pickupAddress":"A","dropoffAddress":"B","latPickup":40.7,"lngPickup":-74.0,
		"latDropoff":40.8,"lngDropoff":-73.9,"amount":25.5,"orderType":"DELIVERY"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/orders", body))

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", res.StatusCode, http.StatusCreated, rec.Body.String())
	}

	var resp createOrderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Order.OrderType != "delivery" {
		t.Fatalf("orderType = %q, want delivery", resp.Order.OrderType)
	}
	if resp.Order.Status != "pending" {
		t.Fatalf("status = %q, want pending", resp.Order.Status)
	}
	if resp.Order.CreatedAt == "" || resp.Order.UpdatedAt == "" {
		t.Fatalf("timestamps must be set: %+v", resp.Order)
	}

	if svc.gotUserID != "user-1" {
		t.Fatalf("service got user %q, want user-1", svc.gotUserID)
	}
	if svc.gotNewOrder.OrderType != model.OrderTypeDelivery {
		t.Fatalf("validated order type = %q, want delivery", svc.gotNewOrder.OrderType)
	}
}

func TestCreateOrder_MissingFields(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body := []byte(`{"pickupAddress":"A","latPickup":40.7}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/orders", body))

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	var resp errorResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, field := range []string{"dropoffAddress", "lngPickup", "latDropoff", "lngDropoff", "amount", "orderType"} {
		if !bytes.Contains([]byte(resp.Error), []byte(field)) {
			t.Fatalf("error %q must name %q", resp.Error, field)
		}
	}

	if svc.gotNewOrder != nil {
		t.Fatalf("service must not be called for invalid payload")
	}
}

func TestCreateOrder_ZeroCoordinatePresent(t *testing.T) {
	svc := &stubService{createdOrder: sampleOrder()}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body := []byte(`{"pickupAddress":"A","dropoffAddress":"B","latPickup":0,"lngPickup":0,
		"latDropoff":40.8,"lngDropoff":-73.9,"amount":25.5,"orderType":"delivery"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/orders", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestCreateOrder_ServiceFailureIsOpaque(t *testing.T) {
	svc := &stubService{createErr: errors.New(`insert order: relation "orders" does not exist`)}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body := []byte(`{"pickupAddress":"A","dropoffAddress":"B","latPickup":40.7,"lngPickup":-74.0,
		"latDropoff":40.8,"lngDropoff":-73.9,"amount":25.5,"orderType":"delivery"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/orders", body))

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}

	// Текст ошибки хранилища не должен попадать в ответ production-конфигурации.
	var resp errorResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Internal server error" {
		t.Fatalf("error = %q", resp.Error)
	}
	if resp.Detail != "" {
		t.Fatalf("detail must be stripped, got %q", resp.Detail)
	}
}

func TestListOrders_Pagination(t *testing.T) {
	svc := &stubService{
		listOrders: []model.Order{*sampleOrder()},
		listTotal:  25,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders?limit=20&offset=0&status=pending", nil))

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp listOrdersResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Pagination.Total != 25 || resp.Pagination.Limit != 20 || resp.Pagination.Offset != 0 {
		t.Fatalf("pagination = %+v", resp.Pagination)
	}
	if !resp.Pagination.HasMore {
		t.Fatalf("hasMore must be true for offset+limit < total")
	}
	if svc.gotQuery.Status != "pending" {
		t.Fatalf("query status = %q, want pending", svc.gotQuery.Status)
	}
}

func TestListOrders_HasMoreFalseOnLastPage(t *testing.T) {
	svc := &stubService{listTotal: 25}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders?limit=20&offset=20", nil))

	var resp listOrdersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Pagination.HasMore {
		t.Fatalf("hasMore must be false: offset+limit >= total")
	}
	if resp.Orders == nil {
		t.Fatalf("orders must serialize as an empty array, not null")
	}
}

func TestListOrders_InvalidStatus(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders?status=bogus", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if svc.gotQuery != nil {
		t.Fatalf("service must not be called for invalid status")
	}
}

func TestGetOrder_Success(t *testing.T) {
	svc := &stubService{getOrder: sampleOrder()}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders/7", nil))

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp getOrderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Order.ID != 7 {
		t.Fatalf("order id = %d, want 7", resp.Order.ID)
	}
	if svc.gotID != 7 || svc.gotUserID != "user-1" {
		t.Fatalf("service got id=%d user=%q", svc.gotID, svc.gotUserID)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &stubService{getErr: repository.ErrOrderNotFound}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders/999999", nil))

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}

	var resp errorResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Order not found" {
		t.Fatalf("error = %q", resp.Error)
	}
}

func TestGetOrder_InvalidID(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders/abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestOrders_RequireAuthentication(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp healthResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Timestamp == "" {
		t.Fatalf("unexpected health response: %+v", resp)
	}
}

func TestErrorDetail_ExposedOutsideProduction(t *testing.T) {
	svc := &stubService{createErr: errors.New("boom")}

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(&stubVerifier{claims: &auth.Claims{Subject: "user-1"}})
	limiters := RateLimiters{
		General: middleware.NewRateLimiter(1000, time.Minute),
		Strict:  middleware.NewRateLimiter(1000, time.Minute),
		Public:  middleware.NewRateLimiter(1000, time.Minute),
	}
	h := NewHandler(svc, logger, authMiddleware, limiters, true)
	router := h.SetupRouter()

	body := []byte(`{"pickupAddress":"A","dropoffAddress":"B","latPickup":40.7,"lngPickup":-74.0,
		"latDropoff":40.8,"lngDropoff":-73.9,"amount":25.5,"orderType":"delivery"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/orders", body))

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Detail != "boom" {
		t.Fatalf("detail = %q, want boom", resp.Detail)
	}
}

func TestRouter_NotFoundJSON(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}
}
