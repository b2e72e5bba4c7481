package order

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"
)

// MockOrderUseCase simula o motor de workflow para os handlers
type MockOrderUseCase struct {
	mock.Mock
}

func (m *MockOrderUseCase) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*Order, error) {
	args := m.Called(ctx, userID, req)
	if o, ok := args.Get(0).(*Order); ok && o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderUseCase) UpdateStatus(ctx context.Context, orderID string, req UpdateStatusRequest) (*Order, error) {
	args := m.Called(ctx, orderID, req)
	if o, ok := args.Get(0).(*Order); ok && o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderUseCase) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	if o, ok := args.Get(0).(*Order); ok && o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderUseCase) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	if o, ok := args.Get(0).(*Order); ok && o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderUseCase) ListOrders(ctx context.Context, params ListParams) (*OrderPage, error) {
	args := m.Called(ctx, params)
	if p, ok := args.Get(0).(*OrderPage); ok && p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderUseCase) GetUserOrders(ctx context.Context, userID string, params ListParams) (*OrderPage, error) {
	args := m.Called(ctx, userID, params)
	if p, ok := args.Get(0).(*OrderPage); ok && p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderUseCase) GetOrdersByStatus(ctx context.Context, status OrderStatus, params ListParams) (*OrderPage, error) {
	args := m.Called(ctx, status, params)
	if p, ok := args.Get(0).(*OrderPage); ok && p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func setupRouter(useCase OrderUseCaseInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewOrderHandler(useCase, otel.Tracer("test"))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(UserIDKey, userID)
		}
		c.Next()
	})

	orders := r.Group("/api/orders")
	orders.POST("", handler.CreateOrder)
	orders.GET("", handler.ListOrders)
	orders.GET("/my-orders", handler.GetMyOrders)
	orders.GET("/status/:status", handler.GetOrdersByStatus)
	orders.GET("/:id", handler.GetOrder)
	orders.PUT("/:id/status", handler.UpdateStatus)
	orders.POST("/:id/cancel", handler.CancelOrder)
	return r
}

func performRequest(r *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrderHandler_Created(t *testing.T) {
	useCase := new(MockOrderUseCase)
	created := NewOrder("user-1", "street 1", "")
	created.TotalAmount = decimal.RequireFromString("35.00")

	useCase.On("CreateOrder", mock.Anything, "user-1", mock.Anything).Return(created, nil)

	w := performRequest(setupRouter(useCase), http.MethodPost, "/api/orders", "user-1", CreateOrderRequest{
		Items: []OrderItemRequest{{ProductID: "prod-a", Quantity: 3}},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp Order
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.OrderNumber, resp.OrderNumber)
}

func TestCreateOrderHandler_MissingIdentity(t *testing.T) {
	useCase := new(MockOrderUseCase)

	w := performRequest(setupRouter(useCase), http.MethodPost, "/api/orders", "", CreateOrderRequest{
		Items: []OrderItemRequest{{ProductID: "prod-a", Quantity: 1}},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	useCase.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderHandler_InsufficientStock(t *testing.T) {
	useCase := new(MockOrderUseCase)
	useCase.On("CreateOrder", mock.Anything, "user-1", mock.Anything).
		Return(nil, &InsufficientStockError{ProductName: "B"})

	w := performRequest(setupRouter(useCase), http.MethodPost, "/api/orders", "user-1", CreateOrderRequest{
		Items: []OrderItemRequest{{ProductID: "prod-b", Quantity: 1}},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error  string   `json:"error"`
		Errors []string `json:"errors"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient stock for product B", resp.Error)
	assert.Equal(t, []string{"insufficient stock for product B"}, resp.Errors)
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	useCase := new(MockOrderUseCase)
	useCase.On("GetOrder", mock.Anything, "missing").Return(nil, ErrOrderNotFound)

	w := performRequest(setupRouter(useCase), http.MethodGet, "/api/orders/missing", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrderHandler_Success(t *testing.T) {
	useCase := new(MockOrderUseCase)
	cancelled := NewOrder("user-1", "", "")
	cancelled.Status = OrderStatusCancelled

	useCase.On("CancelOrder", mock.Anything, cancelled.ID).Return(cancelled, nil)

	w := performRequest(setupRouter(useCase), http.MethodPost, "/api/orders/"+cancelled.ID+"/cancel", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Order cancelled successfully")
}

func TestCancelOrderHandler_InvalidTransition(t *testing.T) {
	useCase := new(MockOrderUseCase)
	useCase.On("CancelOrder", mock.Anything, "order-1").Return(nil, ErrInvalidTransition)

	w := performRequest(setupRouter(useCase), http.MethodPost, "/api/orders/order-1/cancel", "user-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot cancel shipped/delivered orders")
}

func TestUpdateStatusHandler_NotFound(t *testing.T) {
	useCase := new(MockOrderUseCase)
	useCase.On("UpdateStatus", mock.Anything, "missing", mock.Anything).Return(nil, ErrOrderNotFound)

	w := performRequest(setupRouter(useCase), http.MethodPut, "/api/orders/missing/status", "user-1",
		UpdateStatusRequest{Status: OrderStatusConfirmed})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrdersByStatusHandler_InvalidStatus(t *testing.T) {
	useCase := new(MockOrderUseCase)

	w := performRequest(setupRouter(useCase), http.MethodGet, "/api/orders/status/bogus", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	useCase.AssertNotCalled(t, "GetOrdersByStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestListOrdersHandler_ParsesQuery(t *testing.T) {
	useCase := new(MockOrderUseCase)
	useCase.On("ListOrders", mock.Anything, mock.MatchedBy(func(p ListParams) bool {
		return p.Page == 2 && p.PageSize == 5 && p.SortBy == SortByTotalAmount &&
			p.Search == "ORD-2025" && p.Status != nil && *p.Status == OrderStatusPending
	})).Return(&OrderPage{Page: 2, PageSize: 5}, nil)

	w := performRequest(setupRouter(useCase),
		http.MethodGet, "/api/orders?page=2&page_size=5&sort_by=total_amount&search=ORD-2025&status=Pending", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	useCase.AssertExpectations(t)
}

func TestGetMyOrdersHandler(t *testing.T) {
	useCase := new(MockOrderUseCase)
	useCase.On("GetUserOrders", mock.Anything, "user-7", mock.Anything).Return(&OrderPage{}, nil)

	w := performRequest(setupRouter(useCase), http.MethodGet, "/api/orders/my-orders", "user-7", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	useCase.AssertExpectations(t)
}
