package order

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitub.com/matheusmosca/ecommerce-order-engine/internal/inventory"
)

// UserIDKey é a chave do contexto gin onde o middleware de autenticação
// deposita a identidade do chamador
const UserIDKey = "user_id"

// OrderUseCaseInterface define a interface para o use case
type OrderUseCaseInterface interface {
	CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, req UpdateStatusRequest) (*Order, error)
	CancelOrder(ctx context.Context, orderID string) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context, params ListParams) (*OrderPage, error)
	GetUserOrders(ctx context.Context, userID string, params ListParams) (*OrderPage, error)
	GetOrdersByStatus(ctx context.Context, status OrderStatus, params ListParams) (*OrderPage, error)
}

// OrderHandler contém os handlers HTTP
type OrderHandler struct {
	useCase OrderUseCaseInterface
	tracer  trace.Tracer
}

func NewOrderHandler(useCase OrderUseCaseInterface, tracer trace.Tracer) *OrderHandler {
	return &OrderHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// businessError devolve o status HTTP de uma falha de regra de negócio
func businessError(err error) (int, bool) {
	var insufficient *InsufficientStockError
	var unavailable *ProductUnavailableError

	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, inventory.ErrProductNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrAlreadyCancelled),
		errors.As(err, &insufficient),
		errors.As(err, &unavailable):
		return http.StatusBadRequest, true
	}
	return 0, false
}

// respondError responde 404/400 para falhas de negócio e 500 genérico
// para falhas de infraestrutura (sem vazar detalhes internos)
func respondError(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)

	if status, ok := businessError(err); ok {
		c.JSON(status, gin.H{"error": err.Error(), "errors": []string{err.Error()}})
		return
	}

	log.Printf("❌ Internal error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func listParamsFromQuery(c *gin.Context) ListParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	sortDesc, _ := strconv.ParseBool(c.DefaultQuery("sort_desc", "true"))

	return ListParams{
		Page:     page,
		PageSize: pageSize,
		SortBy:   c.Query("sort_by"),
		SortDesc: sortDesc,
		Search:   c.Query("search"),
	}
}

// CreateOrder cria um pedido reservando estoque para todos os itens
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "create_order")
	defer span.End()

	userID := c.GetString(UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "errors": []string{err.Error()}})
		return
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("item_count", len(req.Items)),
	)

	order, err := h.useCase.CreateOrder(ctx, userID, req)
	if err != nil {
		respondError(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.String("order_number", order.OrderNumber),
	)
	c.JSON(http.StatusCreated, order)
}

// UpdateStatus atualiza o status (e opcionalmente as notas) do pedido
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "update_order_status")
	defer span.End()

	orderID := c.Param("id")
	span.SetAttributes(attribute.String("order_id", orderID))

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "errors": []string{err.Error()}})
		return
	}

	span.SetAttributes(attribute.String("new_status", req.Status.String()))

	order, err := h.useCase.UpdateStatus(ctx, orderID, req)
	if err != nil {
		respondError(c, span, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder cancela o pedido devolvendo o estoque
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "cancel_order")
	defer span.End()

	orderID := c.Param("id")
	span.SetAttributes(attribute.String("order_id", orderID))

	order, err := h.useCase.CancelOrder(ctx, orderID)
	if err != nil {
		respondError(c, span, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Order cancelled successfully",
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
}

// GetOrder retorna um pedido pelo ID
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_order")
	defer span.End()

	orderID := c.Param("id")
	span.SetAttributes(attribute.String("order_id", orderID))

	order, err := h.useCase.GetOrder(ctx, orderID)
	if err != nil {
		respondError(c, span, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders retorna a listagem paginada, com filtros opcionais
func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_orders")
	defer span.End()

	params := listParamsFromQuery(c)
	if raw := c.Query("status"); raw != "" {
		status, err := ParseOrderStatus(raw)
		if err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "errors": []string{err.Error()}})
			return
		}
		params.Status = &status
	}

	page, err := h.useCase.ListOrders(ctx, params)
	if err != nil {
		respondError(c, span, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetMyOrders lista os pedidos do chamador autenticado
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_my_orders")
	defer span.End()

	userID := c.GetString(UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}
	span.SetAttributes(attribute.String("user_id", userID))

	page, err := h.useCase.GetUserOrders(ctx, userID, listParamsFromQuery(c))
	if err != nil {
		respondError(c, span, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetOrdersByStatus lista os pedidos com o status informado
func (h *OrderHandler) GetOrdersByStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_orders_by_status")
	defer span.End()

	status, err := ParseOrderStatus(c.Param("status"))
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "errors": []string{err.Error()}})
		return
	}
	span.SetAttributes(attribute.String("status", status.String()))

	page, err := h.useCase.GetOrdersByStatus(ctx, status, listParamsFromQuery(c))
	if err != nil {
		respondError(c, span, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// HealthCheck verifica a saúde do serviço
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "order-service",
	})
}
