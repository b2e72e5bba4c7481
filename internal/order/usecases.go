package order

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"gitub.com/matheusmosca/ecommerce-order-engine/internal/inventory"
	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/events"
)

// ProductCacheInvalidator remove entradas de produto do cache de leitura
// depois que uma mutação de estoque é commitada
type ProductCacheInvalidator interface {
	InvalidateProduct(ctx context.Context, productID string)
}

// OrderUseCase é o motor de workflow de pedidos: criação com reserva de
// estoque multi-item, cancelamento com devolução compensatória e
// atualização de status, tudo dentro de uma única transação por operação.
type OrderUseCase struct {
	repository Repository
	ledger     inventory.Ledger
	publisher  events.Publisher
	cache      ProductCacheInvalidator

	ordersCreated metric.Int64Counter
}

func NewOrderUseCase(
	repository Repository,
	ledger inventory.Ledger,
	publisher events.Publisher,
	cache ProductCacheInvalidator,
) *OrderUseCase {
	meter := otel.Meter("order-workflow")
	ordersCreated, _ := meter.Int64Counter("orders_created_total")

	return &OrderUseCase{
		repository:    repository,
		ledger:        ledger,
		publisher:     publisher,
		cache:         cache,
		ordersCreated: ordersCreated,
	}
}

// CreateOrder reserva estoque para todos os itens, congela preços e
// persiste o pedido atomicamente. Qualquer falha antes do commit desfaz
// todas as reservas (tudo ou nada).
func (uc *OrderUseCase) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	log.Printf("➡️ [CREATE ORDER] UserID: %s, items: %d", userID, len(req.Items))

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	o := NewOrder(userID, req.ShippingAddress, req.Notes)

	// Itens processados na ordem do chamador; a transação é a unidade de
	// atomicidade, não há paralelismo por item.
	for _, it := range req.Items {
		product, err := uc.ledger.GetProductForUpdate(ctx, tx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsAvailable {
			return nil, &ProductUnavailableError{ProductName: product.Name}
		}
		if !product.HasStock(it.Quantity) {
			return nil, &InsufficientStockError{ProductName: product.Name}
		}

		if err := uc.ledger.ReserveStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
		o.AddItem(product, it.Quantity)
	}

	if err := uc.repository.CreateOrder(ctx, tx, o); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	log.Printf("✅ Order created: %s (%s), total=%s", o.ID, o.OrderNumber, o.TotalAmount)
	uc.ordersCreated.Add(ctx, 1)

	uc.publish(ctx, events.TopicOrderCreated, o.ID, events.OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
	})
	for _, item := range o.Items {
		uc.cache.InvalidateProduct(ctx, item.ProductID)
	}

	return uc.repository.GetOrder(ctx, o.ID)
}

// UpdateStatus aplica o status alvo sem matriz de legalidade (apenas o
// cancelamento tem guarda) e sobrescreve as notas quando informadas.
func (uc *OrderUseCase) UpdateStatus(ctx context.Context, orderID string, req UpdateStatusRequest) (*Order, error) {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	o, err := uc.repository.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	previous := o.Status
	o.ApplyStatus(req.Status, req.Notes)

	if err := uc.repository.UpdateOrder(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	log.Printf("✅ Order %s status: %s -> %s", o.OrderNumber, previous, o.Status)

	uc.publish(ctx, events.TopicOrderStatusUpdated, o.ID, events.OrderStatusUpdated{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		PreviousStatus: previous.String(),
		NewStatus:      o.Status.String(),
	})

	return o, nil
}

// CancelOrder devolve o estoque de cada item e marca o pedido como
// Cancelled na mesma transação. Produtos removidos após o pedido são
// ignorados silenciosamente na devolução.
func (uc *OrderUseCase) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	o, err := uc.repository.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := o.Cancel(); err != nil {
		return nil, err
	}

	var restored []string
	for _, item := range o.Items {
		ok, err := uc.ledger.RestoreStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if ok {
			restored = append(restored, item.ProductID)
		}
	}

	if err := uc.repository.UpdateOrder(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order cancellation: %w", err)
	}

	log.Printf("↩️ Order cancelled: %s (%s)", o.ID, o.OrderNumber)

	uc.publish(ctx, events.TopicOrderCancelled, o.ID, events.OrderCancelled{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
	})
	for _, productID := range restored {
		uc.cache.InvalidateProduct(ctx, productID)
	}

	return o, nil
}

// GetOrder busca um pedido pelo ID
func (uc *OrderUseCase) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return uc.repository.GetOrder(ctx, orderID)
}

// ListOrders retorna a página de pedidos conforme filtros e ordenação
func (uc *OrderUseCase) ListOrders(ctx context.Context, params ListParams) (*OrderPage, error) {
	params.Normalize()

	orders, total, err := uc.repository.ListOrders(ctx, params)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return &OrderPage{
		Orders:     orders,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetUserOrders lista os pedidos de um usuário
func (uc *OrderUseCase) GetUserOrders(ctx context.Context, userID string, params ListParams) (*OrderPage, error) {
	params.UserID = userID
	return uc.ListOrders(ctx, params)
}

// GetOrdersByStatus lista os pedidos com um status específico
func (uc *OrderUseCase) GetOrdersByStatus(ctx context.Context, status OrderStatus, params ListParams) (*OrderPage, error) {
	params.Status = &status
	return uc.ListOrders(ctx, params)
}

// publish é fire-and-forget: o pedido já foi commitado, falha de
// publicação é logada e engolida, nunca desfaz a operação.
func (uc *OrderUseCase) publish(ctx context.Context, topic, key string, payload any) {
	if err := uc.publisher.Publish(ctx, topic, key, payload); err != nil {
		log.Printf("⚠️ Failed to publish %s for %s: %v", topic, key, err)
	}
}
