package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gitub.com/matheusmosca/ecommerce-order-engine/internal/inventory"
)

// OrderStatus representa os possíveis status de um pedido.
// Os ordinais fazem parte do contrato (Pending=0 ... Cancelled=5).
type OrderStatus int

const (
	OrderStatusPending OrderStatus = iota
	OrderStatusConfirmed
	OrderStatusProcessing
	OrderStatusShipped
	OrderStatusDelivered
	OrderStatusCancelled
)

var statusNames = [...]string{"Pending", "Confirmed", "Processing", "Shipped", "Delivered", "Cancelled"}

func (s OrderStatus) String() string {
	if s < OrderStatusPending || s > OrderStatusCancelled {
		return fmt.Sprintf("OrderStatus(%d)", int(s))
	}
	return statusNames[s]
}

// ParseOrderStatus aceita o nome (case-insensitive) ou o ordinal
func ParseOrderStatus(value string) (OrderStatus, error) {
	for i, name := range statusNames {
		if strings.EqualFold(name, value) {
			return OrderStatus(i), nil
		}
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n >= int(OrderStatusPending) && n <= int(OrderStatusCancelled) {
			return OrderStatus(n), nil
		}
	}
	return 0, fmt.Errorf("invalid order status: %q", value)
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	if s < OrderStatusPending || s > OrderStatusCancelled {
		return nil, fmt.Errorf("invalid order status: %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := ParseOrderStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case float64:
		n := int(v)
		if n < int(OrderStatusPending) || n > int(OrderStatusCancelled) {
			return fmt.Errorf("invalid order status: %d", n)
		}
		*s = OrderStatus(n)
		return nil
	default:
		return fmt.Errorf("invalid order status: %v", raw)
	}
}

// Erros de regra de negócio do agregado de pedidos
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must contain at least one item")
	ErrInvalidQuantity   = errors.New("item quantity must be positive")
	ErrInvalidTransition = errors.New("cannot cancel shipped/delivered orders")
	ErrAlreadyCancelled  = errors.New("order is already cancelled")
)

// InsufficientStockError carrega o nome do produto sem estoque
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductName)
}

// ProductUnavailableError carrega o nome do produto indisponível
type ProductUnavailableError struct {
	ProductName string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductName)
}

// OrderItem é uma linha do pedido com preço congelado no momento da compra
type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// TotalPrice é derivado, nunca armazenado separadamente
func (i *OrderItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order representa um pedido e seus itens (composição exclusiva)
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	OrderDate       time.Time       `json:"order_date"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewOrder cria um pedido Pending com número gerado e total zerado
func NewOrder(userID, shippingAddress, notes string) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:              uuid.New().String(),
		OrderNumber:     generateOrderNumber(now),
		UserID:          userID,
		OrderDate:       now,
		Status:          OrderStatusPending,
		TotalAmount:     decimal.Zero,
		ShippingAddress: shippingAddress,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// generateOrderNumber produz ORD-<data>-<8 hex>. Unicidade é melhor
// esforço via aleatoriedade, sem constraint no banco.
func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// AddItem congela o preço unitário do produto e acumula o total
func (o *Order) AddItem(product *inventory.Product, quantity int) {
	item := OrderItem{
		ID:          uuid.New().String(),
		OrderID:     o.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
	}
	o.Items = append(o.Items, item)
	o.TotalAmount = o.TotalAmount.Add(item.TotalPrice())
}

// Cancel aplica a única regra de transição do agregado: pedidos
// enviados ou entregues não podem ser cancelados.
func (o *Order) Cancel() error {
	switch o.Status {
	case OrderStatusShipped, OrderStatusDelivered:
		return ErrInvalidTransition
	case OrderStatusCancelled:
		return ErrAlreadyCancelled
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyStatus aplica qualquer status alvo sem matriz de legalidade.
// Esse comportamento permissivo é intencionalmente preservado; apenas o
// caminho de cancelamento tem guarda de transição.
func (o *Order) ApplyStatus(newStatus OrderStatus, notes string) {
	o.Status = newStatus
	if notes != "" {
		o.Notes = notes
	}
	o.UpdatedAt = time.Now().UTC()
}
