package order

// CreateOrderRequest representa a requisição de criação de pedido
type CreateOrderRequest struct {
	ShippingAddress string             `json:"shipping_address"`
	Notes           string             `json:"notes"`
	Items           []OrderItemRequest `json:"items" binding:"required,dive"`
}

// OrderItemRequest representa um item da requisição de criação
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// UpdateStatusRequest representa a requisição de atualização de status
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status"`
	Notes  string      `json:"notes"`
}

// Campos de ordenação aceitos pela listagem
const (
	SortByOrderDate   = "order_date"
	SortByOrderNumber = "order_number"
	SortByTotalAmount = "total_amount"
	SortByStatus      = "status"
)

// ListParams parametriza a listagem paginada de pedidos
type ListParams struct {
	Page     int
	PageSize int
	SortBy   string
	SortDesc bool

	// Filtros opcionais
	Search string       // substring do order_number
	UserID string       // dono do pedido
	Status *OrderStatus // valor exato de status
}

// Normalize aplica os defaults de paginação e ordenação
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	if p.SortBy == "" {
		p.SortBy = SortByOrderDate
		p.SortDesc = true
	}
}

// OrderPage é o envelope paginado da listagem
type OrderPage struct {
	Orders     []Order `json:"orders"`
	TotalCount int64   `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}
