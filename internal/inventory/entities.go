package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa um produto do catálogo com seu estoque
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsAvailable   bool            `json:"is_available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// HasStock verifica se há estoque suficiente para a quantidade pedida
func (p *Product) HasStock(quantity int) bool {
	return p.StockQuantity >= quantity
}
