package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/storage"
)

var ErrProductNotFound = errors.New("product not found")

// Ledger é a capacidade de reserva/devolução de estoque consumida pelo
// motor de pedidos. Toda mutação acontece dentro da transação recebida.
type Ledger interface {
	// GetProductForUpdate obtém o produto com lock pessimista (FOR UPDATE)
	GetProductForUpdate(ctx context.Context, tx storage.Tx, productID string) (*Product, error)

	// ReserveStock decrementa o estoque do produto
	ReserveStock(ctx context.Context, tx storage.Tx, productID string, quantity int) error

	// RestoreStock incrementa o estoque de volta. Retorna false quando o
	// produto não existe mais (a devolução é silenciosamente ignorada).
	RestoreStock(ctx context.Context, tx storage.Tx, productID string, quantity int) (bool, error)
}

// Repository define as operações de leitura e de ledger sobre produtos
type Repository interface {
	Ledger

	GetProduct(ctx context.Context, productID string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// PostgresProductRepository implementa Repository usando PostgreSQL
type PostgresProductRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresProductRepository(pool *pgxpool.Pool) *PostgresProductRepository {
	return &PostgresProductRepository{pool: pool}
}

const productColumns = `id, name, price, stock_quantity, is_available, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}

// GetProductForUpdate obtém o produto com lock pessimista (FOR UPDATE)
func (r *PostgresProductRepository) GetProductForUpdate(ctx context.Context, tx storage.Tx, productID string) (*Product, error) {
	pgTx := tx.(*storage.PostgresTx).Pgx()

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
		FOR UPDATE
	`
	return scanProduct(pgTx.QueryRow(ctx, query, productID))
}

// ReserveStock decrementa o estoque dentro da transação
func (r *PostgresProductRepository) ReserveStock(ctx context.Context, tx storage.Tx, productID string, quantity int) error {
	pgTx := tx.(*storage.PostgresTx).Pgx()

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := pgTx.Exec(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	log.Printf("📦 Reserved %d unit(s) of %s", quantity, productID)
	return nil
}

// RestoreStock devolve o estoque. Se o produto foi removido depois do
// pedido, a devolução é ignorada e retorna false.
func (r *PostgresProductRepository) RestoreStock(ctx context.Context, tx storage.Tx, productID string, quantity int) (bool, error) {
	pgTx := tx.(*storage.PostgresTx).Pgx()

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := pgTx.Exec(ctx, query, productID, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to restore stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.Printf("ℹ️ Product %s no longer exists, skipping stock restoration", productID)
		return false, nil
	}

	log.Printf("♻️  Restored %d unit(s) of %s", quantity, productID)
	return true, nil
}

// GetProduct busca um produto pelo ID (caminho de leitura, sem lock)
func (r *PostgresProductRepository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.pool.QueryRow(ctx, query, productID))
}

// ListProducts lista o catálogo ordenado por nome
func (r *PostgresProductRepository) ListProducts(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
