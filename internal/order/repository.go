package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/storage"
)

// Repository define as operações de persistência de pedidos
type Repository interface {
	// BeginTx inicia a transação que delimita o workflow
	BeginTx(ctx context.Context) (storage.Tx, error)

	// CreateOrder persiste o cabeçalho e os itens como uma única escrita
	CreateOrder(ctx context.Context, tx storage.Tx, order *Order) error

	// GetOrder busca um pedido com itens pelo ID
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// GetOrderForUpdate busca o pedido com lock pessimista
	GetOrderForUpdate(ctx context.Context, tx storage.Tx, orderID string) (*Order, error)

	// UpdateOrder persiste status, notas e updated_at
	UpdateOrder(ctx context.Context, tx storage.Tx, order *Order) error

	// ListOrders aplica filtros, ordenação e paginação; retorna o total
	ListOrders(ctx context.Context, params ListParams) ([]Order, int64, error)
}

// PostgresOrderRepository implementa Repository usando PostgreSQL
type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

// BeginTx inicia uma nova transação
func (r *PostgresOrderRepository) BeginTx(ctx context.Context) (storage.Tx, error) {
	return storage.Begin(ctx, r.pool)
}

const orderColumns = `id, order_number, user_id, order_date, status, total_amount, shipping_address, notes, created_at, updated_at`

// CreateOrder persiste cabeçalho e itens na mesma transação
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, tx storage.Tx, order *Order) error {
	pgTx := tx.(*storage.PostgresTx).Pgx()

	_, err := pgTx.Exec(ctx, `
		INSERT INTO orders (id, order_number, user_id, order_date, status, total_amount, shipping_address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, order.ID, order.OrderNumber, order.UserID, order.OrderDate, int(order.Status),
		order.TotalAmount, order.ShippingAddress, order.Notes, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		_, err := pgTx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresOrderRepository) getOrder(ctx context.Context, q rowQuerier, orderID string, forUpdate bool) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var o Order
	var status int
	err := q.QueryRow(ctx, query, orderID).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.OrderDate, &status, &o.TotalAmount,
		&o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	o.Status = OrderStatus(status)

	items, err := r.loadItems(ctx, q, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *PostgresOrderRepository) loadItems(ctx context.Context, q rowQuerier, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]OrderItem)
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

// GetOrder busca um pedido com itens pelo ID
func (r *PostgresOrderRepository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return r.getOrder(ctx, r.pool, orderID, false)
}

// GetOrderForUpdate busca o pedido com lock pessimista (FOR UPDATE)
func (r *PostgresOrderRepository) GetOrderForUpdate(ctx context.Context, tx storage.Tx, orderID string) (*Order, error) {
	return r.getOrder(ctx, tx.(*storage.PostgresTx).Pgx(), orderID, true)
}

// UpdateOrder persiste os campos mutáveis do cabeçalho
func (r *PostgresOrderRepository) UpdateOrder(ctx context.Context, tx storage.Tx, order *Order) error {
	pgTx := tx.(*storage.PostgresTx).Pgx()

	tag, err := pgTx.Exec(ctx, `
		UPDATE orders
		SET status = $2, notes = $3, updated_at = $4
		WHERE id = $1
	`, order.ID, int(order.Status), order.Notes, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// sortColumns é a whitelist de colunas de ordenação da listagem
var sortColumns = map[string]string{
	SortByOrderDate:   "order_date",
	SortByOrderNumber: "order_number",
	SortByTotalAmount: "total_amount",
	SortByStatus:      "status",
}

// ListOrders aplica filtros, ordenação e paginação com contagem total
func (r *PostgresOrderRepository) ListOrders(ctx context.Context, params ListParams) ([]Order, int64, error) {
	where := ""
	args := []any{}
	addClause := func(clause string, value any) {
		args = append(args, value)
		cond := fmt.Sprintf(clause, len(args))
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}

	if params.Search != "" {
		addClause("order_number ILIKE '%%' || $%d || '%%'", params.Search)
	}
	if params.UserID != "" {
		addClause("user_id = $%d", params.UserID)
	}
	if params.Status != nil {
		addClause("status = $%d", int(*params.Status))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	column, ok := sortColumns[params.SortBy]
	if !ok {
		column = "order_date"
	}
	direction := "ASC"
	if params.SortDesc {
		direction = "DESC"
	}

	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)
	query := fmt.Sprintf(
		"SELECT %s FROM orders%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		orderColumns, where, column, direction, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	var ids []string
	for rows.Next() {
		var o Order
		var status int
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.OrderDate, &status, &o.TotalAmount,
			&o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = OrderStatus(status)
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, r.pool, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}

	return orders, total, nil
}
