package order

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewPostgresOrderRepository(t *testing.T) {
	// Arrange
	var pool *pgxpool.Pool

	// Act
	repo := NewPostgresOrderRepository(pool)

	// Assert
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgresOrderRepository{}, repo)
}

func TestSortColumnsWhitelist(t *testing.T) {
	// Apenas colunas conhecidas podem entrar no ORDER BY
	expected := map[string]string{
		SortByOrderDate:   "order_date",
		SortByOrderNumber: "order_number",
		SortByTotalAmount: "total_amount",
		SortByStatus:      "status",
	}
	assert.Equal(t, expected, sortColumns)

	_, ok := sortColumns["user_id; DROP TABLE orders"]
	assert.False(t, ok)
}

func TestListParamsNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       ListParams
		page     int
		pageSize int
		sortBy   string
		sortDesc bool
	}{
		{"defaults", ListParams{}, 1, 10, SortByOrderDate, true},
		{"negative page", ListParams{Page: -3, PageSize: 20}, 1, 20, SortByOrderDate, true},
		{"page size capped", ListParams{Page: 2, PageSize: 1000}, 2, 100, SortByOrderDate, true},
		{"explicit sort preserved", ListParams{Page: 1, PageSize: 5, SortBy: SortByTotalAmount}, 1, 5, SortByTotalAmount, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			assert.Equal(t, tt.page, tt.in.Page)
			assert.Equal(t, tt.pageSize, tt.in.PageSize)
			assert.Equal(t, tt.sortBy, tt.in.SortBy)
			assert.Equal(t, tt.sortDesc, tt.in.SortDesc)
		})
	}
}
