package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo lee pedidos de la tienda online (orders + order_items). Solo lectura.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// GetByID obtiene el pedido con sus líneas; nil, nil si no existe.
func (r *OrderRepo) GetByID(ctx context.Context, orderID string) (*entity.Order, error) {
	const query = `
		SELECT id, COALESCE(store_id::text, ''), total_amount, COALESCE(payment_method, ''),
		       COALESCE(customer_id::text, ''), COALESCE(customer_name, ''),
		       COALESCE(customer_document, ''), COALESCE(shipping_address, ''), created_at
		FROM orders WHERE id = $1`
	var o entity.Order
	err := r.q.QueryRow(ctx, query, orderID).Scan(
		&o.ID, &o.StoreID, &o.TotalAmount, &o.PaymentMethod,
		&o.CustomerID, &o.CustomerName, &o.CustomerDocument, &o.Address, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	const itemsQuery = `
		SELECT product_id::text, COALESCE(product_name, ''), quantity, price_at_purchase,
		       COALESCE(ncm, ''), COALESCE(cfop, '')
		FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.PriceAtPurchase, &it.NCM, &it.CFOP); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &o, nil
}
