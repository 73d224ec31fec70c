package repository

import (
	"context"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
)

// OrderRepository proveedor de pedidos (solo lectura).
type OrderRepository interface {
	// GetByID devuelve nil, nil si el pedido no existe.
	GetByID(ctx context.Context, orderID string) (*entity.Order, error)
}
