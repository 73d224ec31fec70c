package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medios de pago conocidos. El pedido puede traer otros; se envían tal cual.
const (
	PaymentMethodCash   = "cash"
	PaymentMethodCredit = "credit_card"
	PaymentMethodDebit  = "debit_card"
	PaymentMethodPix    = "pix"
)

// Order pedido de la tienda online. Solo lectura para el módulo fiscal.
type Order struct {
	ID               string
	StoreID          string
	Items            []OrderItem
	TotalAmount      decimal.Decimal
	PaymentMethod    string
	CustomerID       string
	CustomerName     string
	CustomerDocument string // CPF/CNPJ, opcional
	Address          string
	CreatedAt        time.Time
}

// OrderItem línea del pedido.
type OrderItem struct {
	ProductID       string
	Name            string
	Quantity        int
	PriceAtPurchase decimal.Decimal
	NCM             string // clasificación fiscal del producto; vacío = genérico
	CFOP            string
}

// Subtotal cantidad × precio.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
