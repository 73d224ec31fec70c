package fiscal

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
)

// couponWidth columnas de una impresora térmica de 80 mm con fuente estándar.
const couponWidth = 40

var documentTitles = map[entity.DocumentType]string{
	entity.DocumentTypeNFe:       "DANFE NFC-e (SEGUNDA VIA)",
	entity.DocumentTypeSAT:       "CUPOM FISCAL ELETRONICO SAT",
	entity.DocumentTypeECF:       "CUPOM FISCAL ECF",
	entity.DocumentTypeSimulated: "CUPOM SIMULADO - SEM VALOR FISCAL",
}

var paymentLabels = map[string]string{
	entity.PaymentMethodCash:   "Dinheiro",
	entity.PaymentMethodCredit: "Cartao de credito",
	entity.PaymentMethodDebit:  "Cartao de debito",
	entity.PaymentMethodPix:    "PIX",
}

// RenderCouponText arma el texto imprimible de un cupón a partir del pedido.
// Es determinista: las mismas entradas producen el mismo texto, así la reimpresión
// reconstruida coincide con la original.
func RenderCouponText(storeName string, docType entity.DocumentType, number string, order *entity.Order) string {
	var b strings.Builder
	sep := strings.Repeat("-", couponWidth)

	if storeName == "" {
		storeName = "FARMACIA"
	}
	b.WriteString(center(strings.ToUpper(storeName)) + "\n")
	title, ok := documentTitles[docType]
	if !ok {
		title = strings.ToUpper(string(docType))
	}
	b.WriteString(center(title) + "\n")
	if number != "" {
		b.WriteString("No: " + number + "\n")
	}
	b.WriteString("Pedido: " + order.ID + "\n")
	if order.CustomerDocument != "" {
		b.WriteString("CPF/CNPJ: " + order.CustomerDocument + "\n")
	}
	b.WriteString(sep + "\n")

	for _, it := range order.Items {
		b.WriteString(truncateRunes(it.Name, couponWidth) + "\n")
		qty := fmt.Sprintf("  %d x %s", it.Quantity, it.PriceAtPurchase.StringFixed(2))
		b.WriteString(justify(qty, it.Subtotal().StringFixed(2)) + "\n")
	}

	b.WriteString(sep + "\n")
	b.WriteString(justify("TOTAL R$", order.TotalAmount.StringFixed(2)) + "\n")
	b.WriteString("Pagamento: " + paymentLabel(order.PaymentMethod) + "\n")
	return b.String()
}

func paymentLabel(method string) string {
	if l, ok := paymentLabels[method]; ok {
		return l
	}
	if method == "" {
		return "-"
	}
	return method
}

func center(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= couponWidth {
		return s
	}
	return strings.Repeat(" ", (couponWidth-n)/2) + s
}

// justify alinea left a la izquierda y right a la derecha dentro del ancho del cupón.
func justify(left, right string) string {
	gap := couponWidth - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
