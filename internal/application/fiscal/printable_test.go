package fiscal_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/farmacia-fiscal-api/internal/application/fiscal"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
)

func TestRenderCouponText_Determinista(t *testing.T) {
	a := fiscal.RenderCouponText("Farmácia Central", entity.DocumentTypeSAT, "000123", sampleOrder())
	b := fiscal.RenderCouponText("Farmácia Central", entity.DocumentTypeSAT, "000123", sampleOrder())
	assert.Equal(t, a, b)
}

func TestRenderCouponText_Contenido(t *testing.T) {
	text := fiscal.RenderCouponText("Farmácia Central", entity.DocumentTypeSAT, "000123", sampleOrder())

	for _, want := range []string{
		"FARMÁCIA CENTRAL", "CUPOM FISCAL ELETRONICO SAT", "No: 000123", "Pedido: ord-1",
		"CPF/CNPJ: 12345678909", "Dipirona 500mg", "2 x 12.50", "25.00", "70.90", "Pagamento: PIX",
	} {
		assert.Contains(t, text, want)
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 40, line)
	}
}

func TestRenderCouponText_SinNombreDeTienda(t *testing.T) {
	text := fiscal.RenderCouponText("", entity.DocumentTypeSimulated, "", sampleOrder())
	assert.Contains(t, text, "FARMACIA")
	assert.Contains(t, text, "SEM VALOR FISCAL")
	assert.NotContains(t, text, "No:")
}
