// Package pdf genera el PDF de reimpresión de cupones fiscales (SAT, ECF y simulados).
//
// Layout en papel térmico de 80 mm:
//
//	┌──────────────────────────┐
//	│  TIPO + N° documento     │
//	│  ──────────────────────  │
//	│  texto del cupón, una    │
//	│  fila por línea          │
//	│  ──────────────────────  │
//	│  leyenda de reimpresión  │
//	└──────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
)

// ── Dimensiones ───────────────────────────────────────────────────────────────

const (
	paperWidthMM = 80
	lineHeightMM = 4
	// Cupones largos (muchos ítems) crecen hacia abajo; maroto agrega páginas si hace falta.
	paperHeightMM = 297
)

var colorGray = &props.Color{Red: 100, Green: 100, Blue: 100}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoCouponGenerator implementa fiscal.CouponRenderer usando Maroto v2.
type MarotoCouponGenerator struct{}

// NewMarotoCouponGenerator construye el generador.
func NewMarotoCouponGenerator() *MarotoCouponGenerator { return &MarotoCouponGenerator{} }

// RenderCoupon genera el PDF de un contenido de texto y devuelve sus bytes.
func (g *MarotoCouponGenerator) RenderCoupon(_ context.Context, content *entity.PrintableContent) ([]byte, error) {
	if content == nil || content.Kind != entity.PrintableText {
		return nil, fmt.Errorf("pdf: solo se renderiza contenido de texto")
	}

	cfg := config.NewBuilder().
		WithDimensions(paperWidthMM, paperHeightMM).
		WithLeftMargin(4).WithRightMargin(4).
		WithTopMargin(4).WithBottomMargin(4).
		WithDefaultFont(&props.Font{Family: "courier", Size: 7}).
		WithTitle("Reimpresión "+strings.ToUpper(string(content.DocumentType)), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(content))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.2}))
	m.AddRows(bodyRows(content.Text)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.2}))
	m.AddRows(footerRow(content))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(content *entity.PrintableContent) core.Row {
	number := content.InvoiceNumber
	if number == "" {
		number = content.DocumentID
	}
	return row.New(10).Add(
		col.New(12).Add(
			text.New(strings.ToUpper(string(content.DocumentType)), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Center, Top: 1,
			}),
			text.New("N° "+number, props.Text{
				Size: 7, Align: align.Center, Top: 6, Color: colorGray,
			}),
		),
	)
}

// bodyRows: una fila por línea del cupón; las líneas vacías se conservan como separación.
func bodyRows(body string) []core.Row {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	rows := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			rows = append(rows, row.New(lineHeightMM/2))
			continue
		}
		rows = append(rows, row.New(lineHeightMM).Add(
			col.New(12).Add(text.New(l, props.Text{Size: 7, Align: align.Left})),
		))
	}
	return rows
}

func footerRow(content *entity.PrintableContent) core.Row {
	legend := "REIMPRESIÓN - SEGUNDA VÍA"
	if content.Regenerated {
		legend = "REIMPRESIÓN RECONSTRUIDA DESDE EL PEDIDO"
	}
	return row.New(8).Add(col.New(12).Add(
		text.New(legend, props.Text{Style: fontstyle.Bold, Size: 6, Align: align.Center, Top: 2, Color: colorGray}),
	))
}
