// Package report renders the prediction report PDF into an in-memory
// buffer. The layout is fixed: title, highlighted prediction, then one
// labeled row per input field.
package report

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// rawPredictionKey is the transient key used to pass the label into the
// record before logging; it never appears in the rendered report.
const rawPredictionKey = "prediccion_ml"

var titleCaser = cases.Title(language.Spanish)

// Field is one input field in display order.
type Field struct {
	Key   string
	Value string
}

// Render produces the report PDF. Empty field values render as empty
// cells, never as an error.
func Render(fields []Field, prediction string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("Informe de Predicción del Modelo"), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(220, 220, 255)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr("PREDICCIÓN: "+prediction), "1", 1, "C", true, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, tr("Datos del Equipo Registrado:"), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 10)
	for _, f := range fields {
		if f.Key == rawPredictionKey {
			continue
		}
		pdf.CellFormat(50, 7, tr(humanize(f.Key)+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(f.Value), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "report: render pdf")
	}
	return buf.Bytes(), nil
}

// humanize turns a snake_case field key into a display label.
func humanize(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}
