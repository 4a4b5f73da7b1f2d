package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/bryanwahyu/homeready/internal/domain/report"
)

//go:embed report.html.tmpl
var reportTemplate string

var funcs = template.FuncMap{
	"usd":      report.USD,
	"usdRange": report.USDRange,
	"pct":      report.Percent,
	"pctRange": report.PercentRange,

	"recFigures":       report.RecommendationFigures,
	"grantFigures":     report.GrantFigures,
	"insuranceFigures": report.InsuranceFigures,
}

var tmpl = template.Must(template.New("report").Funcs(funcs).Parse(reportTemplate))

type view struct {
	Brand  string
	Doc    report.Document
	Pages  []report.Page
	Layout report.Layout
	Usable float64
}

// HTML paginates doc for layout and executes the report template.
// Identical inputs produce identical bytes.
func HTML(doc report.Document, layout report.Layout) ([]byte, error) {
	v := view{
		Brand:  report.Brand,
		Doc:    doc,
		Pages:  report.Paginate(doc, layout),
		Layout: layout,
		Usable: layout.Usable(),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}
