package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

const (
	currencySymbol = "₹"
	emptyCity      = "—"
)

// Rótulos e cores do gráfico de detalhamento, na ordem das parcelas
var (
	ChartLabels = []string{"Materials", "Labor", "Professional", "Contingency"}
	chartColors = []string{"#60a5fa", "#34d399", "#f59e0b", "#f87171"}
)

// ChartData é o payload do gráfico de pizza do detalhamento
type ChartData struct {
	Type   string   `json:"type"`
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
	Colors []string `json:"colors"`
}

// Summary é o resumo textual de uma estimativa
type Summary struct {
	Plot    string `json:"plot"`
	BuiltUp string `json:"built_up"`
	City    string `json:"city"`
	Range   string `json:"range"`
	Average string `json:"average"`
}

// QuoteItem é uma linha da lista de quotes salvas
type QuoteItem struct {
	Index     int       `json:"index"`
	Average   string    `json:"average"`
	Timestamp time.Time `json:"timestamp"`
}

// Rendering agrupa todas as representações de uma estimativa para a UI
type Rendering struct {
	Estimate model.Estimate `json:"estimate"`
	Summary  Summary        `json:"summary"`
	Chart    ChartData      `json:"chart"`
	Speech   string         `json:"speech"`
}

// FormatINR formata um valor como rupias com agrupamento indiano (₹16,02,700)
func FormatINR(amount int64) string {
	return formatINRDecimal(decimal.NewFromInt(amount))
}

func formatINRDecimal(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + currencySymbol + groupIndian(d.StringFixed(0))
}

// groupIndian agrupa os últimos três dígitos e depois de dois em dois
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}

	return strings.Join(groups, ",") + "," + tail
}

// Speech é o texto falado após cada estimativa
func Speech(e model.Estimate) string {
	return fmt.Sprintf("Estimated cost range is %d to %d rupees. Average %d rupees.", e.MinTotal, e.MaxTotal, e.AvgTotal)
}

// Chart monta o payload do gráfico com as quatro parcelas
func Chart(e model.Estimate) ChartData {
	return ChartData{
		Type:   "pie",
		Labels: append([]string(nil), ChartLabels...),
		Values: []int64{e.Materials, e.Labor, e.Professional, e.Contingency},
		Colors: append([]string(nil), chartColors...),
	}
}

// Summarize monta o resumo textual exibido junto ao resultado
func Summarize(e model.Estimate) Summary {
	return Summary{
		Plot:    fmt.Sprintf("%s m² (%d sq.ft)", formatArea(e.AreaM2), e.AreaFt2),
		BuiltUp: fmt.Sprintf("%d sq.ft — %d floor(s)", e.BuiltUpFt2, e.Floors),
		City:    CityLabel(e.CityName),
		Range:   RangeText(e),
		Average: FormatINR(e.AvgTotal),
	}
}

// RangeText retorna "₹min — ₹max"
func RangeText(e model.Estimate) string {
	return FormatINR(e.MinTotal) + " — " + FormatINR(e.MaxTotal)
}

// CityLabel substitui cidade vazia por travessão
func CityLabel(city string) string {
	if strings.TrimSpace(city) == "" {
		return emptyCity
	}
	return city
}

// Render monta todas as representações de uma estimativa
func Render(e model.Estimate) Rendering {
	return Rendering{
		Estimate: e,
		Summary:  Summarize(e),
		Chart:    Chart(e),
		Speech:   Speech(e),
	}
}

// QuoteItems monta a lista de quotes salvas para exibição
func QuoteItems(quotes []model.Estimate) []QuoteItem {
	items := make([]QuoteItem, 0, len(quotes))
	for i, q := range quotes {
		items = append(items, QuoteItem{
			Index:     i,
			Average:   FormatINR(q.AvgTotal),
			Timestamp: q.Timestamp,
		})
	}
	return items
}

// formatArea imprime a área sem zeros à direita (80, 80.5, 12.3456)
func formatArea(v float64) string {
	return decimal.NewFromFloat(v).String()
}
