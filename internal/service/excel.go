package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

const (
	estimateSheet = "BrickRate Estimate"
	quotesSheet   = "Saved Quotes"
	reportFooter  = "Generated by BrickRate"

	// XLSXContentType é o content-type dos documentos gerados
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Document é um arquivo gerado pronto para download
type Document struct {
	Filename string
	Content  *bytes.Buffer
}

// ReportGenerator gera os documentos XLSX de estimativa e de quotes salvas
type ReportGenerator struct {
	now func() time.Time
}

// NewReportGenerator cria um novo gerador de documentos
func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{now: time.Now}
}

// EstimateFilename retorna BrickRate_Estimate_<YYYY-MM-DDTHH:MM:SS>.xlsx (UTC)
func EstimateFilename(t time.Time) string {
	return fmt.Sprintf("BrickRate_Estimate_%s.xlsx", t.UTC().Format("2006-01-02T15:04:05"))
}

// Estimate gera o documento de uma estimativa
func (g *ReportGenerator) Estimate(e model.Estimate) (*Document, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), estimateSheet); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}

	titleStyle, err := g.titleStyle(f)
	if err != nil {
		return nil, fmt.Errorf("criar estilo: %w", err)
	}
	labelStyle, err := g.labelStyle(f)
	if err != nil {
		return nil, fmt.Errorf("criar estilo: %w", err)
	}

	rows := [][]interface{}{
		{"BrickRate Estimate"},
		{"City", CityLabel(e.CityName)},
		{"Plot Area", fmt.Sprintf("%s m² (%d sq.ft)", formatArea(e.AreaM2), e.AreaFt2)},
		{"Built-up (est)", fmt.Sprintf("%d sq.ft — %d floor(s)", e.BuiltUpFt2, e.Floors)},
		{"House Type", string(e.HouseType)},
		{"Estimated Range", RangeText(e)},
		{"Average", FormatINR(e.AvgTotal)},
		{},
		{"Breakdown"},
		{"Materials", FormatINR(e.Materials)},
		{"Labor", FormatINR(e.Labor)},
		{"Professional", FormatINR(e.Professional)},
		{"Contingency", FormatINR(e.Contingency)},
		{"Breakdown Total", FormatINR(e.BreakdownTotal())},
		{},
		{reportFooter},
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(estimateSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("escrever linha %d: %w", i+1, err)
		}
		style := labelStyle
		if i == 0 || row[0] == "Breakdown" {
			style = titleStyle
		}
		if err := f.SetCellStyle(estimateSheet, cell, cell, style); err != nil {
			return nil, fmt.Errorf("aplicar estilo: %w", err)
		}
	}

	if err := f.SetColWidth(estimateSheet, "A", "A", 22); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}
	if err := f.SetColWidth(estimateSheet, "B", "B", 40); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}

	return &Document{Filename: EstimateFilename(g.now()), Content: buf}, nil
}

// Quotes gera uma planilha com todas as quotes salvas, uma por linha
func (g *ReportGenerator) Quotes(quotes []model.Estimate) (*Document, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), quotesSheet); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}

	headers := []string{
		"#", "Timestamp", "City", "House Type", "Plot (m²)", "Plot (sq.ft)", "Built-up (sq.ft)", "Floors",
		"Base Rate", "Min", "Max", "Average", "Materials", "Labor", "Professional", "Contingency",
	}
	if err := g.writeHeaders(f, headers); err != nil {
		return nil, fmt.Errorf("escrever headers: %w", err)
	}
	if err := g.writeQuotes(f, quotes); err != nil {
		return nil, fmt.Errorf("escrever dados: %w", err)
	}
	if err := g.autoFitColumns(f, len(headers)); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}

	name := fmt.Sprintf("BrickRate_Quotes_%s.xlsx", g.now().UTC().Format("2006-01-02T15:04:05"))
	return &Document{Filename: name, Content: buf}, nil
}

func (g *ReportGenerator) titleStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
}

func (g *ReportGenerator) labelStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
	})
}

// writeHeaders escreve os cabeçalhos no Excel
func (g *ReportGenerator) writeHeaders(f *excelize.File, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(quotesSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(quotesSheet, cell, cell, style); err != nil {
			return err
		}
	}

	return nil
}

// writeQuotes escreve uma quote por linha com zebra
func (g *ReportGenerator) writeQuotes(f *excelize.File, quotes []model.Estimate) error {
	border := []excelize.Border{
		{Type: "left", Color: "D9D9D9", Style: 1},
		{Type: "top", Color: "D9D9D9", Style: 1},
		{Type: "bottom", Color: "D9D9D9", Style: 1},
		{Type: "right", Color: "D9D9D9", Style: 1},
	}
	styleOdd, _ := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Border: border,
	})
	styleEven, _ := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFFFFF"}, Pattern: 1},
		Border: border,
	})

	for i, q := range quotes {
		excelRow := i + 2 // Linha 1 é header

		values := []interface{}{
			i, q.Timestamp.UTC().Format(time.RFC3339), CityLabel(q.CityName), string(q.HouseType),
			q.AreaM2, q.AreaFt2, q.BuiltUpFt2, q.Floors, q.BaseRate,
			q.MinTotal, q.MaxTotal, q.AvgTotal, q.Materials, q.Labor, q.Professional, q.Contingency,
		}

		start, _ := excelize.CoordinatesToCellName(1, excelRow)
		end, _ := excelize.CoordinatesToCellName(len(values), excelRow)
		if err := f.SetSheetRow(quotesSheet, start, &values); err != nil {
			return err
		}

		style := styleEven
		if i%2 == 1 {
			style = styleOdd
		}
		if err := f.SetCellStyle(quotesSheet, start, end, style); err != nil {
			return err
		}
	}

	return nil
}

// autoFitColumns ajusta a largura das colunas
func (g *ReportGenerator) autoFitColumns(f *excelize.File, numCols int) error {
	for col := 1; col <= numCols; col++ {
		colName, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(quotesSheet, colName, colName, 16); err != nil {
			return err
		}
	}
	return nil
}
