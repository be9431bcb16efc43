package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

func TestEstimateFilename(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("IST", 5*3600+1800))
	got := EstimateFilename(ts)
	want := "BrickRate_Estimate_2024-03-09T08:35:07.xlsx"
	if got != want {
		t.Errorf("EstimateFilename = %q, want %q", got, want)
	}
}

func TestReportEstimateDocument(t *testing.T) {
	g := NewReportGenerator()
	g.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	est := fixedEstimator().Estimate(model.EstimateRequest{
		LengthM: 10, WidthM: 8, Floors: 1, CityName: "Mumbai", HouseType: model.HouseType2BHK,
	})

	doc, err := g.Estimate(est)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if doc.Filename != "BrickRate_Estimate_2024-01-01T00:00:00.xlsx" {
		t.Errorf("Filename = %q", doc.Filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(doc.Content.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(estimateSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}

	var text []string
	for _, row := range rows {
		text = append(text, strings.Join(row, "|"))
	}
	joined := strings.Join(text, "\n")

	for _, want := range []string{
		"BrickRate Estimate",
		"City|Mumbai",
		"Estimated Range|₹11,37,400 — ₹20,68,000",
		"Average|₹16,02,700",
		"Breakdown",
		"Materials|₹8,81,485",
		"Breakdown Total|₹16,02,700",
		"Generated by BrickRate",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("document missing %q\n%s", want, joined)
		}
	}
}

func TestReportQuotesDocument(t *testing.T) {
	g := NewReportGenerator()
	quotes := []model.Estimate{
		{CityName: "Pune", AvgTotal: 100, Timestamp: time.Now()},
		{CityName: "", AvgTotal: 200, Timestamp: time.Now()},
	}

	doc, err := g.Quotes(quotes)
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if !strings.HasPrefix(doc.Filename, "BrickRate_Quotes_") {
		t.Errorf("Filename = %q", doc.Filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(doc.Content.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(quotesSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "#" || rows[0][2] != "City" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "Pune" {
		t.Errorf("first row city = %q, want Pune", rows[1][2])
	}
}

func TestReportQuotesEmpty(t *testing.T) {
	doc, err := NewReportGenerator().Quotes(nil)
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if doc.Content.Len() == 0 {
		t.Error("expected a valid workbook even with no quotes")
	}
}
