package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

// RequestFromForm converte o formulário cru em EstimateRequest.
// Campos ausentes ou não numéricos viram 0 (andares viram 1); nunca falha.
func RequestFromForm(form model.EstimateForm) model.EstimateRequest {
	req := model.EstimateRequest{
		LengthM:   parseNumber(string(form.Length)),
		WidthM:    parseNumber(string(form.Width)),
		Floors:    parseFloors(string(form.Floors)),
		CityName:  strings.TrimSpace(string(form.City)),
		HouseType: model.HouseType(strings.ToLower(strings.TrimSpace(string(form.HouseType)))),
	}

	if rate := parseNumber(string(form.RateOverride)); rate != 0 {
		req.OverrideRate = &rate
	}

	return req
}

// parseNumber interpreta um campo numérico; inválido vira 0
func parseNumber(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseFloors(raw string) int {
	return clampFloors(parseNumber(raw))
}

// clampFloors garante pelo menos um andar; frações são truncadas
func clampFloors(v float64) int {
	if v < 1 {
		return 1
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
