package service

import (
	"math"
	"time"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

const (
	// SqmToSqft converte metros quadrados em pés quadrados
	SqmToSqft = 10.7639

	// BuiltUpRatio é a fração do terreno considerada área construída por andar
	BuiltUpRatio = 0.6
)

// Estimator calcula estimativas de custo de construção.
// Nunca falha: entradas inválidas degradam para valores padrão.
type Estimator struct {
	split CostSplit
	now   func() time.Time
}

// NewEstimator cria um novo motor de estimativa
func NewEstimator() *Estimator {
	return &Estimator{
		split: DefaultSplit,
		now:   time.Now,
	}
}

// RateBandFor escolhe a faixa usada no cálculo: override, tier2 para cidade
// vazia, ou a classificação da cidade
func RateBandFor(req model.EstimateRequest) RateBand {
	if rate, ok := overrideRate(req); ok {
		return RateBand{Min: rate, Max: rate}
	}
	if req.CityName == "" {
		return Band(TierTier2)
	}
	return Classify(req.CityName)
}

// Estimate transforma um request em estimativa com detalhamento
func (e *Estimator) Estimate(req model.EstimateRequest) model.Estimate {
	length := nonNegative(req.LengthM)
	width := nonNegative(req.WidthM)
	floors := req.Floors
	if floors < 1 {
		floors = 1
	}

	areaM2 := round4(length * width)
	areaFt2 := roundHalfUp(areaM2 * SqmToSqft)
	builtUp := roundHalfUp(float64(areaFt2) * BuiltUpRatio * float64(floors))

	band := RateBandFor(req)
	factor := TypeFactor(req.HouseType)

	minTotal := roundHalfUp(float64(builtUp) * band.Min * factor)
	maxTotal := roundHalfUp(float64(builtUp) * band.Max * factor)
	avg := roundHalfUp(float64(minTotal+maxTotal) / 2)

	// Cada parcela é arredondada isoladamente; a soma pode diferir de avg
	return model.Estimate{
		Timestamp:    e.now(),
		AreaM2:       areaM2,
		AreaFt2:      areaFt2,
		BuiltUpFt2:   builtUp,
		Floors:       floors,
		CityName:     req.CityName,
		HouseType:    req.HouseType,
		BaseRate:     band.Min,
		MinTotal:     minTotal,
		MaxTotal:     maxTotal,
		AvgTotal:     avg,
		Materials:    roundHalfUp(float64(avg) * e.split.Materials),
		Labor:        roundHalfUp(float64(avg) * e.split.Labor),
		Professional: roundHalfUp(float64(avg) * e.split.Professional),
		Contingency:  roundHalfUp(float64(avg) * e.split.Contingency),
	}
}

// RequestFromEstimate reconstrói um request aproximado a partir de uma quote.
// Comprimento e largura não são salvos, então ambos viram sqrt(areaM2).
func RequestFromEstimate(q model.Estimate) model.EstimateRequest {
	side := math.Sqrt(q.AreaM2)
	length, width := round2(side), round2(side)
	if side == 0 || math.IsNaN(side) {
		length, width = 10, 8
	}
	return model.EstimateRequest{
		LengthM:   length,
		WidthM:    width,
		Floors:    q.Floors,
		CityName:  q.CityName,
		HouseType: q.HouseType,
	}
}

func overrideRate(req model.EstimateRequest) (float64, bool) {
	if req.OverrideRate == nil {
		return 0, false
	}
	r := *req.OverrideRate
	if r == 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// roundHalfUp reproduz o arredondamento .5 para cima usado nos totais
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
