package service

import (
	"strings"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

// Tier é a faixa de custo de uma cidade
type Tier string

const (
	TierMetro Tier = "metro"
	TierTier2 Tier = "tier2"
	TierTier3 Tier = "tier3"
)

// RateBand é o intervalo de custo por pé quadrado de um tier
type RateBand struct {
	Tier Tier    `json:"tier"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// CostSplit divide o custo médio em quatro parcelas que somam 1.0
type CostSplit struct {
	Materials    float64
	Labor        float64
	Professional float64
	Contingency  float64
}

var cityRates = map[Tier]RateBand{
	TierMetro: {Tier: TierMetro, Min: 2200, Max: 4000},
	TierTier2: {Tier: TierTier2, Min: 1400, Max: 2600},
	TierTier3: {Tier: TierTier3, Min: 1000, Max: 1800},
}

var (
	metroCities = []string{"mumbai", "delhi", "bangalore", "chennai", "kolkata"}
	tier2Cities = []string{"pune", "jaipur", "coimbatore", "lucknow"}
)

var houseTypeFactors = map[model.HouseType]float64{
	model.HouseType1BHK:  0.95,
	model.HouseType2BHK:  1.0,
	model.HouseTypeKothi: 1.15,
}

// DefaultSplit é a divisão fixa materiais/mão de obra/honorários/contingência
var DefaultSplit = CostSplit{
	Materials:    0.55,
	Labor:        0.30,
	Professional: 0.08,
	Contingency:  0.07,
}

// Band retorna a faixa de um tier
func Band(t Tier) RateBand {
	return cityRates[t]
}

// Classify resolve a faixa de custo pelo nome da cidade.
// Nome vazio ou desconhecido cai em tier3; o fallback para tier2 é do chamador.
func Classify(cityName string) RateBand {
	n := strings.ToLower(cityName)
	if n != "" {
		if containsAny(n, metroCities) {
			return Band(TierMetro)
		}
		if containsAny(n, tier2Cities) {
			return Band(TierTier2)
		}
	}
	return Band(TierTier3)
}

// TypeFactor retorna o multiplicador do tipo de casa (1.0 para desconhecidos)
func TypeFactor(h model.HouseType) float64 {
	if f, ok := houseTypeFactors[h]; ok {
		return f
	}
	return 1.0
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
