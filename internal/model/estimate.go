package model

import "time"

// HouseType identifica o padrão construtivo da casa
type HouseType string

const (
	HouseType1BHK  HouseType = "1bhk"
	HouseType2BHK  HouseType = "2bhk"
	HouseTypeKothi HouseType = "kothi"
)

// EstimateRequest contém os dados de entrada de uma estimativa
type EstimateRequest struct {
	LengthM      float64   `json:"length_m"`
	WidthM       float64   `json:"width_m"`
	Floors       int       `json:"floors"`
	CityName     string    `json:"city_name"`
	HouseType    HouseType `json:"house_type"`
	OverrideRate *float64  `json:"override_rate,omitempty"` // nil = usa a faixa da cidade
}

// Estimate é o resultado do motor de estimativa, persistido como quote
type Estimate struct {
	Timestamp    time.Time `json:"timestamp"`
	AreaM2       float64   `json:"area_m2"`
	AreaFt2      int64     `json:"area_ft2"`
	BuiltUpFt2   int64     `json:"built_up_ft2"`
	Floors       int       `json:"floors"`
	CityName     string    `json:"city_name"`
	HouseType    HouseType `json:"house_type"`
	BaseRate     float64   `json:"base_rate"` // sempre o limite inferior da faixa
	MinTotal     int64     `json:"min_total"`
	MaxTotal     int64     `json:"max_total"`
	AvgTotal     int64     `json:"avg_total"`
	Materials    int64     `json:"materials"`
	Labor        int64     `json:"labor"`
	Professional int64     `json:"professional"`
	Contingency  int64     `json:"contingency"`
}

// BreakdownTotal soma as quatro parcelas do detalhamento
func (e Estimate) BreakdownTotal() int64 {
	return e.Materials + e.Labor + e.Professional + e.Contingency
}
