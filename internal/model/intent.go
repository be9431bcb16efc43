package model

// IntentKind classifica o propósito de um comando em texto livre
type IntentKind string

const (
	IntentEstimate     IntentKind = "estimate"
	IntentSave         IntentKind = "save"
	IntentDownload     IntentKind = "download"
	IntentUnrecognized IntentKind = "unrecognized"
)

// IntentSlots guarda apenas os campos efetivamente extraídos do texto
type IntentSlots struct {
	Length    *float64   `json:"length,omitempty"`
	Width     *float64   `json:"width,omitempty"`
	Floors    *int       `json:"floors,omitempty"`
	HouseType *HouseType `json:"house_type,omitempty"`
	City      *string    `json:"city,omitempty"`
}

// Intent é a saída do interpretador de comandos
type Intent struct {
	Kind    IntentKind       `json:"kind"`
	RawText string           `json:"raw_text"`
	Numbers []float64        `json:"numbers,omitempty"`
	Slots   *IntentSlots     `json:"slots,omitempty"`
	Request *EstimateRequest `json:"request,omitempty"` // só para IntentEstimate
}
