package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FormField aceita tanto string quanto número no JSON, preservando o texto cru
type FormField string

// UnmarshalJSON converte números, strings e null para o texto cru do campo
func (f *FormField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FormField(s)
		return nil
	}
	// Números, booleanos etc. ficam como texto e são coeridos depois
	*f = FormField(strings.TrimSpace(string(data)))
	return nil
}

// EstimateForm representa o formulário de estimativa como chega da UI
type EstimateForm struct {
	Length       FormField `json:"length"`
	Width        FormField `json:"width"`
	Floors       FormField `json:"floors"`
	City         FormField `json:"city"`
	HouseType    FormField `json:"house_type"`
	RateOverride FormField `json:"rate_override"`
}

// CommandRequest representa um comando em texto livre (transcrição de voz ou digitado)
type CommandRequest struct {
	Text string `json:"text" binding:"required"`
}

// CredentialsRequest representa o payload de signup/login
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
