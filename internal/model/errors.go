package model

import "errors"

var (
	// ErrQuoteNotFound indica índice de quote fora do intervalo
	ErrQuoteNotFound = errors.New("quote não encontrada")

	// ErrNotLoggedIn indica tentativa de salvar sem sessão ativa
	ErrNotLoggedIn = errors.New("faça login para salvar quotes")

	// ErrNoEstimate indica que nenhuma estimativa foi calculada ainda
	ErrNoEstimate = errors.New("execute uma estimativa primeiro")

	// ErrInvalidCredentials indica email ou senha inválidos
	ErrInvalidCredentials = errors.New("credenciais inválidas")

	// ErrUserAlreadyExists indica email já cadastrado
	ErrUserAlreadyExists = errors.New("email já cadastrado")

	// ErrSessionNotFound indica sessão inexistente ou expirada
	ErrSessionNotFound = errors.New("sessão não encontrada ou expirada")

	// ErrDeliveryNotFound indica entrega de webhook desconhecida (ou de outro cliente)
	ErrDeliveryNotFound = errors.New("entrega não encontrada")

	// ErrQueueFull indica fila de entregas cheia
	ErrQueueFull = errors.New("fila de entregas cheia")

	// ErrLoginRequired indica operação disponível só para usuários logados
	ErrLoginRequired = errors.New("login obrigatório")

	// ErrWebhookTarget indica webhook apontando para endereço interno
	ErrWebhookTarget = errors.New("destino de webhook não permitido")
)
