package model

import "errors"

var (
	// Validação
	ErrInvalidPrediction = errors.New("invalid prediction")
	ErrInvalidResult     = errors.New("invalid match result")
	ErrInvalidScope      = errors.New("invalid scope")

	// Bloqueio
	ErrMatchLocked      = errors.New("match is locked for predictions")
	ErrPredictionLocked = errors.New("prediction is locked")

	// Não encontrados / permissão
	ErrMatchNotFound      = errors.New("match not found")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrForbidden          = errors.New("operation not allowed for the current user")
)
