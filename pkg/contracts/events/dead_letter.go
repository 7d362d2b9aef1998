package events

import "time"

// Evento publicado no tópico "match_results_dlq" quando um resultado não pôde ser aplicado
type DeadLetter struct {
	Topic    string    `json:"topic"`
	Key      string    `json:"key,omitempty"`
	Payload  string    `json:"payload"` // mensagem original, como recebida
	Stage    string    `json:"stage"`   // decode | apply
	Error    string    `json:"error"`
	Attempts int       `json:"attempts"`
	FailedAt time.Time `json:"failed_at"`
}
