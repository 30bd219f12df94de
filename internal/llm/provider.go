package llm

import "context"

// Message es un turno enviado al endpoint de completions.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FragmentStream entrega fragmentos de texto en orden de llegada.
// Next devuelve io.EOF cuando la fuente se agota.
type FragmentStream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Completer abre un stream de completion para un historial de mensajes.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (FragmentStream, error)
}
