package domain

// ChatSession agrupa los mensajes de una conversacion. Los mensajes solo se agregan.
type ChatSession struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Title       string        `json:"title"`
	LastMessage string        `json:"last_message"`
	Timestamp   int64         `json:"timestamp"`
	Messages    []ChatMessage `json:"messages"`
}

// Clone devuelve una copia con su propio slice de mensajes.
func (s ChatSession) Clone() ChatSession {
	out := s
	out.Messages = make([]ChatMessage, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}
