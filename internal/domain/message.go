package domain

// Roles admitidos en una conversacion.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage es un turno de la conversacion. Timestamp en epoch millis.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	SessionID string `json:"session_id"`
}
