package bot

import (
	"context"

	"github.com/chatsentry/chatsentry/pkg/auth"
)

// Message is the inbound event shape the chat transport delivers.
type Message struct {
	// ActivityID is the platform's delivery id, used to drop duplicate
	// deliveries. Optional; empty disables deduplication for this message.
	ActivityID string `json:"activity_id,omitempty"`
	UserID     string `json:"user_id"`
	Name       string `json:"display_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Text       string `json:"text"`
}

// Identity extracts the auth identity tuple from the message.
func (m *Message) Identity() auth.Identity {
	return auth.Identity{UserID: m.UserID, Name: m.Name, Email: m.Email}
}

// Handler processes one category of message. Handlers receive only
// messages that already passed the auth gate for their required
// permission.
type Handler interface {
	// Name identifies the handler in logs and metrics.
	Name() string
	// CanHandle reports whether this handler wants the message text.
	CanHandle(text string) bool
	// RequiredPermission is checked by the router's auth gate before
	// Handle runs. Return auth.PermissionNone for open handlers.
	RequiredPermission() auth.Permission
	// Handle produces the reply text. The session is the sender's live,
	// post-gate session.
	Handle(ctx context.Context, msg *Message, session *auth.Session) (string, error)
}

// Backend answers authorized free-text questions. The actual answering
// system (search, RAG, whatever sits behind it) is external to this
// service.
type Backend interface {
	Answer(ctx context.Context, userID, question string) (string, error)
}
