package bot

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chatsentry/chatsentry/pkg/auth"
)

// EchoHandler is the catch-all fallback: it accepts any text and echoes
// it back. Guests land here, and so do deployments running without an
// answer backend.
type EchoHandler struct {
	log *logrus.Logger
}

func NewEchoHandler(log *logrus.Logger) *EchoHandler {
	if log == nil {
		log = logrus.New()
	}
	return &EchoHandler{log: log}
}

func (h *EchoHandler) Name() string { return "echo" }

func (h *EchoHandler) RequiredPermission() auth.Permission { return auth.PermissionUseEcho }

// CanHandle accepts everything; register EchoHandler last.
func (h *EchoHandler) CanHandle(string) bool { return true }

func (h *EchoHandler) Handle(_ context.Context, msg *Message, session *auth.Session) (string, error) {
	name := msg.Name
	if session != nil && session.Name != "" {
		name = session.Name
	}
	h.log.WithField("user_id", msg.UserID).Debug("echoing message")
	return fmt.Sprintf("🔁 %s, you said: %s", name, msg.Text), nil
}
