package bot

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chatsentry/chatsentry/pkg/auth"
)

const backendUnavailableMessage = `⚠️ The answer service is currently unavailable. Please try again later.`

// QueryHandler forwards free-text questions to the external answer
// backend. It skips command-shaped text so the admin handler can claim
// it, and skips empty text.
type QueryHandler struct {
	backend Backend
	log     *logrus.Logger
}

func NewQueryHandler(backend Backend, log *logrus.Logger) *QueryHandler {
	if log == nil {
		log = logrus.New()
	}
	return &QueryHandler{backend: backend, log: log}
}

func (h *QueryHandler) Name() string { return "query" }

func (h *QueryHandler) RequiredPermission() auth.Permission { return auth.PermissionUseQuery }

func (h *QueryHandler) CanHandle(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && !strings.HasPrefix(trimmed, "/")
}

func (h *QueryHandler) Handle(ctx context.Context, msg *Message, _ *auth.Session) (string, error) {
	question := strings.TrimSpace(msg.Text)

	answer, err := h.backend.Answer(ctx, msg.UserID, question)
	if err != nil {
		h.log.WithError(err).WithField("user_id", msg.UserID).Error("backend query failed")
		return backendUnavailableMessage, nil
	}
	return answer, nil
}
