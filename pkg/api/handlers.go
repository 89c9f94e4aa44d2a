package api

import (
	"net/http"

	"github.com/chatsentry/chatsentry/pkg/auth"
	"github.com/chatsentry/chatsentry/pkg/bot"
	"github.com/chatsentry/chatsentry/pkg/httputil"
)

// MessageResponse is the reply envelope for POST /v1/messages. An empty
// reply means the pipeline produced nothing to send (duplicate delivery
// or no matching handler).
type MessageResponse struct {
	Reply string `json:"reply"`
}

// postMessage handles POST /v1/messages
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var msg bot.Message
	if !httputil.ParseJSONOrError(w, r, &msg) {
		return
	}
	if !httputil.RequireNonEmpty(w, msg.UserID, "user_id") {
		return
	}
	if !httputil.RequireNonEmpty(w, msg.Text, "text") {
		return
	}

	reply := s.bot.Dispatch(r.Context(), &msg)
	httputil.WriteSuccess(w, MessageResponse{Reply: reply})
}

// getStats handles GET /v1/stats
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httputil.WriteUnauthorized(w, "X-User-ID header is required")
		return
	}
	if !s.directory.IsAuthorized(userID, auth.PermissionViewMetrics) {
		httputil.WriteForbidden(w, "view_metrics permission required")
		return
	}

	httputil.WriteSuccess(w, s.directory.Stats())
}

// listUsers handles GET /v1/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httputil.WriteUnauthorized(w, "X-User-ID header is required")
		return
	}
	if !s.directory.IsAuthorized(userID, auth.PermissionManageUsers) {
		httputil.WriteForbidden(w, "manage_users permission required")
		return
	}

	httputil.WriteSuccess(w, s.directory.ListUsers())
}
