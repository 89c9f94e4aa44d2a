package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chatsentry/chatsentry/pkg/auth"
	"github.com/chatsentry/chatsentry/pkg/bot"
	"github.com/chatsentry/chatsentry/pkg/httputil"
	"github.com/chatsentry/chatsentry/pkg/observability"
)

// maxMessageBody bounds inbound message payloads.
const maxMessageBody = 64 * 1024

// Directory is the slice of the auth manager the API needs.
type Directory interface {
	IsAuthorized(userID string, permission auth.Permission) bool
	Stats() auth.Stats
	ListUsers() []auth.UserInfo
}

// Dispatcher runs one message through the pipeline and returns the
// reply text.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *bot.Message) string
}

// Server represents the application API server
type Server struct {
	router    *mux.Router
	directory Directory
	bot       Dispatcher
	logger    *observability.Logger
}

// NewServer creates a new API server
func NewServer(directory Directory, botRouter Dispatcher, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}
	s := &Server{
		router:    mux.NewRouter(),
		directory: directory,
		bot:       botRouter,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(maxMessageBody),
	)
	s.router.Use(chain)

	s.router.HandleFunc("/v1/messages", s.postMessage).Methods("POST")
	s.router.HandleFunc("/v1/stats", s.getStats).Methods("GET")
	s.router.HandleFunc("/v1/users", s.listUsers).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
