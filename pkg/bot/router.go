package bot

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/chatsentry/chatsentry/pkg/auth"
	"github.com/chatsentry/chatsentry/pkg/middleware"
	"github.com/chatsentry/chatsentry/pkg/observability"
)

const rateLimitedMessage = `⏳ You are sending messages too quickly. Please wait a moment and try again.`

const handlerErrorMessage = `❌ Something went wrong processing your message. Please try again later.`

// SessionSource exposes live sessions to the router so handlers receive
// the sender's post-gate session.
type SessionSource interface {
	GetSession(userID string) (*auth.Session, bool)
}

// RouterConfig carries the router's optional collaborators.
type RouterConfig struct {
	Logger  *logrus.Logger
	Metrics *observability.Metrics

	// Limiter, when set, is consulted before the auth gate.
	Limiter *middleware.RateLimiter

	// DedupeSize and DedupeTTL bound the duplicate-delivery cache.
	// Defaults: 4096 entries, 5 minutes.
	DedupeSize int
	DedupeTTL  time.Duration
}

// Router dispatches inbound messages through the processing pipeline:
// dedupe, rate limit, handler selection, auth gate, handler.
type Router struct {
	mu       sync.RWMutex
	handlers []Handler

	gate     *middleware.AuthMiddleware
	sessions SessionSource
	limiter  *middleware.RateLimiter
	dedupe   *lru.LRU[string, struct{}]
	log      *logrus.Logger
	metrics  *observability.Metrics
}

// NewRouter creates a router. Register handlers in precedence order.
func NewRouter(gate *middleware.AuthMiddleware, sessions SessionSource, cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NopMetrics()
	}
	if cfg.DedupeSize <= 0 {
		cfg.DedupeSize = 4096
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 5 * time.Minute
	}

	return &Router{
		gate:     gate,
		sessions: sessions,
		limiter:  cfg.Limiter,
		dedupe:   lru.NewLRU[string, struct{}](cfg.DedupeSize, nil, cfg.DedupeTTL),
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Register appends a handler. The first registered handler whose
// CanHandle accepts a message's text processes it.
func (r *Router) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
	r.log.WithField("handler", h.Name()).Info("registered message handler")
}

// Dispatch runs one message through the pipeline and returns the reply
// text. An empty reply means nothing should be sent (duplicate delivery or
// no matching handler).
func (r *Router) Dispatch(ctx context.Context, msg *Message) string {
	if msg.ActivityID != "" {
		if _, seen := r.dedupe.Get(msg.ActivityID); seen {
			r.metrics.DuplicateDropsTotal.Inc()
			r.log.WithField("activity_id", msg.ActivityID).Debug("dropped duplicate delivery")
			return ""
		}
		r.dedupe.Add(msg.ActivityID, struct{}{})
	}

	if r.limiter != nil {
		allowed, err := r.limiter.Allow(ctx, msg.UserID)
		if err != nil {
			r.log.WithError(err).Warn("rate limiter unavailable, allowing message")
		}
		if !allowed {
			r.metrics.RateLimitedTotal.Inc()
			return rateLimitedMessage
		}
	}

	handler := r.pick(msg.Text)
	if handler == nil {
		r.log.WithField("user_id", msg.UserID).Debug("no handler for message")
		return ""
	}

	authorized, denial := r.gate.ProcessMessage(msg.Identity(), handler.RequiredPermission())
	if !authorized {
		r.metrics.MessagesTotal.WithLabelValues(handler.Name(), "denied").Inc()
		return denial
	}

	session, _ := r.sessions.GetSession(msg.UserID)

	start := time.Now()
	reply, err := handler.Handle(ctx, msg, session)
	r.metrics.HandlerDuration.WithLabelValues(handler.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.MessagesTotal.WithLabelValues(handler.Name(), "error").Inc()
		r.log.WithError(err).WithFields(logrus.Fields{
			"handler": handler.Name(),
			"user_id": msg.UserID,
		}).Error("handler failed")
		return handlerErrorMessage
	}

	r.metrics.MessagesTotal.WithLabelValues(handler.Name(), "ok").Inc()
	return reply
}

func (r *Router) pick(text string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		if h.CanHandle(text) {
			return h
		}
	}
	return nil
}
