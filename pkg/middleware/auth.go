package middleware

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chatsentry/chatsentry/pkg/audit"
	"github.com/chatsentry/chatsentry/pkg/auth"
	"github.com/chatsentry/chatsentry/pkg/observability"
)

// Denial reasons, used for metrics labels and audit details.
const (
	denialUnauthorized  = "unauthorized"
	denialBanned        = "banned"
	denialPermission    = "insufficient_permissions"
	denialInternalError = "internal_error"
)

const unauthorizedTemplate = `🚫 **Access Denied**

You are not authorized to use this bot.

To request access, send your user ID to your administrator:
` + "`%s`"

const bannedTemplate = `🚫 **Access Denied**

Your account has been suspended from using this bot.

Contact your administrator for more information.`

const insufficientTemplate = `⚠️ **Insufficient Permissions**

You do not have permission to perform this action.

**Your role:** %s
**Your permissions:** %s
**Required permission:** %s

To request additional permissions, contact your administrator.`

const internalErrorMessage = `❌ Internal authentication error. Please contact your administrator.`

// Authenticator is the slice of the auth manager the middleware needs.
type Authenticator interface {
	Authenticate(userID, name, email string) *auth.Session
}

// AuthMiddleware gates every inbound message on authentication and
// authorization before any handler runs.
type AuthMiddleware struct {
	authn   Authenticator
	log     *observability.Logger
	metrics *observability.Metrics
	audit   audit.Logger
}

// AuthMiddlewareConfig carries the middleware's collaborators. Zero-value
// fields fall back to no-op implementations.
type AuthMiddlewareConfig struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Audit   audit.Logger
}

// NewAuthMiddleware creates the auth gate.
func NewAuthMiddleware(authn Authenticator, cfg AuthMiddlewareConfig) *AuthMiddleware {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NopMetrics()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NopLogger{}
	}
	return &AuthMiddleware{
		authn:   authn,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		audit:   cfg.Audit,
	}
}

// ProcessMessage authenticates the sender and checks the required
// permission. It returns (true, "") when the message may proceed, or
// (false, denial) where denial is user-facing text the transport should
// send back. Pass auth.PermissionNone when the action needs no specific
// permission.
//
// The method never panics: any internal fault is converted into a generic
// denial (fail closed).
func (m *AuthMiddleware) ProcessMessage(identity auth.Identity, required auth.Permission) (authorized bool, denial string) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WithField("panic", r).Error("auth middleware panic, denying message")
			m.metrics.AuthDenialsTotal.WithLabelValues(denialInternalError).Inc()
			authorized = false
			denial = internalErrorMessage
		}
	}()

	session := m.authn.Authenticate(identity.UserID, identity.Name, identity.Email)
	if session == nil {
		m.deny(identity, denialUnauthorized, required)
		return false, fmt.Sprintf(unauthorizedTemplate, identity.UserID)
	}

	// Authenticate already filters banned users; this covers a role change
	// racing a dispatch that is past authentication.
	if session.Role == auth.RoleBanned {
		m.deny(identity, denialBanned, required)
		return false, bannedTemplate
	}

	if required != auth.PermissionNone && !session.HasPermission(required) {
		m.deny(identity, denialPermission, required)
		return false, fmt.Sprintf(insufficientTemplate, session.Role, DescribePermissions(session.Permissions), required)
	}

	m.log.WithFields(map[string]interface{}{
		"user_id": identity.UserID,
		"role":    string(session.Role),
	}).Debug("message authorized")
	return true, ""
}

// deny records a denial: one log line, one counter bump, one audit event.
// Denials are the common path and must stay cheap.
func (m *AuthMiddleware) deny(identity auth.Identity, reason string, required auth.Permission) {
	m.metrics.AuthDenialsTotal.WithLabelValues(reason).Inc()
	m.log.WithFields(map[string]interface{}{
		"user_id": identity.UserID,
		"reason":  reason,
	}).Warn("message denied")

	event := audit.NewEvent(audit.EventTypeAuthDenied, audit.StatusDenied).
		WithActor(identity.UserID, identity.Name).
		WithDetail("reason", reason)
	if required != auth.PermissionNone {
		event = event.WithDetail("required_permission", string(required))
	}
	m.audit.Log(event)
}

// DescribePermissions renders a permission set for user-facing messages.
func DescribePermissions(perms map[auth.Permission]bool) string {
	if len(perms) == 0 {
		return "none"
	}
	names := make([]string, 0, len(perms))
	for p := range perms {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
