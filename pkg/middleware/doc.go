// Package middleware provides the message-processing gates that run before
// any handler: authentication/authorization and rate limiting.
//
// # Auth middleware
//
// AuthMiddleware is the synchronous gate every inbound message passes
// through. It authenticates the sender, re-checks the banned role, verifies
// the required permission, and converts every denial into user-facing text:
//
//	authorized, denial := mw.ProcessMessage(identity, auth.PermissionAdminCommands)
//	if !authorized {
//	    reply(denial)
//	    return
//	}
//
// The middleware fails closed: an internal panic is recovered and converted
// into a generic denial rather than propagated to the transport.
//
// # Rate limiting
//
// RateLimiter is an optional Redis-backed per-user message window shared
// across instances. It fails open on Redis errors so a cache outage never
// takes the bot down.
package middleware
