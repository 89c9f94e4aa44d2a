// Package api exposes the message pipeline and directory administration
// over HTTP.
//
// The main server carries the application surface:
//
//	POST /v1/messages   inbound chat message -> reply
//	GET  /v1/stats      session and role statistics (view_metrics)
//	GET  /v1/users      authorized user listing (manage_users)
//
// Read endpoints authenticate the caller from the X-User-ID header and
// authorize against the directory, the same checks the chat pipeline
// applies. Liveness, readiness and Prometheus metrics live on a separate
// health server wired up in cmd, so the application port can be exposed
// without leaking operational endpoints.
package api
