// Package audit records security-relevant events (authentication decisions,
// user management mutations, session sweeps) as an append-only JSON-lines
// trail.
//
// The Logger interface deliberately has no error return on Log: an audit
// trail must never fail the operation it describes. FileLogger reports
// write failures to stderr and keeps going; NopLogger discards everything
// for tests and deployments that do not want a trail.
package audit
