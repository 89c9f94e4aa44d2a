// Package bot routes inbound chat messages to handlers behind the auth
// gate.
//
// # Pipeline
//
// Every message flows through a fixed, explicit pipeline: duplicate
// delivery check, optional rate limit, handler selection, auth middleware,
// handler. Handlers only ever see pre-authorized messages; there is no
// decorator-style wrapping.
//
//	router := bot.NewRouter(gate, manager, bot.RouterConfig{...})
//	router.Register(bot.NewAdminHandler(manager, "/admin", log))
//	router.Register(bot.NewQueryHandler(backend, log))
//	router.Register(bot.NewEchoHandler(log))
//	reply := router.Dispatch(ctx, msg)
//
// Handler registration order is precedence order: the first handler whose
// CanHandle accepts the text wins.
//
// # Handlers
//
// AdminHandler implements the privileged command grammar
// ("/admin status|users|add|remove|role|metrics|export|help").
// QueryHandler forwards free text to the external answer backend.
// EchoHandler is the catch-all fallback for guests and for deployments
// without a backend.
//
// The router returns the reply text to its caller; sending it back over
// the chat transport is the caller's job.
package bot
