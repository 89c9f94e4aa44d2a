package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chatsentry/chatsentry/pkg/auth"
	"github.com/chatsentry/chatsentry/pkg/observability"
)

// UserAdmin is the slice of the auth manager the admin handler needs.
type UserAdmin interface {
	AddUser(ctx context.Context, userID, name, email string, role auth.Role, actor auth.Actor) error
	RemoveUser(ctx context.Context, userID string, actor auth.Actor) error
	UpdateRole(ctx context.Context, userID string, newRole auth.Role, actor auth.Actor) (auth.Role, error)
	Stats() auth.Stats
	ListUsers() []auth.UserInfo
	Export(actor auth.Actor) *auth.Snapshot
}

// AdminHandler dispatches the privileged command grammar. It is reachable
// only through the fixed command prefix and requires the admin_commands
// permission, enforced by the router's auth gate.
type AdminHandler struct {
	admin   UserAdmin
	prefix  string
	log     *logrus.Logger
	metrics *observability.Metrics
}

// NewAdminHandler creates the admin command handler. prefix defaults to
// "/admin".
func NewAdminHandler(admin UserAdmin, prefix string, log *logrus.Logger, metrics *observability.Metrics) *AdminHandler {
	if prefix == "" {
		prefix = "/admin"
	}
	if log == nil {
		log = logrus.New()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &AdminHandler{admin: admin, prefix: prefix, log: log, metrics: metrics}
}

// Name implements Handler
func (h *AdminHandler) Name() string { return "admin" }

// RequiredPermission implements Handler
func (h *AdminHandler) RequiredPermission() auth.Permission { return auth.PermissionAdminCommands }

// CanHandle implements Handler
func (h *AdminHandler) CanHandle(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), h.prefix)
}

// Handle implements Handler
func (h *AdminHandler) Handle(ctx context.Context, msg *Message, session *auth.Session) (string, error) {
	parts := SplitArgs(strings.TrimSpace(msg.Text))
	if len(parts) < 2 || parts[0] != h.prefix {
		return h.cmdHelp(), nil
	}

	command := strings.ToLower(parts[1])
	args := parts[2:]

	actor := auth.Actor{UserID: msg.UserID, Name: msg.Name}
	if session != nil && session.Name != "" {
		actor.Name = session.Name
	}
	if actor.Name == "" {
		actor.Name = "admin"
	}

	h.log.WithFields(logrus.Fields{
		"command":  command,
		"actor_id": actor.UserID,
	}).Info("admin command")

	var reply string
	switch command {
	case "status":
		reply = h.cmdStatus(actor)
	case "users":
		reply = h.cmdUsers()
	case "add":
		reply = h.cmdAdd(ctx, args, actor)
	case "remove":
		reply = h.cmdRemove(ctx, args, actor)
	case "role":
		reply = h.cmdRole(ctx, args, actor)
	case "metrics":
		reply = h.cmdMetrics(actor)
	case "export":
		reply = h.cmdExport(actor)
	case "help":
		reply = h.cmdHelp()
	default:
		h.metrics.AdminCommandsTotal.WithLabelValues("unknown", "error").Inc()
		return h.unknownCommand(command), nil
	}

	status := "ok"
	if strings.HasPrefix(reply, "❌") || strings.HasPrefix(reply, "⚠️") {
		status = "error"
	}
	h.metrics.AdminCommandsTotal.WithLabelValues(command, status).Inc()
	return reply, nil
}

func (h *AdminHandler) cmdStatus(actor auth.Actor) string {
	stats := h.admin.Stats()

	var b strings.Builder
	b.WriteString("🤖 **System Status**\n\n")
	fmt.Fprintf(&b, "**Administrator:** %s\n", actor.Name)
	fmt.Fprintf(&b, "**Authorized users:** %d\n", stats.TotalAuthorized)
	fmt.Fprintf(&b, "**Active sessions:** %d\n", stats.ActiveSessions)

	b.WriteString("\n**Role distribution:**\n")
	for _, role := range auth.Roles {
		if count := stats.RoleDistribution[role]; count > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", role, count)
		}
	}

	if len(stats.Sessions) > 0 {
		b.WriteString("\n**Active users:**\n")
		for _, s := range stats.Sessions {
			fmt.Fprintf(&b, "- %s (%s)\n", s.Name, s.Role)
		}
	}
	return strings.TrimSpace(b.String())
}

func (h *AdminHandler) cmdUsers() string {
	users := h.admin.ListUsers()
	if len(users) == 0 {
		return "📋 No authorized users configured."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 **Authorized Users (%d):**\n\n", len(users))
	for _, u := range users {
		state := "inactive"
		if u.Active {
			state = "active"
		}
		fmt.Fprintf(&b, "**%s**\n", u.Record.Name)
		fmt.Fprintf(&b, "- ID: `%s`\n", u.UserID)
		fmt.Fprintf(&b, "- Email: %s\n", u.Record.Email)
		fmt.Fprintf(&b, "- Role: %s\n", u.Record.Role)
		fmt.Fprintf(&b, "- State: %s\n", state)
		fmt.Fprintf(&b, "- Added: %s by %s\n\n", u.Record.AddedDate.Format(time.RFC3339), u.Record.AddedBy)
	}
	return strings.TrimSpace(b.String())
}

func (h *AdminHandler) cmdAdd(ctx context.Context, args []string, actor auth.Actor) string {
	if len(args) < 4 {
		return strings.TrimSpace(fmt.Sprintf(`❌ **Usage:** `+"`%s add <user_id> <name> <email> <role>`"+`

**Roles:** admin, user, guest

**Example:** `+"`%s add 29:1abc \"Jane Doe\" jane@example.com user`", h.prefix, h.prefix))
	}

	userID, name, email := args[0], args[1], args[2]
	role, err := auth.ParseRole(args[3])
	if err != nil {
		return fmt.Sprintf("❌ **Invalid role:** `%s`\n\n**Valid roles:** admin, user, guest, banned", args[3])
	}

	if err := h.admin.AddUser(ctx, userID, name, email, role, actor); err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			return fmt.Sprintf("⚠️ **User already exists:** %s (`%s`)", name, userID)
		}
		return fmt.Sprintf("❌ **Error adding user:** %v", err)
	}

	return strings.TrimSpace(fmt.Sprintf(`✅ **User added**

**Name:** %s
**ID:** `+"`%s`"+`
**Email:** %s
**Role:** %s
**Added by:** %s`, name, userID, email, role, actor.Name))
}

func (h *AdminHandler) cmdRemove(ctx context.Context, args []string, actor auth.Actor) string {
	if len(args) < 1 {
		return fmt.Sprintf("❌ **Usage:** `%s remove <user_id>`", h.prefix)
	}
	userID := args[0]

	if err := h.admin.RemoveUser(ctx, userID, actor); err != nil {
		switch {
		case errors.Is(err, auth.ErrSelfRemoval):
			return "❌ **You cannot remove your own administrator account.**"
		case errors.Is(err, auth.ErrNotFound):
			return fmt.Sprintf("❌ **User not found:** `%s`", userID)
		default:
			return fmt.Sprintf("❌ **Error removing user:** %v", err)
		}
	}

	return strings.TrimSpace(fmt.Sprintf(`✅ **User removed**

**ID:** `+"`%s`"+`
**Removed by:** %s`, userID, actor.Name))
}

func (h *AdminHandler) cmdRole(ctx context.Context, args []string, actor auth.Actor) string {
	if len(args) < 2 {
		return fmt.Sprintf("❌ **Usage:** `%s role <user_id> <new_role>`\n\n**Roles:** admin, user, guest, banned", h.prefix)
	}
	userID := args[0]

	newRole, err := auth.ParseRole(args[1])
	if err != nil {
		return fmt.Sprintf("❌ **Invalid role:** `%s`\n\n**Valid roles:** admin, user, guest, banned", args[1])
	}

	oldRole, err := h.admin.UpdateRole(ctx, userID, newRole, actor)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return fmt.Sprintf("❌ **User not found:** `%s`", userID)
		}
		return fmt.Sprintf("❌ **Error updating role:** %v", err)
	}

	return strings.TrimSpace(fmt.Sprintf(`✅ **Role updated**

**ID:** `+"`%s`"+`
**Previous role:** %s
**New role:** %s
**Updated by:** %s`, userID, oldRole, newRole, actor.Name))
}

func (h *AdminHandler) cmdMetrics(actor auth.Actor) string {
	stats := h.admin.Stats()

	var b strings.Builder
	b.WriteString("📊 **Detailed Metrics**\n\n")
	fmt.Fprintf(&b, "**Authorized users:** %d\n", stats.TotalAuthorized)
	fmt.Fprintf(&b, "**Active sessions:** %d\n", stats.ActiveSessions)
	if stats.TotalAuthorized > 0 {
		rate := float64(stats.ActiveSessions) / float64(stats.TotalAuthorized) * 100
		fmt.Fprintf(&b, "**Activity rate:** %.1f%%\n", rate)
	}

	b.WriteString("\n**By role:**\n")
	for _, role := range auth.Roles {
		count := stats.RoleDistribution[role]
		if count == 0 {
			continue
		}
		pct := float64(count) / float64(stats.TotalAuthorized) * 100
		fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", role, count, pct)
	}

	if len(stats.Sessions) > 0 {
		b.WriteString("\n**Session activity:**\n")
		for _, s := range stats.Sessions {
			fmt.Fprintf(&b, "- %s: %d interactions\n", s.Name, s.InteractionCount)
		}
	}

	fmt.Fprintf(&b, "\n**Requested by:** %s", actor.Name)
	return strings.TrimSpace(b.String())
}

func (h *AdminHandler) cmdExport(actor auth.Actor) string {
	snap := h.admin.Export(actor)

	return strings.TrimSpace(fmt.Sprintf(`📤 **Directory Export**

**Users exported:** %d
**Export time:** %s

The full snapshot is persisted in the configured directory store and can
be imported into another instance.

**Exported by:** %s`, len(snap.AuthorizedUsers), snap.LastUpdated.Format(time.RFC3339), actor.Name))
}

func (h *AdminHandler) cmdHelp() string {
	p := h.prefix
	return strings.TrimSpace(fmt.Sprintf(`🤖 **Admin Commands**

`+"`%s status`"+` - System and user status
`+"`%s users`"+` - List authorized users
`+"`%s add <user_id> <name> <email> <role>`"+` - Add a user
`+"`%s remove <user_id>`"+` - Remove a user
`+"`%s role <user_id> <new_role>`"+` - Change a user's role
`+"`%s metrics`"+` - Detailed usage metrics
`+"`%s export`"+` - Export the user directory
`+"`%s help`"+` - This help

**Roles:**
- admin - full access including these commands
- user - query access and metrics
- guest - echo mode only
- banned - no access`, p, p, p, p, p, p, p, p))
}

func (h *AdminHandler) unknownCommand(command string) string {
	return strings.TrimSpace(fmt.Sprintf(`❌ **Unknown command:** `+"`%s %s`"+`

Use `+"`%s help`"+` to see all available commands.`, h.prefix, command, h.prefix))
}
