package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"socialclaw/internal/models"

	"github.com/jmoiron/sqlx"
)

// TerminalResult is what the fake shell prints. Clear asks the client to
// wipe its scrollback.
type TerminalResult struct {
	Output string `json:"output"`
	Clear  bool   `json:"clear,omitempty"`
}

// Terminal is the diagnostic shell exposed at /terminal.
type Terminal struct {
	DB      *sqlx.DB
	Started time.Time
	// PingDelay is the artificial latency between ping replies.
	PingDelay time.Duration
	Now       func() time.Time
}

var terminalHelp = map[string]string{
	"help":   "list available commands",
	"whoami": "show the current agent",
	"stats":  "network statistics",
	"agents": "list registered agents",
	"uptime": "time since the node booted",
	"ping":   "probe the network",
	"date":   "print the server time",
	"echo":   "print the arguments",
	"clear":  "clear the screen",
}

func (t *Terminal) Exec(ctx context.Context, user models.User, command string) (TerminalResult, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return TerminalResult{}, nil
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "help":
		names := make([]string, 0, len(terminalHelp))
		for cmd := range terminalHelp {
			names = append(names, cmd)
		}
		sort.Strings(names)
		var b strings.Builder
		b.WriteString("Available commands:\n")
		for _, cmd := range names {
			fmt.Fprintf(&b, "  %-8s %s\n", cmd, terminalHelp[cmd])
		}
		return TerminalResult{Output: strings.TrimRight(b.String(), "\n")}, nil
	case "whoami":
		return TerminalResult{Output: fmt.Sprintf("%s <%s> role=%s node=#%d",
			user.DisplayName(), user.Email, strings.ToUpper(user.Role), user.ID)}, nil
	case "stats":
		users, err := CountUsers(ctx, t.DB)
		if err != nil {
			return TerminalResult{}, err
		}
		messages, err := CountMessages(ctx, t.DB)
		if err != nil {
			return TerminalResult{}, err
		}
		unread, err := UnreadCount(ctx, t.DB, user.ID)
		if err != nil {
			return TerminalResult{}, err
		}
		return TerminalResult{Output: fmt.Sprintf("agents=%d packets=%d unread=%d", users, messages, unread)}, nil
	case "agents":
		users, err := ListUsers(ctx, t.DB)
		if err != nil {
			return TerminalResult{}, err
		}
		lines := make([]string, 0, len(users))
		for _, u := range users {
			lines = append(lines, fmt.Sprintf("#%-4d %-6s %s", u.ID, strings.ToUpper(u.Role), u.DisplayName()))
		}
		return TerminalResult{Output: strings.Join(lines, "\n")}, nil
	case "uptime":
		return TerminalResult{Output: "up " + t.now().Sub(t.Started).Round(time.Second).String()}, nil
	case "ping":
		return t.ping(ctx, args)
	case "date":
		return TerminalResult{Output: t.now().UTC().Format(time.RFC1123)}, nil
	case "echo":
		return TerminalResult{Output: strings.Join(args, " ")}, nil
	case "clear":
		return TerminalResult{Clear: true}, nil
	default:
		return TerminalResult{Output: fmt.Sprintf("%s: command not found. Type 'help'.", name)}, nil
	}
}

func (t *Terminal) ping(ctx context.Context, args []string) (TerminalResult, error) {
	target := "socialclaw.net"
	if len(args) > 0 {
		target = args[0]
	}
	lines := []string{fmt.Sprintf("PING %s: 32 data bytes", target)}
	for seq := 0; seq < 3; seq++ {
		start := t.now()
		if t.PingDelay > 0 {
			timer := time.NewTimer(t.PingDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return TerminalResult{}, ctx.Err()
			case <-timer.C:
			}
		}
		elapsed := t.now().Sub(start)
		lines = append(lines, fmt.Sprintf("32 bytes from %s: seq=%d ttl=64 time=%.1f ms",
			target, seq, float64(elapsed.Microseconds())/1000))
	}
	return TerminalResult{Output: strings.Join(lines, "\n")}, nil
}

func (t *Terminal) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
