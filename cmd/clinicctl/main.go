// Command clinicctl drives the clinic screens from a terminal: log in once,
// then manage slots, appointments, bookings and the profile.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-portal/cmd/mainconfig"
	"github.com/wolfman30/clinic-portal/internal/accounts"
	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	if os.Getenv("SESSION_STORE") == "" {
		cfg.SessionStore = "file"
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: "text", Writer: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, logger, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app is what every subcommand works with.
type app struct {
	cfg      *appconfig.Config
	logger   *logging.Logger
	out      io.Writer
	errOut   io.Writer
	base     *clinicapi.Client
	client   *clinicapi.Client
	sessions *session.Service
	notifier notify.Notifier
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":           {"log in: -role -email -password", cmdLogin},
	"logout":          {"end the session", cmdLogout},
	"whoami":          {"show the logged-in user", cmdWhoami},
	"slots":           {"doctor slots: list|generate|toggle|edit", cmdSlots},
	"appointments":    {"appointments: list|status|delete|reschedule", cmdAppointments},
	"book":            {"book a slot: -doctor -date [-slot -reason]", cmdBook},
	"profile":         {"profile: show|set", cmdProfile},
	"blogs":           {"public blog page", cmdBlogs},
	"doctors":         {"doctor directory", cmdDoctors},
	"dashboard":       {"patient dashboard summary", cmdDashboard},
	"register":        {"sign up as a patient or doctor", cmdRegister},
	"forgot-password": {"email a password reset OTP: -email", cmdForgotPassword},
	"reset-password":  {"set a new password: -email -otp -password", cmdResetPassword},
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	store, closeStore, err := mainconfig.NewSessionStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}()

	base := mainconfig.NewBackendClient(cfg, logger, nil)
	sessions := session.NewService(base, store, cfg.SessionKey, logger)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		out:      stdout,
		errOut:   stderr,
		base:     base,
		client:   base.WithTokens(sessions),
		sessions: sessions,
		notifier: notify.Multi{consoleNotifier{w: stderr}, notify.NewLogNotifier(logger, nil)},
	}

	if err := cmd.run(ctx, a, args[1:]); err != nil {
		switch {
		case errors.Is(err, errUsage):
			return 2
		case errors.Is(err, session.ErrNoSession):
			fmt.Fprintln(stderr, "error: not logged in; run clinicctl login")
		default:
			fmt.Fprintln(stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: clinicctl <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].summary)
	}
}

// consoleNotifier prints toasts on stderr so stdout stays scriptable.
type consoleNotifier struct {
	w io.Writer
}

func (c consoleNotifier) Success(msg string) { fmt.Fprintln(c.w, "✓", msg) }
func (c consoleNotifier) Error(msg string)   { fmt.Fprintln(c.w, "✗", msg) }

func (a *app) accounts() *accounts.Service {
	return accounts.NewService(a.base, a.sessions, a.notifier, a.logger)
}

// requireRole returns the session when its role is one of roles.
func (a *app) requireRole(ctx context.Context, roles ...clinicapi.Role) (*session.Session, error) {
	sess, err := a.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if sess.Role == r {
			return sess, nil
		}
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return nil, fmt.Errorf("this command is for %s accounts; logged in as %s", strings.Join(names, " or "), sess.Role)
}
