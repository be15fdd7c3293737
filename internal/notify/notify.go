// Package notify delivers the short success/error messages ("toasts") that
// screens show after a user action.
package notify

import (
	"errors"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Level is the toast severity.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is one user-visible notification.
type Toast struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier shows toasts. Implementations must be safe for concurrent use.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier records toasts in the structured log and in metrics.
type LogNotifier struct {
	logger  *logging.Logger
	metrics *metrics.BackendMetrics
}

func NewLogNotifier(logger *logging.Logger, m *metrics.BackendMetrics) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger, metrics: m}
}

func (n *LogNotifier) Success(msg string) {
	n.logger.Info("toast", "level", LevelSuccess, "message", msg)
	n.metrics.ObserveToast(string(LevelSuccess))
}

func (n *LogNotifier) Error(msg string) {
	n.logger.Warn("toast", "level", LevelError, "message", msg)
	n.metrics.ObserveToast(string(LevelError))
}

// Recorder collects toasts so they can be returned to a caller (portal
// responses, CLI output, tests).
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Level: level, Message: msg})
}

// Toasts returns a copy of everything recorded so far.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Last returns the most recent toast, if any.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Multi fans a toast out to several notifiers.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		if n != nil {
			n.Success(msg)
		}
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		if n != nil {
			n.Error(msg)
		}
	}
}

// Discard drops every toast.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}

// OrDiscard returns n, or Discard when n is nil.
func OrDiscard(n Notifier) Notifier {
	if n == nil {
		return Discard{}
	}
	return n
}

// Failure shows rejected when the backend answered but refused the request
// (status:false), and failed for transport and HTTP errors.
func Failure(n Notifier, err error, rejected, failed string) {
	var logical *clinicapi.LogicalError
	if errors.As(err, &logical) {
		n.Error(rejected)
		return
	}
	n.Error(failed)
}
