package idle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Compliance event names recorded over a session's idle lifecycle. The
// strings are part of the audit contract; downstream retention tooling
// matches on them verbatim.
const (
	EventWarningShown  = "Idle timeout warning shown"
	EventTimeoutLogout = "Idle timeout - logging out user"
	EventStayLoggedIn  = "User chose to stay logged in"
	EventWarningLogout = "User chose to logout from timeout warning"
	EventForcedLogout  = "Session terminated by operator"
)

// Event captures audit-friendly information about an idle-lifecycle
// transition.
type Event struct {
	Name       string
	EpisodeID  uuid.UUID
	Subject    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Sink consumes compliance events for auditing purposes. Recording is
// fire-and-forget from the coordinator's point of view.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event) error

// Record implements Sink.
func (f SinkFunc) Record(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopSink struct{}

func (noopSink) Record(context.Context, Event) error {
	return nil
}

func normalizeSink(s Sink) Sink {
	if s == nil {
		return noopSink{}
	}
	return s
}
