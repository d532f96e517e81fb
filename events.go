package authsession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle event types.
const (
	EventLogin            = "login"
	EventGoogleSignIn     = "google_sign_in"
	EventRegister         = "register"
	EventLogout           = "logout"
	EventRefresh          = "refresh"
	EventRefreshFallback  = "refresh_fallback"
	EventSessionExpired   = "session_expired"
	EventInitialize       = "initialize"
	EventStorageMigration = "storage_migration"
	EventProfileRefresh   = "profile_refresh"
)

// Event is a single session lifecycle record emitted to the configured sink.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"ts"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func newEvent(eventType, userID string, success bool, cause error, meta map[string]string) Event {
	e := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
		Metadata:  meta,
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	return e
}

// EventSink consumes events off the async dispatcher. Emit must be safe for
// concurrent use and should be fast; a slow sink backs up the buffer.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Emit discards the event.
func (NoOpSink) Emit(ctx context.Context, event Event) {}

// ChannelSink forwards events to a caller-owned channel, dropping when the
// channel is full.
type ChannelSink struct {
	C chan Event
}

// NewChannelSink creates a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{C: make(chan Event, buffer)}
}

// Emit forwards the event, dropping it if the channel is full.
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.C <- event:
	default:
	}
}

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONWriterSink creates a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{w: w}
}

// Emit writes the event as a JSON line. Encoding failures are dropped
// silently; the sink is observability, not a ledger.
func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = json.NewEncoder(s.w).Encode(event)
}
