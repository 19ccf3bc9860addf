// Package logging provides the slog logger factory used across pennant and
// the event ids attached to every record it writes.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EventKey is the attribute key carrying the event id of a record.
const EventKey = "event_id"

// Event ids. Ranges: 1xxx errors, 2xxx cache and evaluation errors,
// 3xxx warnings, 4xxx internal, 5xxx evaluation traces.
const (
	EventConfigJSONNotAvailable    = 1000
	EventSettingKeyMissing         = 1001
	EventInvalidCredentials        = 1100
	EventUnexpectedHTTPResponse    = 1101
	EventHTTPTimeout               = 1102
	EventHTTPTransportFailure      = 1103
	EventRedirectLoop              = 1104
	EventInvalidResponseContent    = 1105
	EventNotModifiedWithEmptyCache = 1106
	EventSettingEvaluationFailed   = 2002
	EventVariationNotFound         = 2011
	EventVariationTypeMismatch     = 2012
	EventCacheReadFailed           = 2200
	EventCacheWriteFailed          = 2201
	EventUserMissing               = 3001
	EventDataGovernanceOutOfSync   = 3002
	EventUserAttributeMissing      = 3003
	EventUserAttributeInvalid      = 3004
	EventCircularDependency        = 3005
	EventComparisonValueInvalid    = 3006
	EventSegmentReferenceInvalid   = 3007
	EventOfflineRefresh            = 3200
	EventHookPanicked              = 4000
	EventEvaluationTrace           = 5000
	EventConfigChanged             = 5100
	EventClientReady               = 5101
	EventClosed                    = 5200
)

// New builds a logger writing to w. format is "json" or "text"; anything
// else selects JSON.
func New(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("component", "pennant"))
}

// ParseLevel converts a level string to a slog.Level. Unknown values map to
// warn, the library default.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// Event returns the attribute tagging a record with id.
func Event(id int) slog.Attr {
	return slog.Int(EventKey, id)
}
