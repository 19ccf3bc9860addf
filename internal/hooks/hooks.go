// Package hooks is the observer registry the client raises lifecycle and
// evaluation events on.
package hooks

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// Hooks holds the subscriber lists. The zero value is not usable; call New.
//
// Subscribers run synchronously on the goroutine raising the event and
// must not block. A panicking subscriber is recovered and logged; the
// remaining subscribers still run.
type Hooks struct {
	logger *slog.Logger

	clientReady   subscribers[func(domain.CacheState)]
	configChanged subscribers[func(*domain.Config)]
	flagEvaluated subscribers[func(domain.EvaluationDetails)]
	errors        subscribers[func(message string, err error)]
	beforeClose   subscribers[func()]
}

// New creates an empty registry.
func New(logger *slog.Logger) *Hooks {
	return &Hooks{logger: logging.OrDefault(logger)}
}

// OnClientReady subscribes fn to the one-time readiness event.
func (h *Hooks) OnClientReady(fn func(domain.CacheState)) (unsubscribe func()) {
	return h.clientReady.add(fn)
}

// OnConfigChanged subscribes fn to config content changes.
func (h *Hooks) OnConfigChanged(fn func(*domain.Config)) (unsubscribe func()) {
	return h.configChanged.add(fn)
}

// OnFlagEvaluated subscribes fn to every evaluation made through the client.
func (h *Hooks) OnFlagEvaluated(fn func(domain.EvaluationDetails)) (unsubscribe func()) {
	return h.flagEvaluated.add(fn)
}

// OnError subscribes fn to refresh and evaluation failures.
func (h *Hooks) OnError(fn func(message string, err error)) (unsubscribe func()) {
	return h.errors.add(fn)
}

// OnBeforeClose subscribes fn to client shutdown.
func (h *Hooks) OnBeforeClose(fn func()) (unsubscribe func()) {
	return h.beforeClose.add(fn)
}

func (h *Hooks) RaiseClientReady(state domain.CacheState) {
	for _, fn := range h.clientReady.snapshot() {
		h.call("ClientReady", func() { fn(state) })
	}
}

func (h *Hooks) RaiseConfigChanged(cfg *domain.Config) {
	for _, fn := range h.configChanged.snapshot() {
		h.call("ConfigChanged", func() { fn(cfg) })
	}
}

func (h *Hooks) RaiseFlagEvaluated(details domain.EvaluationDetails) {
	for _, fn := range h.flagEvaluated.snapshot() {
		h.call("FlagEvaluated", func() { fn(details) })
	}
}

func (h *Hooks) RaiseError(message string, err error) {
	for _, fn := range h.errors.snapshot() {
		h.call("Error", func() { fn(message, err) })
	}
}

func (h *Hooks) RaiseBeforeClose() {
	for _, fn := range h.beforeClose.snapshot() {
		h.call("BeforeClose", fn)
	}
}

// HasFlagEvaluated reports whether anyone listens for evaluations.
func (h *Hooks) HasFlagEvaluated() bool {
	return h.flagEvaluated.len() > 0
}

func (h *Hooks) call(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("hook subscriber panicked", logging.Event(logging.EventHookPanicked),
				"hook", event, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

type subscription[F any] struct {
	id uint64
	fn F
}

type subscribers[F any] struct {
	mu     sync.RWMutex
	nextID uint64
	list   []subscription[F]
}

func (s *subscribers[F]) add(fn F) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.list = append(s.list, subscription[F]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *subscribers[F]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.list {
		if sub.id == id {
			// copy so snapshots already handed out stay intact
			next := make([]subscription[F], 0, len(s.list)-1)
			next = append(next, s.list[:i]...)
			s.list = append(next, s.list[i+1:]...)
			return
		}
	}
}

func (s *subscribers[F]) snapshot() []F {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]F, len(s.list))
	for i, sub := range s.list {
		out[i] = sub.fn
	}
	return out
}

func (s *subscribers[F]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}
