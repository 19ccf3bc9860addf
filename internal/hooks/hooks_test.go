package hooks

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

func TestHooks_RaiseReachesSubscribersInOrder(t *testing.T) {
	h := New(nil)

	var calls []string
	h.OnClientReady(func(s domain.CacheState) { calls = append(calls, "ready1:"+s.String()) })
	h.OnClientReady(func(s domain.CacheState) { calls = append(calls, "ready2:"+s.String()) })
	h.OnConfigChanged(func(cfg *domain.Config) { calls = append(calls, "changed") })
	h.OnFlagEvaluated(func(d domain.EvaluationDetails) { calls = append(calls, "evaluated:"+d.Key) })
	h.OnError(func(msg string, err error) { calls = append(calls, "error:"+msg+":"+err.Error()) })
	h.OnBeforeClose(func() { calls = append(calls, "close") })

	h.RaiseClientReady(domain.HasUpToDateFlagData)
	h.RaiseConfigChanged(&domain.Config{})
	h.RaiseFlagEvaluated(domain.EvaluationDetails{Key: "flag"})
	h.RaiseError("refresh failed", errors.New("boom"))
	h.RaiseBeforeClose()

	assert.Equal(t, []string{
		"ready1:" + domain.HasUpToDateFlagData.String(),
		"ready2:" + domain.HasUpToDateFlagData.String(),
		"changed",
		"evaluated:flag",
		"error:refresh failed:boom",
		"close",
	}, calls)
}

func TestHooks_Unsubscribe(t *testing.T) {
	h := New(nil)

	var a, b int
	unsubA := h.OnBeforeClose(func() { a++ })
	h.OnBeforeClose(func() { b++ })

	h.RaiseBeforeClose()
	unsubA()
	unsubA()
	h.RaiseBeforeClose()

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestHooks_UnsubscribeDuringDispatch(t *testing.T) {
	h := New(nil)

	var second int
	var unsub func()
	h.OnBeforeClose(func() { unsub() })
	unsub = h.OnBeforeClose(func() { second++ })

	// the snapshot taken before dispatch still includes the second subscriber
	h.RaiseBeforeClose()
	h.RaiseBeforeClose()
	assert.Equal(t, 1, second)
}

func TestHooks_PanickingSubscriberIsIsolated(t *testing.T) {
	var logs bytes.Buffer
	h := New(slog.New(slog.NewTextHandler(&logs, nil)))

	var reached bool
	h.OnFlagEvaluated(func(domain.EvaluationDetails) { panic("subscriber bug") })
	h.OnFlagEvaluated(func(domain.EvaluationDetails) { reached = true })

	assert.NotPanics(t, func() { h.RaiseFlagEvaluated(domain.EvaluationDetails{Key: "k"}) })
	assert.True(t, reached)
	assert.Contains(t, logs.String(), "event_id=4000")
	assert.Contains(t, logs.String(), "subscriber bug")
	assert.Contains(t, logs.String(), "hook=FlagEvaluated")
}

func TestHooks_HasFlagEvaluated(t *testing.T) {
	h := New(nil)
	assert.False(t, h.HasFlagEvaluated())

	unsub := h.OnFlagEvaluated(func(domain.EvaluationDetails) {})
	assert.True(t, h.HasFlagEvaluated())

	unsub()
	assert.False(t, h.HasFlagEvaluated())
}

func TestHooks_ConcurrentSubscribeAndRaise(t *testing.T) {
	h := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := h.OnError(func(string, error) {})
			unsub()
		}()
		go func() {
			defer wg.Done()
			h.RaiseError("x", nil)
		}()
	}
	wg.Wait()

	assert.Zero(t, h.errors.len())
}
