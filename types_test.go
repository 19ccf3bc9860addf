package pennant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewUser tests the user constructor
func TestNewUser(t *testing.T) {
	u := NewUser("user-123")
	assert.Equal(t, "user-123", u.Identifier)
	assert.Nil(t, u.Custom)
}

// TestWithAttribute tests that attributes are added to a copy
func TestWithAttribute(t *testing.T) {
	base := &User{Identifier: "u1", Email: "u1@example.com", Custom: map[string]any{"plan": "free"}}

	derived := WithAttribute(base, "plan", "pro")
	derived = WithAttribute(derived, "age", 30)

	assert.Equal(t, "free", base.Custom["plan"])
	assert.Equal(t, "u1@example.com", derived.Email)
	assert.Equal(t, map[string]any{"plan": "pro", "age": 30}, derived.Custom)

	fromNil := WithAttribute(nil, "beta", true)
	assert.Equal(t, "", fromNil.Identifier)
	assert.Equal(t, map[string]any{"beta": true}, fromNil.Custom)
}

// TestPollingModeConstructors tests the exported mode helpers
func TestPollingModeConstructors(t *testing.T) {
	assert.Equal(t, "a", AutoPoll(DefaultHTTPTimeout, 0).Identifier())
	assert.Equal(t, "l", LazyLoad(DefaultHTTPTimeout).Identifier())
	assert.Equal(t, "m", ManualPoll().Identifier())
}
