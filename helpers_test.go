package pennant

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

const testSDKKey = "test-sdk-key-1234567890"

// MockCDN is a mock config CDN for testing
type MockCDN struct {
	*httptest.Server

	mu        sync.RWMutex
	body      string
	etag      string
	version   int
	status    int
	userAgent string

	hits atomic.Int32
}

// NewMockCDN creates a new mock CDN serving body
func NewMockCDN(t *testing.T, body string) *MockCDN {
	mock := &MockCDN{}
	mock.SetConfig(body)

	path := fmt.Sprintf("/configuration-files/%s/config_v6.json", testSDKKey)
	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.hits.Add(1)

		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}

		mock.mu.Lock()
		mock.userAgent = r.Header.Get("X-Pennant-UserAgent")
		body, etag, status := mock.body, mock.etag, mock.status
		mock.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(mock.Close)

	return mock
}

// SetConfig replaces the served config and its etag
func (m *MockCDN) SetConfig(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	m.body = body
	m.etag = fmt.Sprintf(`"v%d"`, m.version)
}

// FailWith makes every request answer with status; 0 restores normal
// responses.
func (m *MockCDN) FailWith(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *MockCDN) Hits() int {
	return int(m.hits.Load())
}

func (m *MockCDN) UserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userAgent
}

// newTestClient creates a client against cdn, closed on test cleanup.
func newTestClient(t *testing.T, cdn *MockCDN, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(cdn.URL),
		WithLogger(logging.Discard()),
	}
	client, err := New(testSDKKey, append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// captureLogs returns a logger writing JSON records into the returned
// builder.
func captureLogs() (*syncBuilder, Option) {
	sb := &syncBuilder{}
	return sb, WithLogger(logging.New("debug", "json", sb))
}

type syncBuilder struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuilder) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuilder) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

const (
	// a single boolean flag
	simpleConfig = `{"f":{"flag":{"t":0,"v":{"b":true}}}}`

	// email targeting with one string setting
	emailConfig = `{
		"p": {"u": "https://cdn-global.pennant.dev", "r": 0, "s": "salt"},
		"f": {
			"animal": {
				"t": 1,
				"v": {"s": "Cat"},
				"i": "var-cat",
				"r": [{
					"c": [{"u": {"a": "Email", "c": 0, "l": ["a@example.com", "b@example.com"]}}],
					"s": {"v": {"s": "Dog"}, "i": "var-dog"}
				}]
			}
		}
	}`

	// one setting of each type
	typedConfig = `{"f":{
		"enabled": {"t":0, "v":{"b":true}, "i":"v-bool"},
		"greeting": {"t":1, "v":{"s":"hello"}, "i":"v-string"},
		"limit": {"t":2, "v":{"i":42}, "i":"v-int"},
		"ratio": {"t":3, "v":{"d":0.5}, "i":"v-double"}
	}}`
)
