package benchmarks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OrlandoBitencourt/pennant"
	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/evaluator"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
	"github.com/OrlandoBitencourt/pennant/internal/storage"
)

const sdkKey = "benchmark-sdk-key"

// BenchmarkEvaluation_Simple benchmarks a flag without targeting
func BenchmarkEvaluation_Simple(b *testing.B) {
	client := setupClient(b, simpleBooleanFlag())
	ctx := context.Background()
	user := pennant.NewUser("user-123")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.Bool(ctx, "test-flag", false, user)
	}
}

// BenchmarkEvaluation_WithConditions benchmarks targeting rule matching
func BenchmarkEvaluation_WithConditions(b *testing.B) {
	client := setupClient(b, flagWithConditions())
	ctx := context.Background()
	user := &pennant.User{
		Identifier: "user-123",
		Email:      "jane@example.com",
		Country:    "BR",
		Custom:     map[string]any{"tier": "premium", "age": 31},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.String(ctx, "test-flag", "", user)
	}
}

// BenchmarkEvaluation_PercentageRollout benchmarks bucketing
func BenchmarkEvaluation_PercentageRollout(b *testing.B) {
	client := setupClient(b, flagWithPercentageOptions())
	ctx := context.Background()

	users := make([]*pennant.User, 1000)
	for i := range users {
		users[i] = pennant.NewUser(fmt.Sprintf("user-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.String(ctx, "test-flag", "", users[i%len(users)])
	}
}

// BenchmarkEvaluation_SegmentAndPrerequisite benchmarks the recursive
// condition kinds
func BenchmarkEvaluation_SegmentAndPrerequisite(b *testing.B) {
	client := setupClient(b, flagWithSegmentAndPrerequisite())
	ctx := context.Background()
	user := &pennant.User{Identifier: "user-123", Email: "jane@example.com"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.Bool(ctx, "test-flag", false, user)
	}
}

// BenchmarkEvaluation_Hashed benchmarks the sha256 comparators
func BenchmarkEvaluation_Hashed(b *testing.B) {
	client := setupClient(b, flagWithHashedCondition())
	ctx := context.Background()
	user := &pennant.User{Identifier: "user-123", Email: "jane@example.com"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.Bool(ctx, "test-flag", false, user)
	}
}

// BenchmarkConcurrentEvaluations benchmarks readers sharing one snapshot
func BenchmarkConcurrentEvaluations(b *testing.B) {
	client := setupClient(b, flagWithConditions())
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		user := &pennant.User{Identifier: "user-123", Email: "jane@example.com", Country: "BR"}
		for pb.Next() {
			_ = client.String(ctx, "test-flag", "", user)
		}
	})
}

// BenchmarkBoolVsDetails compares the typed getter with the details call
func BenchmarkBoolVsDetails(b *testing.B) {
	client := setupClient(b, simpleBooleanFlag())
	ctx := context.Background()
	user := pennant.NewUser("user-123")

	b.Run("Bool", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = client.Bool(ctx, "test-flag", false, user)
		}
	})

	b.Run("Details", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = client.Details(ctx, "test-flag", false, user)
		}
	})
}

// BenchmarkEvaluationTrace benchmarks evaluation with the info level
// trace enabled
func BenchmarkEvaluationTrace(b *testing.B) {
	cfg := parseConfig(b, flagWithConditions())
	user := &domain.User{Identifier: "user-123", Email: "jane@example.com", Country: "BR"}

	b.Run("disabled", func(b *testing.B) {
		eval := evaluator.New(logging.Discard())
		for i := 0; i < b.N; i++ {
			_, _ = eval.Evaluate(cfg, "test-flag", user)
		}
	})

	b.Run("enabled", func(b *testing.B) {
		eval := evaluator.New(logging.New("info", "json", discardWriter{}))
		for i := 0; i < b.N; i++ {
			_, _ = eval.Evaluate(cfg, "test-flag", user)
		}
	})
}

// BenchmarkAllValues benchmarks whole-config evaluation
func BenchmarkAllValues(b *testing.B) {
	client := setupClient(b, manyFlags(100))
	ctx := context.Background()
	user := pennant.NewUser("user-123")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.AllValues(ctx, user)
	}
}

// BenchmarkLargeConfig_1000Flags benchmarks key lookup in a large config
func BenchmarkLargeConfig_1000Flags(b *testing.B) {
	benchmarkLargeConfig(b, 1000)
}

// BenchmarkLargeConfig_10000Flags benchmarks key lookup in a very large config
func BenchmarkLargeConfig_10000Flags(b *testing.B) {
	benchmarkLargeConfig(b, 10000)
}

func benchmarkLargeConfig(b *testing.B, n int) {
	client := setupClient(b, manyFlags(n))
	ctx := context.Background()
	user := pennant.NewUser("user-123")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.Bool(ctx, fmt.Sprintf("flag-%d", i%n), false, user)
	}
}

// BenchmarkSerialize benchmarks the cache serialization format
func BenchmarkSerialize(b *testing.B) {
	body := manyFlags(100)
	pc := domain.NewProjectConfig(body, parseConfig(b, body), time.Now(), `"etag"`)

	b.Run("Serialize", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = storage.Serialize(pc)
		}
	})

	serialized := storage.Serialize(pc)
	b.Run("Deserialize", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = storage.Deserialize(serialized)
		}
	})
}

// BenchmarkExternalCacheGet benchmarks reads through the ristretto store,
// which skip parsing while the stored value is unchanged
func BenchmarkExternalCacheGet(b *testing.B) {
	store, err := storage.NewRistrettoStore(storage.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	body := manyFlags(100)
	cache := storage.NewExternal(store, logging.Discard())
	key := storage.KeyForSDKKey(sdkKey)
	ctx := context.Background()
	cache.Set(ctx, key, domain.NewProjectConfig(body, parseConfig(b, body), time.Now(), `"etag"`))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Get(ctx, key)
	}
}

// Helper functions

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func setupClient(b *testing.B, body string) *pennant.Client {
	b.Helper()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"bench"`)
		fmt.Fprint(w, body)
	}))
	b.Cleanup(cdn.Close)

	client, err := pennant.New(sdkKey,
		pennant.WithBaseURL(cdn.URL),
		pennant.WithManualPoll(),
		pennant.WithLogger(logging.Discard()),
	)
	if err != nil {
		b.Fatalf("failed to create client: %v", err)
	}
	b.Cleanup(func() { client.Close() })

	if err := client.Refresh(context.Background()); err != nil {
		b.Fatalf("failed to load config: %v", err)
	}
	return client
}

func parseConfig(b *testing.B, body string) *domain.Config {
	b.Helper()
	cfg, err := domain.ParseConfig([]byte(body))
	if err != nil {
		b.Fatalf("invalid config: %v", err)
	}
	return cfg
}

func simpleBooleanFlag() string {
	return `{"f":{"test-flag":{"t":0,"v":{"b":true},"i":"on"}}}`
}

func flagWithConditions() string {
	return `{"f":{"test-flag":{
		"t":1, "v":{"s":"default"},
		"r":[
			{"c":[{"u":{"a":"Country","c":0,"l":["US","CA"]}}], "s":{"v":{"s":"north-america"}}},
			{"c":[
				{"u":{"a":"Email","c":32,"l":["@example.com"]}},
				{"u":{"a":"tier","c":28,"s":"premium"}},
				{"u":{"a":"age","c":14,"d":18}}
			], "s":{"v":{"s":"premium-adult"}}}
		]
	}}}`
}

func flagWithPercentageOptions() string {
	return `{"f":{"test-flag":{
		"t":1, "v":{"s":"control"},
		"p":[
			{"p":20,"v":{"s":"red"},"i":"red"},
			{"p":30,"v":{"s":"green"},"i":"green"},
			{"p":50,"v":{"s":"blue"},"i":"blue"}
		]
	}}}`
}

func flagWithSegmentAndPrerequisite() string {
	return `{
		"s":[{"n":"staff","r":[{"a":"Email","c":32,"l":["@example.com"]}]}],
		"f":{
			"base":{"t":0,"v":{"b":true}},
			"test-flag":{
				"t":0, "v":{"b":false},
				"r":[{
					"c":[{"s":{"s":0,"c":0}}, {"p":{"f":"base","c":0,"v":{"b":true}}}],
					"s":{"v":{"b":true}}
				}]
			}
		}
	}`
}

func flagWithHashedCondition() string {
	// any hash value works, the comparison cost is the same on a miss
	return `{"p":{"s":"salt","r":0},"f":{"test-flag":{
		"t":0, "v":{"b":false},
		"r":[{"c":[{"u":{"a":"Email","c":16,"l":["` + strings.Repeat("ab", 32) + `"]}}], "s":{"v":{"b":true}}}]
	}}}`
}

func manyFlags(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"f":{`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `"flag-%d":{"t":0,"v":{"b":%t},"i":"v%d"}`, i, i%2 == 0, i)
	}
	sb.WriteString(`}}`)
	return sb.String()
}
