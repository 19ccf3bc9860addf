package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"f":{
	"animal": {
		"t": 1, "v": {"s": "Cat"}, "i": "cat",
		"r": [{"c": [{"u": {"a": "Email", "c": 0, "l": ["a@example.com"]}}], "s": {"v": {"s": "Dog"}, "i": "dog"}}]
	},
	"enabled": {"t": 0, "v": {"b": true}, "i": "on"},
	"plan-limit": {
		"t": 2, "v": {"i": 10},
		"r": [{"c": [{"u": {"a": "plan", "c": 28, "s": "pro"}}], "s": {"v": {"i": 100}}}]
	}
}}`

func newCDN(t *testing.T, status int) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("ETag", `"1"`)
		fmt.Fprint(w, testConfig)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, environ map[string]string, args ...string) ([]result, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, environ, &stdout, &stderr)
	if err != nil {
		return nil, err
	}
	var out []result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out), stdout.String())
	return out, nil
}

func testEnv(baseURL string) map[string]string {
	return map[string]string{
		"PENNANT_SDK_KEY":   "cli-test-key",
		"PENNANT_BASE_URL":  baseURL,
		"PENNANT_LOG_LEVEL": "error",
	}
}

func TestRun_AllSettings(t *testing.T) {
	cdn := newCDN(t, http.StatusOK)

	out, err := runCLI(t, testEnv(cdn.URL))
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "animal", out[0].Key)
	assert.Equal(t, "Cat", out[0].Value)
	assert.Equal(t, "enabled", out[1].Key)
	assert.Equal(t, true, out[1].Value)
	assert.Equal(t, float64(10), out[2].Value)
	assert.False(t, out[2].FetchTime.IsZero())
}

func TestRun_SingleKeyWithUser(t *testing.T) {
	cdn := newCDN(t, http.StatusOK)

	out, err := runCLI(t, testEnv(cdn.URL), "-key", "animal", "-user", "u1", "-email", "a@example.com")
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "Dog", out[0].Value)
	assert.Equal(t, "dog", out[0].VariationID)
}

func TestRun_CustomAttributes(t *testing.T) {
	cdn := newCDN(t, http.StatusOK)

	out, err := runCLI(t, testEnv(cdn.URL), "-key", "plan-limit", "-user", "u1", "-attr", "plan=pro")
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, float64(100), out[0].Value)
}

func TestRun_MissingKey(t *testing.T) {
	cdn := newCDN(t, http.StatusOK)

	out, err := runCLI(t, testEnv(cdn.URL), "-key", "nope")
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.True(t, out[0].IsDefaultValue)
	assert.Equal(t, "setting_key_missing", out[0].ErrorCode)
	assert.Nil(t, out[0].Value)
}

func TestRun_Filter(t *testing.T) {
	cdn := newCDN(t, http.StatusOK)

	out, err := runCLI(t, testEnv(cdn.URL), "-filter", `Key startsWith "plan" || Value == true`)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "enabled", out[0].Key)
	assert.Equal(t, "plan-limit", out[1].Key)
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing sdk key", func(t *testing.T) {
		_, err := runCLI(t, map[string]string{})
		assert.ErrorContains(t, err, "PENNANT_SDK_KEY")
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := runCLI(t, testEnv("http://localhost"), "-filter", "Key +")
		assert.ErrorContains(t, err, "invalid filter")
	})

	t.Run("bad attribute", func(t *testing.T) {
		_, err := runCLI(t, testEnv("http://localhost"), "-attr", "novalue")
		assert.Error(t, err)
	})

	t.Run("help", func(t *testing.T) {
		_, err := runCLI(t, testEnv("http://localhost"), "-h")
		assert.ErrorIs(t, err, flag.ErrHelp)
	})

	t.Run("download fails without cache", func(t *testing.T) {
		cdn := newCDN(t, http.StatusForbidden)
		_, err := runCLI(t, testEnv(cdn.URL))
		assert.ErrorContains(t, err, "invalid_credentials")
	})
}

func TestRun_DiskCacheFallback(t *testing.T) {
	dir := t.TempDir()
	cdn := newCDN(t, http.StatusOK)
	env := testEnv(cdn.URL)
	env["PENNANT_CACHE_DIR"] = dir

	_, err := runCLI(t, env, "-key", "enabled")
	require.NoError(t, err)

	down := newCDN(t, http.StatusInternalServerError)
	env["PENNANT_BASE_URL"] = down.URL

	out, err := runCLI(t, env, "-key", "enabled")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, true, out[0].Value)
}

func TestEvaluationUser(t *testing.T) {
	assert.Nil(t, options{attrs: attrFlag{}}.evaluationUser())

	u := options{user: "u1", attrs: attrFlag{"plan": "pro"}}.evaluationUser()
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.Identifier)
	assert.Equal(t, "pro", u.Custom["plan"])
}
