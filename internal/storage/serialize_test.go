package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

const sampleJSON = `{"f":{"flag":{"t":0,"v":{"b":true}}}}`

func samplePC(t *testing.T, fetchTime time.Time, etag string) *domain.ProjectConfig {
	t.Helper()
	cfg, err := domain.ParseConfig([]byte(sampleJSON))
	require.NoError(t, err)
	return domain.NewProjectConfig(sampleJSON, cfg, fetchTime, etag)
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got, err := Deserialize(Serialize(domain.EmptyProjectConfig))
		require.NoError(t, err)
		assert.True(t, got.IsEmpty())
		assert.True(t, got.Equal(domain.EmptyProjectConfig))
		assert.True(t, got.FetchTime.IsZero())
	})

	t.Run("populated", func(t *testing.T) {
		pc := samplePC(t, time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC), `"abc"`)

		got, err := Deserialize(Serialize(pc))
		require.NoError(t, err)
		assert.True(t, got.Equal(pc))
		assert.Equal(t, pc.Config, got.Config)
	})
}

func TestSerialize_Format(t *testing.T) {
	pc := samplePC(t, time.UnixMilli(1700000000123).UTC(), "etag-1")
	assert.Equal(t, "1700000000.123\netag-1\n"+sampleJSON, Serialize(pc))
}

func TestDeserialize_AcceptsWholeSeconds(t *testing.T) {
	got, err := Deserialize("1700000000\n\n" + sampleJSON)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.FetchTime)
	assert.Equal(t, "", got.ETag)
	assert.False(t, got.IsEmpty())
}

func TestDeserialize_Invalid(t *testing.T) {
	for _, value := range []string{
		"",
		"1700000000",
		"1700000000\netag",
		"yesterday\netag\n{}",
		"NaN\netag\n{}",
		"1700000000\netag\n{not json",
	} {
		_, err := Deserialize(value)
		assert.ErrorIs(t, err, ErrInvalidCacheFormat, "%q", value)
	}
}

func TestKeyForSDKKey(t *testing.T) {
	a := KeyForSDKKey("sdk-key-1")
	assert.Len(t, a, 40)
	assert.Equal(t, a, KeyForSDKKey("sdk-key-1"))
	assert.NotEqual(t, a, KeyForSDKKey("sdk-key-2"))
}
