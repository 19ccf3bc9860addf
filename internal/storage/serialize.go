package storage

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

// ErrInvalidCacheFormat is returned for values that do not follow the
// "<timestamp>\n<etag>\n<config json>" layout.
var ErrInvalidCacheFormat = errors.New("invalid cache format")

// Serialize encodes pc as three newline-separated fields: Unix seconds with
// millisecond fraction, entity tag and raw config JSON.
func Serialize(pc *domain.ProjectConfig) string {
	if pc == nil {
		pc = domain.EmptyProjectConfig
	}
	var sb strings.Builder
	sb.WriteString(formatTimestamp(pc.FetchTime))
	sb.WriteByte('\n')
	sb.WriteString(pc.ETag)
	sb.WriteByte('\n')
	sb.WriteString(pc.ConfigJSON)
	return sb.String()
}

// Deserialize decodes a value produced by Serialize.
func Deserialize(value string) (*domain.ProjectConfig, error) {
	parts := strings.SplitN(value, "\n", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 fields, got %d", ErrInvalidCacheFormat, len(parts))
	}

	fetchTime, err := parseTimestamp(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCacheFormat, err)
	}

	etag, raw := parts[1], parts[2]
	if raw == "" {
		return domain.NewProjectConfig("", nil, fetchTime, etag), nil
	}

	cfg, err := domain.ParseConfig([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCacheFormat, err)
	}
	return domain.NewProjectConfig(raw, cfg, fetchTime, etag), nil
}

func formatTimestamp(t time.Time) string {
	ms := t.UnixMilli()
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%d.%03d", sign, ms/1000, ms%1000)
}

func parseTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("invalid fetch time %q", s)
	}
	return time.UnixMilli(int64(math.Round(f * 1000))).UTC(), nil
}
