package pennant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

// TestConfigError_Error tests ConfigError formatting
func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "BaseURL", Message: "invalid URL"}
	assert.Equal(t, "configuration error [BaseURL]: invalid URL", err.Error())
}

// TestRefreshErrorCodeOf tests code extraction from wrapped errors
func TestRefreshErrorCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RefreshErrorCode
	}{
		{"nil", nil, RefreshErrorNone},
		{"plain error", errors.New("boom"), RefreshErrorNone},
		{"refresh error", domain.NewRefreshError(RefreshErrorHTTPTimeout, "timed out", nil), RefreshErrorHTTPTimeout},
		{"wrapped", fmt.Errorf("refresh: %w", domain.NewRefreshError(RefreshErrorInvalidCredentials, "forbidden", nil)), RefreshErrorInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RefreshErrorCodeOf(tt.err))
		})
	}
}

// TestErrorCodeNames tests the names exposed in logs and admin responses
func TestErrorCodeNames(t *testing.T) {
	assert.Equal(t, "setting_key_missing", EvaluationErrorSettingKeyMissing.String())
	assert.Equal(t, "offline_client", RefreshErrorOfflineClient.String())
	assert.Equal(t, "has_up_to_date_flag_data", HasUpToDateFlagData.String())
}

// TestIsCancelled tests telling cancelled refreshes apart from CDN failures
func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(domain.NewRefreshError(RefreshErrorUnexpected, "cancelled", context.Canceled)))
	assert.True(t, IsCancelled(fmt.Errorf("refresh: %w", context.DeadlineExceeded)))
	assert.False(t, IsCancelled(domain.NewRefreshError(RefreshErrorHTTPTimeout, "timed out", nil)))
	assert.False(t, IsCancelled(nil))
}
