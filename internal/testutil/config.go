package testutil

import (
	"testing"

	"github.com/spf13/viper"
)

// ResetViper resets viper and schedules another reset when the test completes.
func ResetViper(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetCredentialEnv sets the provider credential environment variables for the
// duration of the test. Empty values are set as empty, not unset.
func SetCredentialEnv(t *testing.T, rawgKey, igdbClientID, igdbClientSecret string) {
	t.Helper()

	t.Setenv("RAWG_API_KEY", rawgKey)
	t.Setenv("IGDB_CLIENT_ID", igdbClientID)
	t.Setenv("IGDB_CLIENT_SECRET", igdbClientSecret)
}
