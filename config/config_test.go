package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	viper.Reset()
	SetDefaults()

	require.NoError(t, Validate())
	assert.Equal(t, "sqlite", viper.GetString("db.driver"))
	assert.Equal(t, 10, viper.GetInt("security.rate_limit"))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"log level", "app.log_level", "loud"},
		{"port", "host.port", 0},
		{"db driver", "db.driver", "mysql"},
		{"storage", "storage.type", "ftp"},
		{"upload size", "upload.max_size", -1},
		{"rate limit", "security.rate_limit", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			SetDefaults()
			viper.Set(tt.key, tt.val)

			assert.Error(t, Validate())
		})
	}
}

func TestValidateBucketNeedsCredentials(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("storage.bucket", "media")

	assert.Error(t, Validate())

	viper.Set("storage.access_key_id", "id")
	viper.Set("storage.secret_access_key", "secret")
	viper.Set("storage.cdn_url", "https://cdn.example.com")

	assert.NoError(t, Validate())
}

func TestValidateTurnstileNeedsSecret(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("cloudflare.turnstile.enabled", true)

	assert.Error(t, Validate())
}
