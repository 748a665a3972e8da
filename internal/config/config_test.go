package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"JWT_SECRET": "s3cret"}))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Addr())
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, EmailProviderLog, cfg.EmailProvider)
	require.Equal(t, 10*time.Second, cfg.EmailTimeout)
	require.Equal(t, 4, cfg.NotifyWorkers)
	require.Equal(t, 256, cfg.NotifyQueueSize)
	require.Equal(t, 587, cfg.SMTPPort)
	require.True(t, cfg.EnforceCloseDate)
	require.Empty(t, cfg.MongoURI)
	require.Empty(t, cfg.RedisURL)
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		expectError string
		check       func(t *testing.T, cfg Config)
	}{
		{
			name: "sendgrid_configured",
			env: map[string]string{
				"JWT_SECRET": "s", "EMAIL_PROVIDER": "SendGrid", "SENDGRID_API_KEY": "SG.key",
				"PORT": ":9090", "ENFORCE_CLOSE_DATE": "false", "EMAIL_TIMEOUT": "3s", "NOTIFY_WORKERS": "8",
			},
			check: func(t *testing.T, cfg Config) {
				require.Equal(t, EmailProviderSendGrid, cfg.EmailProvider)
				require.Equal(t, ":9090", cfg.Addr())
				require.False(t, cfg.EnforceCloseDate)
				require.Equal(t, 3*time.Second, cfg.EmailTimeout)
				require.Equal(t, 8, cfg.NotifyWorkers)
			},
		},
		{
			name:        "missing_secret",
			env:         map[string]string{},
			expectError: "JWT_SECRET not set",
		},
		{
			name:        "sendgrid_without_key",
			env:         map[string]string{"JWT_SECRET": "s", "EMAIL_PROVIDER": "sendgrid"},
			expectError: "SENDGRID_API_KEY not set",
		},
		{
			name:        "smtp_without_host",
			env:         map[string]string{"JWT_SECRET": "s", "EMAIL_PROVIDER": "smtp"},
			expectError: "SMTP_HOST not set",
		},
		{
			name:        "unknown_provider",
			env:         map[string]string{"JWT_SECRET": "s", "EMAIL_PROVIDER": "pigeon"},
			expectError: "unknown provider",
		},
		{
			name:        "bad_numbers",
			env:         map[string]string{"JWT_SECRET": "s", "SMTP_PORT": "abc", "ENFORCE_CLOSE_DATE": "maybe", "EMAIL_TIMEOUT": "-1s"},
			expectError: "SMTP_PORT",
		},
		{
			name:        "zero_workers",
			env:         map[string]string{"JWT_SECRET": "s", "NOTIFY_WORKERS": "0"},
			expectError: "NOTIFY_WORKERS must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromEnv(envOf(tt.env))
			if tt.expectError != "" {
				require.ErrorContains(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
