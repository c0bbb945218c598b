package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("MCP_OFFICE_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMailRatePerMinute, cfg.MailRatePerMinute)
	assert.Equal(t, DefaultNetworkTimeout, cfg.NetworkTimeout)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.NotEmpty(t, cfg.OutputDir)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir: /srv/office
disabled_tools: [send_email]
network_timeout: 5s
smtp:
  host: smtp.example.com
  port: 2525
`), 0600))

	t.Setenv("SMTP_HOST", "mail.internal")
	t.Setenv("DISABLED_TOOLS", "send_email, merge_pdfs")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/office", cfg.OutputDir)
	assert.Equal(t, 5*time.Second, cfg.NetworkTimeout)
	assert.Equal(t, "mail.internal", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, []string{"send_email", "merge_pdfs"}, cfg.DisabledTools)
}

func TestApplyEnv_RejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"SMTP_PORT":                  "abc",
		"LOG_TOOL_ERRORS":            "maybe",
		"MCP_OFFICE_NETWORK_TIMEOUT": "soon",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			})
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.SMTP.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MailRatePerMinute = -1
	assert.Error(t, cfg.Validate())
}
