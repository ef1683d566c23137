package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
api:
  base_url: https://megaplan.example.com
  api_key: file-key
  email_domain: example.com
smtp:
  host: smtp.example.com
  port: 587
  username: audit@example.com
  password: file-secret
audit:
  worktime:
    cadence: "0 0 9 * * *"
    enabled: true
    lookback: 24h
  taskhierarchy:
    cadence: "0 30 9 * * *"
    enabled: true
    admin_email: admin@example.com
    max_hours_gap: 12
  tasktime:
    enabled: false
  closedtask:
    enabled: false
  commentquality:
    enabled: false
  housekeeping:
    enabled: false
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
scheduler:
  stop_timeout: 30s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestManagerLoad(t *testing.T) {
	m := NewManager(writeConfig(t, validYAML), zerolog.Nop())

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://megaplan.example.com", cfg.API.BaseURL)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "0 0 9 * * *", cfg.Audit.WorkTime.Cadence)
	assert.Equal(t, int64(12), cfg.Audit.TaskHierarchy.MaxHoursGap)
	assert.Same(t, cfg, m.Get())
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := NewManager(writeConfig(t, validYAML+"\nbogus_section:\n  x: 1\n"), zerolog.Nop())

	_, err := m.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus_section")
}

func TestParseEnvOverlay(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvSMTPPassword, "env-secret")
	t.Setenv(EnvAdminEmail, "boss@example.com")

	m := NewManager(writeConfig(t, validYAML), zerolog.Nop())
	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.API.APIKey)
	assert.Equal(t, "env-secret", cfg.SMTP.Password)
	assert.Equal(t, "boss@example.com", cfg.Audit.TaskHierarchy.AdminEmail)
}

func TestValidateRequiredFields(t *testing.T) {
	err := Validate(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url is required")
	assert.Contains(t, err.Error(), "api.api_key is required")
	assert.Contains(t, err.Error(), "smtp.host is required")
	assert.Contains(t, err.Error(), "smtp.username is required")
	assert.Contains(t, err.Error(), "smtp.password is required")
	assert.Contains(t, err.Error(), "smtp.port 0 out of range")
}

func TestValidateAuditSections(t *testing.T) {
	m := NewManager(writeConfig(t, validYAML), zerolog.Nop())
	cfg, err := m.Parse()
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	bad := *cfg
	bad.Audit.WorkTime.Cadence = "*/5 * * * * *"
	err = Validate(&bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit.worktime.cadence")

	bad = *cfg
	bad.Audit.WorkTime.Lookback = "yesterday"
	err = Validate(&bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit.worktime.lookback")

	bad = *cfg
	bad.Audit.TaskHierarchy.AdminEmail = ""
	err = Validate(&bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit.taskhierarchy.admin_email")

	// Disabled modules are not validated.
	bad = *cfg
	bad.Audit.TaskTime.Cadence = "not a cadence"
	assert.NoError(t, Validate(&bad))
}

func TestValidateBadDurationAndTimezone(t *testing.T) {
	m := NewManager(writeConfig(t, validYAML), zerolog.Nop())
	cfg, err := m.Parse()
	require.NoError(t, err)

	cfg.Scheduler.StopTimeout = "30 seconds"
	cfg.API.Timezone = "Mars/Olympus"
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.stop_timeout")
	assert.Contains(t, err.Error(), "api.timezone")
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	m := NewManager(writeConfig(t, "api:\n  base_url: https://x\n"), zerolog.Nop())
	_, err := m.Load()
	require.Error(t, err)
	assert.Nil(t, m.Get())
}
