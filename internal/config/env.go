package config

import "os"

// Environment variables that override file values. Secrets belong here,
// not in the config file.
const (
	EnvAPIKey       = "WORKGUARD_API_KEY"
	EnvSMTPPassword = "WORKGUARD_SMTP_PASSWORD"
	EnvAdminEmail   = "WORKGUARD_ADMIN_EMAIL"
)

// ApplyEnv overlays environment variables onto a parsed config. Applied
// after every parse, including hot reloads.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv(EnvSMTPPassword); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv(EnvAdminEmail); v != "" {
		cfg.Audit.TaskHierarchy.AdminEmail = v
	}
}
