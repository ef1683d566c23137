package config

import (
	"errors"
	"fmt"
	"time"

	"workguard/internal/schedule"
)

// Validate fails fast on anything the daemon cannot start with. Called at
// boot and again before a hot-reloaded config is committed.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var errs []error

	if cfg.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if cfg.API.APIKey == "" {
		errs = append(errs, errors.New("api.api_key is required (set WORKGUARD_API_KEY)"))
	}
	if cfg.API.Timezone != "" {
		if _, err := time.LoadLocation(cfg.API.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("api.timezone: %w", err))
		}
	}
	for path, raw := range map[string]string{
		"api.timeout":            cfg.API.Timeout,
		"api.retry_base":         cfg.API.RetryBase,
		"smtp.retry_base":        cfg.SMTP.RetryBase,
		"ai.retry_delay":         cfg.AI.RetryDelay,
		"scheduler.stop_timeout": cfg.Scheduler.StopTimeout,
	} {
		if _, err := parseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.SMTP.Host == "" {
		errs = append(errs, errors.New("smtp.host is required"))
	}
	if cfg.SMTP.Port < 1 || cfg.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp.port %d out of range", cfg.SMTP.Port))
	}
	if cfg.SMTP.Username == "" {
		errs = append(errs, errors.New("smtp.username is required"))
	}
	if cfg.SMTP.Password == "" {
		errs = append(errs, errors.New("smtp.password is required (set WORKGUARD_SMTP_PASSWORD)"))
	}

	if cfg.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}

	errs = append(errs, validateAudit(&cfg.Audit)...)

	return errors.Join(errs...)
}

func validateAudit(a *AuditConfig) []error {
	var errs []error

	check := func(name, cadence, lookback string, enabled bool) {
		if !enabled {
			return
		}
		if cadence != "" {
			if _, err := schedule.ParseCadence(cadence); err != nil {
				errs = append(errs, fmt.Errorf("audit.%s.cadence: %w", name, err))
			}
		}
		if _, err := parseDurationField("audit."+name+".lookback", lookback); err != nil {
			errs = append(errs, err)
		}
	}

	check("worktime", a.WorkTime.Cadence, a.WorkTime.Lookback, a.WorkTime.Enabled)
	check("taskhierarchy", a.TaskHierarchy.Cadence, a.TaskHierarchy.Lookback, a.TaskHierarchy.Enabled)
	check("tasktime", a.TaskTime.Cadence, a.TaskTime.Lookback, a.TaskTime.Enabled)
	check("closedtask", a.ClosedTask.Cadence, a.ClosedTask.Lookback, a.ClosedTask.Enabled)
	check("commentquality", a.CommentQuality.Cadence, a.CommentQuality.Lookback, a.CommentQuality.Enabled)

	if a.TaskHierarchy.Enabled && a.TaskHierarchy.AdminEmail == "" {
		errs = append(errs, errors.New("audit.taskhierarchy.admin_email is required when the module is enabled"))
	}
	if a.Housekeeping.Enabled && a.Housekeeping.Cadence != "" {
		if _, err := schedule.ParseCadence(a.Housekeeping.Cadence); err != nil {
			errs = append(errs, fmt.Errorf("audit.housekeeping.cadence: %w", err))
		}
	}

	return errs
}
