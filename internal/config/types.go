package config

type Config struct {
	API       APIConfig       `json:"api"`
	SMTP      SMTPConfig      `json:"smtp"`
	AI        AIConfig        `json:"ai"`
	Audit     AuditConfig     `json:"audit"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics,omitempty"`
	Pprof     PprofConfig     `json:"pprof,omitempty"`
}

// APIConfig controls the project-management API client.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// The api key should normally come from the WORKGUARD_API_KEY environment
// variable rather than the file.
type APIConfig struct {
	BaseURL     string `json:"base_url"`
	APIKey      string `json:"api_key,omitempty"`
	EmailDomain string `json:"email_domain"`
	Timezone    string `json:"timezone,omitempty"` // default "Europe/Moscow"

	PageSize          int `json:"page_size,omitempty"`
	BatchSize         int `json:"batch_size,omitempty"`
	Workers           int `json:"workers,omitempty"`
	QueueSize         int `json:"queue_size,omitempty"`
	MaxPages          int `json:"max_pages,omitempty"`
	SubtaskRatePerSec int `json:"subtask_rate_per_sec,omitempty"`

	Timeout     string `json:"timeout,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	RetryBase   string `json:"retry_base,omitempty"`
}

// SMTPConfig controls outgoing mail. Port 465 selects implicit TLS,
// anything else upgrades via STARTTLS. The password should come from
// WORKGUARD_SMTP_PASSWORD.
type SMTPConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	Username           string `json:"username"`
	Password           string `json:"password,omitempty"`
	From               string `json:"from,omitempty"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty"`
	RetryCount         int    `json:"retry_count,omitempty"`
	RetryBase          string `json:"retry_base,omitempty"`
	RatePerMinute      int    `json:"rate_per_minute,omitempty"`
}

// AIConfig controls the comment-scoring oracle.
type AIConfig struct {
	URL          string `json:"url,omitempty"`
	Model        string `json:"model,omitempty"`
	MaxAttempts  int    `json:"max_attempts,omitempty"`
	RetryDelay   string `json:"retry_delay,omitempty"`
	HTTPAttempts int    `json:"http_attempts,omitempty"`
}

// ModuleBlock is the common per-rule section. Cadence is a 6-field
// "sec min hour day month weekday" expression with numeric fields only.
type ModuleBlock struct {
	Cadence  string `json:"cadence,omitempty"`
	Enabled  bool   `json:"enabled"`
	Lookback string `json:"lookback,omitempty"` // default "24h"
}

type TaskHierarchyBlock struct {
	ModuleBlock
	MaxHoursGap int64  `json:"max_hours_gap,omitempty"` // default 12
	AdminEmail  string `json:"admin_email,omitempty"`
}

type TaskTimeBlock struct {
	ModuleBlock
	ExcludePatterns  []string `json:"exclude_patterns,omitempty"`
	AllowDepartments []string `json:"allow_departments,omitempty"`
}

type CommentQualityBlock struct {
	ModuleBlock
	MinHours float64 `json:"min_hours,omitempty"` // default 1
}

type HousekeepingBlock struct {
	Cadence string `json:"cadence,omitempty"`
	Enabled bool   `json:"enabled"`
}

type AuditConfig struct {
	WorkTime       ModuleBlock         `json:"worktime"`
	TaskHierarchy  TaskHierarchyBlock  `json:"taskhierarchy"`
	TaskTime       TaskTimeBlock       `json:"tasktime"`
	ClosedTask     ModuleBlock         `json:"closedtask"`
	CommentQuality CommentQualityBlock `json:"commentquality"`
	Housekeeping   HousekeepingBlock   `json:"housekeeping"`
}

type SchedulerConfig struct {
	Workers     int    `json:"workers,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	StopTimeout string `json:"stop_timeout,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:9109"
}

// PprofConfig controls the optional pprof HTTP server. Prefer binding to
// localhost; a non-loopback bind requires a token or allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default "/debug/pprof/"
	Token         string `json:"token,omitempty"`  // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}
