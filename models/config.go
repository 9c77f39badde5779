package models

// Config carries the service configuration, loaded from yaml by the cli
// package and passed down to every service.
type Config struct {
	Port    string `json:"port" yaml:"port"`
	IsDebug bool   `json:"is_debug" yaml:"is_debug"`

	DatabaseURL    string `json:"db_url" yaml:"db_url"`
	DatabasePath   string `json:"db_path" yaml:"db_path"`
	DatabaseDriver string `json:"db_driver" yaml:"db_driver"`

	RedisAddress  string `json:"redis_address" yaml:"redis_address"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`

	SessionTTLHours int  `json:"session_ttl_hours" yaml:"session_ttl_hours"`
	CookieSecure    bool `json:"cookie_secure" yaml:"cookie_secure"`

	GoogleClientID     string `json:"google_client_id" yaml:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret" yaml:"google_client_secret"`
	GoogleRedirectURL  string `json:"google_redirect_url" yaml:"google_redirect_url"`
	// Endpoint overrides used by tests; empty means Google's endpoints.
	GoogleTokenURL    string `json:"google_token_url,omitempty" yaml:"google_token_url"`
	GoogleUserInfoURL string `json:"google_userinfo_url,omitempty" yaml:"google_userinfo_url"`

	AdminEmail    string `json:"admin_email" yaml:"admin_email"`
	AdminPassword string `json:"admin_password" yaml:"admin_password"`

	LogSamplingTickMs  int `json:"log_sampling_tick_ms" yaml:"log_sampling_tick_ms"`
	LogSamplingAfterMs int `json:"log_sampling_after_ms" yaml:"log_sampling_after_ms"`
}

// Defaults fills zero values with sane development defaults.
func (c *Config) Defaults() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.DatabasePath == "" && c.DatabaseURL == "" {
		c.DatabasePath = "scholarseek.db"
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = 24 * 7
	}
}
