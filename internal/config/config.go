package config

import "time"

// Config holds every recognized client option. It is passed explicitly to
// the controller at construction; there is no module-level state.
type Config struct {
	Account  string `mapstructure:"account" yaml:"account"`
	Password string `mapstructure:"password" yaml:"password"`
	Nickname string `mapstructure:"nickname" yaml:"nickname"`

	SolveCaptchas  bool   `mapstructure:"solve_captchas" yaml:"solve_captchas"`
	AntiCaptchaKey string `mapstructure:"anti_captcha_key" yaml:"anti_captcha_key"`

	// FallbackVersion is used when the room page yields no protocol
	// version.
	FallbackVersion string `mapstructure:"fallback_version" yaml:"fallback_version"`

	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Origin  string `mapstructure:"origin" yaml:"origin"`

	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	PongTimeout time.Duration `mapstructure:"pong_timeout" yaml:"pong_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Debug    bool   `mapstructure:"debug" yaml:"debug"`
}

// Default returns configuration with the protocol's standard timings.
func Default() Config {
	return Config{
		FallbackVersion: "2.0.10-296",
		BaseURL:         "https://tinychat.com",
		Origin:          "https://tinychat.com",
		ReadTimeout:     30 * time.Second,
		PongTimeout:     10 * time.Second,
		LogLevel:        "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Account != "" {
		c.Account = other.Account
	}
	if other.Password != "" {
		c.Password = other.Password
	}
	if other.Nickname != "" {
		c.Nickname = other.Nickname
	}
	if other.SolveCaptchas {
		c.SolveCaptchas = true
	}
	if other.AntiCaptchaKey != "" {
		c.AntiCaptchaKey = other.AntiCaptchaKey
	}
	if other.FallbackVersion != "" {
		c.FallbackVersion = other.FallbackVersion
	}
	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
	}
	if other.Origin != "" {
		c.Origin = other.Origin
	}
	if other.ReadTimeout != 0 {
		c.ReadTimeout = other.ReadTimeout
	}
	if other.PongTimeout != 0 {
		c.PongTimeout = other.PongTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Debug {
		c.Debug = true
	}
}
