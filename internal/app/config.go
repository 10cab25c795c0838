package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	iauth "github.com/calebmorten/shiftrelief/internal/auth"
	"github.com/calebmorten/shiftrelief/pkg/mail"
)

// Config is the full runtime configuration, loadable from config.yaml and
// overridable via SHIFTRELIEF_* environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Email    EmailConfig    `mapstructure:"email"`
	Locale   LocaleConfig   `mapstructure:"locale"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig selects and parameterises the storage driver.
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"`
	DSN      string         `mapstructure:"dsn"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// MySQLConfig holds MySQL connection parameters.
type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig holds the signing parameters for access tokens.
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// JWTServiceConfig converts the configuration into the auth package's form.
func (c AuthConfig) JWTServiceConfig() iauth.JWTConfig {
	return iauth.JWTConfig{
		Secret:         strings.TrimSpace(c.JWT.Secret),
		Issuer:         strings.TrimSpace(c.JWT.Issuer),
		AccessTokenTTL: c.JWT.AccessTokenTTL,
	}
}

// EmailConfig holds outbound SMTP settings. When disabled, coordination still
// works and only in-app notifications are produced.
type EmailConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SMTPSettings converts the configuration into the mail package's form.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.Enabled,
		Host:     strings.TrimSpace(c.Host),
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     strings.TrimSpace(c.From),
		UseTLS:   c.UseTLS,
		Timeout:  c.Timeout,
	}
}

// LocaleConfig lists the notification languages the center supports. The
// default is used when a worker's preferences match none of them.
type LocaleConfig struct {
	Supported []string `mapstructure:"supported"`
	Default   string   `mapstructure:"default"`
}

// SweepConfig controls the background expiration job.
type SweepConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig reads configuration from the given directories (falling back to
// the working directory and /etc/shiftrelief), merging environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if len(paths) == 0 {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/shiftrelief")
	}
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("SHIFTRELIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Auth.JWT.Secret) == "" {
		return errors.New("auth.jwt.secret must be configured")
	}
	if c.Email.Enabled && strings.TrimSpace(c.Email.Host) == "" {
		return errors.New("email.host must be configured when email is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/shiftrelief.db")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.mysql.port", 3306)

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "shiftrelief")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.port", 587)
	v.SetDefault("email.timeout", "10s")

	v.SetDefault("locale.supported", []string{"en", "es"})
	v.SetDefault("locale.default", "en")

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.schedule", "@hourly")
}
