package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// MinSecretLength is the shortest HS512 signing secret accepted (512 bits).
const MinSecretLength = 64

var (
	ErrSecretTooShort   = errors.New("security.jwtsecret must be at least 64 bytes")
	ErrResetTTLTooLong  = errors.New("security.resetttl must be shorter than security.accessttl")
	ErrCookieNameEmpty  = errors.New("cookie.name is required")
	ErrUnknownStorage   = errors.New("storage.driver must be postgres or memory")
	ErrUnknownTransport = errors.New("mail.transport must be outbox, smtp or log")
	ErrCookieMaxAge     = errors.New("cookie.maxage must equal security.accessttl")
	ErrSMTPHostMissing  = errors.New("mail.smtp.host is required for the smtp transport")
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Driver string
}

type SecurityConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	ResetTTL   time.Duration
	BcryptCost int
}

type CookieConfig struct {
	Name   string
	Domain string
	MaxAge time.Duration
}

type AuthConfig struct {
	PublicRoutes      []string
	HeaderTokenRoutes []string
	DefaultRole       string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type MailConfig struct {
	Transport     string
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	SendTimeout   time.Duration
	OutboxMaxLen  int64
	From          string
	ClientURL     string
	SMTP          SMTPConfig
}

type JobsConfig struct {
	OutboxTrim string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Cookie           CookieConfig
	Auth             AuthConfig
	Mail             MailConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("TASKTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// An unset cookie lifetime follows the access token.
	if cfg.Cookie.MaxAge == 0 {
		cfg.Cookie.MaxAge = cfg.Security.AccessTTL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the token subsystem cannot run safely with.
func (c *AppConfig) Validate() error {
	if len(c.Security.JWTSecret) < MinSecretLength {
		return ErrSecretTooShort
	}
	if c.Security.ResetTTL >= c.Security.AccessTTL {
		return ErrResetTTLTooLong
	}
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return ErrCookieNameEmpty
	}
	if c.Cookie.MaxAge != c.Security.AccessTTL {
		return ErrCookieMaxAge
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return ErrUnknownStorage
	}
	switch c.Mail.Transport {
	case "outbox", "log":
	case "smtp":
		if strings.TrimSpace(c.Mail.SMTP.Host) == "" {
			return ErrSMTPHostMissing
		}
	default:
		return ErrUnknownTransport
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	// Keys without a real default still need registering so AutomaticEnv
	// values reach Unmarshal.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("cookie.maxage", "0s")
	v.SetDefault("mail.smtp.host", "")
	v.SetDefault("mail.smtp.username", "")
	v.SetDefault("mail.smtp.password", "")
	v.SetDefault("allowcorsorigins", []string{})

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("security.accessttl", "24h")
	v.SetDefault("security.resetttl", "5m")
	v.SetDefault("security.bcryptcost", 12)

	v.SetDefault("cookie.name", "access_token")
	v.SetDefault("cookie.domain", "localhost")

	v.SetDefault("auth.publicroutes", []string{
		"register",
		"login",
		"activate-account",
		"resend-activate-email",
		"send-reset-password-email",
		"test-no-auth",
		"index",
		"healthz",
		"metrics",
	})
	v.SetDefault("auth.headertokenroutes", []string{"update-password"})
	v.SetDefault("auth.defaultrole", "USER")

	v.SetDefault("mail.transport", "outbox")
	v.SetDefault("mail.stream", "mail:outbox")
	v.SetDefault("mail.group", "mailers")
	v.SetDefault("mail.consumer", "mailer-1")
	v.SetDefault("mail.claiminterval", "30s")
	v.SetDefault("mail.sendtimeout", "10s")
	v.SetDefault("mail.outboxmaxlen", 10000)
	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("mail.clienturl", "https://localhost:4200")
	v.SetDefault("mail.smtp.port", 587)

	v.SetDefault("jobs.outboxtrim", "0 0 * * * *") // hourly
}
