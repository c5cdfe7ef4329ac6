package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	MailSMTP     = "smtp"
	MailPostmark = "postmark"
	MailLog      = "log"
)

type Config struct {
	Environment           string   `env:"APP_ENV" envDefault:"development"`
	Port                  string   `env:"PORT" envDefault:"4000"`
	ServerURL             string   `env:"SERVER_URL" envDefault:"http://localhost:4000"`
	FrontendURL           string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	CompanyName           string   `env:"COMPANY_NAME" envDefault:"EstateHub"`
	LogLevel              string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFile               string   `env:"LOG_FILE"`
	StoreDriver           string   `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL           string   `env:"DATABASE_URL"`
	MongoURL              string   `env:"MONGODB_URL"`
	MongoDatabase         string   `env:"MONGODB_DATABASE" envDefault:"estatehub"`
	RedisURL              string   `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	TrustedProxies        []string `env:"TRUSTED_PROXIES" envSeparator:","`
	RevokeSessionsOnReset bool     `env:"REVOKE_SESSIONS_ON_RESET" envDefault:"false"`
	Token                 TokenConfig
	Email                 EmailConfig
	OAuth                 OAuthConfig
}

type TokenConfig struct {
	AccessSecret  string        `env:"JWT_SECRET"`
	AccessTTL     time.Duration `env:"JWT_EXPIRES_IN" envDefault:"15m"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_EXPIRES_IN" envDefault:"168h"`
}

type EmailConfig struct {
	Driver               string `env:"MAIL_DRIVER" envDefault:"smtp"`
	Host                 string `env:"EMAIL_SERVER_HOST"`
	Port                 int    `env:"EMAIL_SERVER_PORT" envDefault:"465"`
	Username             string `env:"EMAIL_SERVER_USER"`
	Password             string `env:"EMAIL_SERVER_PASSWORD"`
	From                 string `env:"EMAIL_FROM"`
	Secure               bool   `env:"EMAIL_SERVER_SECURE" envDefault:"true"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (p OAuthProvider) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type OAuthConfig struct {
	Google OAuthProvider
	GitHub OAuthProvider
}

type oauthEnv struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
}

// Load reads .env (when present) and the process environment once. The
// returned value is meant to be passed around, never re-read.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	var oe oauthEnv
	if err := env.Parse(&oe); err != nil {
		return Config{}, fmt.Errorf("parse oauth config: %w", err)
	}

	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}
	cfg.Environment = strings.ToLower(clean(cfg.Environment))
	cfg.StoreDriver = strings.ToLower(clean(cfg.StoreDriver))
	cfg.Email.Driver = strings.ToLower(clean(cfg.Email.Driver))
	cfg.Email.Host = clean(cfg.Email.Host)
	cfg.Email.Username = clean(cfg.Email.Username)
	cfg.Email.Password = clean(cfg.Email.Password)
	cfg.Email.From = clean(cfg.Email.From)
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	cfg.OAuth = OAuthConfig{
		Google: OAuthProvider{
			ClientID:     oe.GoogleClientID,
			ClientSecret: oe.GoogleClientSecret,
			RedirectURL:  cfg.ServerURL + "/api/oauth/google/callback",
		},
		GitHub: OAuthProvider{
			ClientID:     oe.GitHubClientID,
			ClientSecret: oe.GitHubClientSecret,
			RedirectURL:  cfg.ServerURL + "/api/oauth/github/callback",
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("APP_ENV must be one of development, production, test; got %q", c.Environment)
	}

	if c.Token.AccessSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Token.RefreshSecret == "" {
		return errors.New("JWT_REFRESH_SECRET is required")
	}
	if c.Token.AccessSecret == c.Token.RefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}

	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case StoreMongo:
		if c.MongoURL == "" {
			return errors.New("MONGODB_URL is required")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.Email.Driver {
	case MailSMTP, MailLog:
	case MailPostmark:
		if c.Email.PostmarkServerToken == "" || c.Email.PostmarkAccountToken == "" {
			return errors.New("POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required")
		}
	default:
		return fmt.Errorf("unknown MAIL_DRIVER %q", c.Email.Driver)
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
