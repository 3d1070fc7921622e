package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	// BackendStore хранит подтверждения 2FA в основном хранилище (postgres или memory).
	BackendStore = "store"
	BackendRedis = "redis"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local" validate:"oneof=local dev prod"`
	Storage    string `yaml:"storage" env:"STORAGE" env-default:"postgres" validate:"oneof=postgres memory"`
	Auth       `yaml:"auth"`
	Tokens     `yaml:"tokens"`
	TwoFactor  `yaml:"two_factor"`
	Cleanup    `yaml:"cleanup"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	HTTPServer `yaml:"http_server"`
	Email      `yaml:"email"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Auth - настройки входа: страницы входа/ошибки, стратегия сессии и адрес после входа.
type Auth struct {
	SignInPath      string `yaml:"sign_in_path" env-default:"/auth/login" validate:"startswith=/"`
	ErrorPath       string `yaml:"error_path" env-default:"/auth/error" validate:"startswith=/"`
	SessionStrategy string `yaml:"session_strategy" env-default:"jwt" validate:"oneof=jwt"`
	DefaultRedirect string `yaml:"default_redirect" env-default:"/settings" validate:"startswith=/"`
	BaseURL         string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080" validate:"url"`
	BcryptCost      int    `yaml:"bcrypt_cost" env-default:"10" validate:"min=4,max=31"`
}

type Tokens struct {
	SessionTTL           time.Duration `yaml:"session_ttl" env-default:"720h" validate:"gt=0"`
	SessionSecret        string        `yaml:"session_secret" env:"SESSION_SECRET" env-required:"true" validate:"required"`
	VerificationTokenTTL time.Duration `yaml:"verification_token_ttl" env-default:"1h" validate:"gt=0"`
	PasswordResetTTL     time.Duration `yaml:"password_reset_ttl" env-default:"1h" validate:"gt=0"`
	TwoFactorCodeTTL     time.Duration `yaml:"two_factor_code_ttl" env-default:"5m" validate:"gt=0"`
}

type TwoFactor struct {
	Backend         string        `yaml:"backend" env:"TWO_FACTOR_BACKEND" env-default:"store" validate:"oneof=store redis"`
	ConfirmationTTL time.Duration `yaml:"confirmation_ttl" env-default:"10m" validate:"gt=0"`
}

type Cleanup struct {
	Schedule string `yaml:"schedule" env-default:"@every 15m"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env-default:"emails"`
}

type Email struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

// * Load читает yaml с переопределением из env и валидирует результат
func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to read config: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Storage == StoragePostgres && (c.Postgres.User == "" || c.Postgres.DBName == "") {
		return errors.New("postgres user and dbname are required for postgres storage")
	}

	return nil
}

// MailerConfig - настройки cmd/mail_sender: ему нужны только брокер и SMTP.
type MailerConfig struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local" validate:"oneof=local dev prod"`
	RabbitMQ `yaml:"rabbitmq"`
	Email    `yaml:"email"`
}

func MustLoadMailer(configPath string) *MailerConfig {
	cfg, err := LoadMailer(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

// * LoadMailer читает тот же yaml, что и Load, но проверяет только секции брокера и почты
func LoadMailer(configPath string) (*MailerConfig, error) {
	const op = "config.LoadMailer"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	var cfg MailerConfig

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to read config: %w", op, err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq url is required", op)
	}

	return &cfg, nil
}

// * DSN формирует строку подключения к базе данных
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}
