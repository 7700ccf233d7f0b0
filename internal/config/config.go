package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Server       ServerConfig       `env:",prefix=SERVER_"`
	Postgres     PostgresConfig     `env:",prefix=POSTGRES_"`
	Redis        RedisConfig        `env:",prefix=REDIS_"`
	JWT          JWTConfig          `env:",prefix=JWT_"`
	Security     SecurityConfig     `env:",prefix="`
	CORS         CORSConfig         `env:",prefix=CORS_"`
	SMTP         SMTPConfig         `env:",prefix=SMTP_"`
	App          AppConfig          `env:",prefix=APP_"`
	Verification VerificationConfig `env:",prefix="`
	Env          string             `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host        string `env:"HOST,default=localhost"`
	Port        string `env:"PORT,default=5432"`
	User        string `env:"USER,default=auth_service"`
	Password    string `env:"PASSWORD,default=auth_service_password"`
	DBName      string `env:"DB,default=auth_service_db"`
	SSLMode     string `env:"SSLMODE,default=disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=true"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// JWTConfig holds signing settings. A zero AccessTokenExpiry is resolved
// by Load depending on the environment.
type JWTConfig struct {
	Secret             string   `env:"SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=14d"`
}

type SecurityConfig struct {
	BCryptCost int `env:"BCRYPT_COST,default=12"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// SMTPConfig configures outgoing mail. An empty Host selects the log-only mailer.
type SMTPConfig struct {
	Host      string `env:"HOST,default="`
	Port      int    `env:"PORT,default=587"`
	Username  string `env:"USERNAME,default="`
	Password  string `env:"PASSWORD,default="`
	From      string `env:"FROM,default=no-reply@localhost"`
	TLSPolicy string `env:"TLS_POLICY,default=opportunistic"`
}

type AppConfig struct {
	Name          string `env:"NAME,default=Auth Service"`
	ClientBaseURL string `env:"CLIENT_BASE_URL,default=http://localhost:3000/"`
}

type VerificationConfig struct {
	OTPTTL         Duration `env:"OTP_TTL,default=5m"`
	ResetTokenTTL  Duration `env:"RESET_TOKEN_TTL,default=2h"`
	ReaperInterval Duration `env:"REAPER_INTERVAL,default=1h"`
	ReaperGrace    Duration `env:"REAPER_GRACE,default=1d"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// IsProduction reports whether the service runs in production mode
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// IsDevelopment reports whether full error diagnostics may be exposed
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Load loads configuration from environment variables.
// Values from .env.<ENV> are applied first without overriding the real environment.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate JWT secret length
	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.JWT.AccessTokenExpiry.Duration == 0 {
		config.JWT.AccessTokenExpiry.Duration = defaultAccessTokenExpiry(config.Env)
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}

func defaultAccessTokenExpiry(env string) time.Duration {
	if env == EnvProduction {
		return 5 * time.Minute
	}
	return 24 * time.Hour
}

func loadDotEnv() error {
	env := os.Getenv("ENV")
	if env == "" {
		env = EnvDevelopment
	}

	if err := godotenv.Load(".env." + env); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env.%s: %w", env, err)
	}
	return nil
}
