package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file from the working directory when one exists.
func LoadEnv() {
	godotenv.Load()
}

type Config struct {
	DSN  string `env:"DB,required"`
	Port string `env:"GIN_PORT,default=8080"`

	JWTSecret  string        `env:"SECRET,required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL,default=720h"`
	CronSecret string        `env:"CRON_SECRET"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"` // text|json

	CORSOrigins string `env:"CORS_ORIGINS,default=*"`

	RedisURL       string  `env:"REDIS_URL"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=20"`

	GatewayBaseURL   string `env:"PAYSTACK_BASE_URL,default=https://api.paystack.co"`
	GatewaySecretKey string `env:"PAYSTACK_SECRET_KEY"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM,default=no-reply@elitehub.ng"`
	MailFromName   string `env:"MAIL_FROM_NAME,default=EliteHub"`

	ShareBaseURL     string        `env:"SHARE_BASE_URL,default=https://elitehub.ng/signup"`
	ExchangeRatesURL string        `env:"EXCHANGE_RATES_URL,default=https://open.er-api.com/v6/latest/USD"`
	RetainRead       time.Duration `env:"NOTIFICATION_RETENTION,default=720h"`
}

// LoadConfig decodes Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, err
	}
	return cfg, nil
}

// Origins splits CORSOrigins into the list gin-contrib/cors expects.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
