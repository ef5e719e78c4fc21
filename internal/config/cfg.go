package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	MailerSMTP  = "smtp"
	MailerLog   = "log"
	MailerQueue = "queue"
)

type Server struct {
	Host        string `envconfig:"SERVER_HOST" default:"localhost"`
	HTTPPort    string `envconfig:"SERVER_HTTP_PORT" default:"3001"`
	GrpcPort    string `envconfig:"SERVER_GRPC_PORT" default:"50051"`
	ReadTimeout int    `envconfig:"SERVER_TIMEOUT" default:"10"`
}

type Store struct {
	Backend string `envconfig:"STORE_BACKEND" default:"memory"`
}

type Db struct {
	Dialect string `envconfig:"DB_DIALECT" default:"sqlite"`
	Source  string `envconfig:"DB_NAME" default:"alerts.db"`
}

type Redis struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	DbType   int    `envconfig:"REDIS_DB_TYPE" default:"0"`
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	OfferTTL int    `envconfig:"REDIS_OFFER_TTL" default:"300"`
}

type Offers struct {
	BaseURL        string `envconfig:"OFFERS_BASE_URL" default:"https://www.nightjet.com/nj-booking-ocp"`
	Referer        string `envconfig:"OFFERS_REFERER" default:"https://www.nightjet.com/"`
	RequestTimeout int    `envconfig:"OFFERS_TIMEOUT" default:"10"`
}

type Breaker struct {
	TimeInterval int    `envconfig:"BREAKER_INTERVAL" default:"30"`
	TimeTimeOut  int    `envconfig:"BREAKER_TIMEOUT" default:"15"`
	RepeatNumber uint32 `envconfig:"BREAKER_REPEAT_NUM" default:"5"`
}

type Email struct {
	User     string `envconfig:"EMAIL_USER"`
	Host     string `envconfig:"EMAIL_HOST"`
	Port     string `envconfig:"EMAIL_PORT" default:"587"`
	Password string `envconfig:"EMAIL_PASSWORD"`
	From     string `envconfig:"EMAIL_FROM" default:"alerts@nightjet-notify.com"`
}

type Mailer struct {
	Mode string `envconfig:"MAILER_MODE" default:"log"`
}

type RabbitMQ struct {
	Host string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port string `envconfig:"RABBITMQ_PORT" default:"5672"`
	User string `envconfig:"RABBITMQ_USER" default:"guest"`
	Pass string `envconfig:"RABBITMQ_PASSWORD" default:"guest"`
}

type Checker struct {
	StalenessWindow     time.Duration `envconfig:"CHECKER_STALENESS_WINDOW" default:"1h"`
	Schedule            string        `envconfig:"CHECKER_SCHEDULE" default:"0 */10 * * * *"`
	CallTimeout         time.Duration `envconfig:"CHECKER_CALL_TIMEOUT" default:"15s"`
	Concurrency         int           `envconfig:"CHECKER_CONCURRENCY" default:"1"`
	LeaseTTL            time.Duration `envconfig:"CHECKER_LEASE_TTL" default:"10m"`
	Timezone            string        `envconfig:"CHECKER_TIMEZONE" default:"Local"`
	RepeatNotifications bool          `envconfig:"CHECKER_REPEAT_NOTIFICATIONS" default:"false"`
}

type Config struct {
	Server   Server
	Store    Store
	DB       Db
	Redis    Redis
	Offers   Offers
	Breaker  Breaker
	Email    Email
	Mailer   Mailer
	RabbitMQ RabbitMQ
	Checker  Checker

	FrontendURL  string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	TemplatesDir string `envconfig:"TEMPLATES_DIR" default:"./templates"`
	LogsPath     string `envconfig:"LOGS_PATH" default:"./logs/alerts.log"`
	HTTPLogsPath string `envconfig:"HTTP_LOGS_PATH" default:"./logs/offers-http.log"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("store backend %q requires REDIS_ENABLED=true", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Mailer.Mode {
	case MailerLog, MailerQueue:
	case MailerSMTP:
		if c.Email.Host == "" || c.Email.Port == "" || c.Email.From == "" {
			return fmt.Errorf("mailer mode %q requires EMAIL_HOST, EMAIL_PORT and EMAIL_FROM", c.Mailer.Mode)
		}
	default:
		return fmt.Errorf("unknown mailer mode %q", c.Mailer.Mode)
	}

	if c.Checker.StalenessWindow <= 0 {
		return fmt.Errorf("staleness window must be positive, got %s", c.Checker.StalenessWindow)
	}
	if c.Checker.Concurrency < 1 {
		return fmt.Errorf("checker concurrency must be at least 1, got %d", c.Checker.Concurrency)
	}
	return nil
}

// Location resolves the zone used to turn alert dates into departure timestamps.
func (c *Checker) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + c.Server.HTTPPort
}

func (c *Config) GrpcAddress() string {
	return c.Server.Host + ":" + c.Server.GrpcPort
}

func (r *Redis) Address() string {
	return r.Host + ":" + r.Port
}

func (r *RabbitMQ) Address() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Pass, r.Host, r.Port)
}
