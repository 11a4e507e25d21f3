// Package config предоставляет структуры и функции для парсинга и загрузки конфига.
//
// Конфиг читается из YAML-файла, путь к которому задаётся переменной CONFIG_PATH,
// после чего значения могут быть переопределены переменными окружения.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env             string          `yaml:"env" env:"ENV" env-default:"local"`
	Storage         Storage         `yaml:"storage"`
	RedisConnection RedisConnection `yaml:"redis_connection"`
	RabbitMQ        RabbitMQ        `yaml:"rabbitmq"`
	HTTPServer      HTTPServer      `yaml:"http_server"`
	Kiwify          Kiwify          `yaml:"kiwify"`
}

// Storage структура для настройки хранилища пользователей и транзакций.
//
// Пустая строка подключения при драйвере postgres не считается ошибкой:
// приложение стартует, а операции с хранилищем возвращают 503.
type Storage struct {
	Driver           string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	ConnectionString string `yaml:"connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath   string `yaml:"migrations_path" env:"STORAGE_MIGRATIONS_PATH" env-default:"./migrations"`
}

// RedisConnection структура для настройки подключения к redis. Пустой адрес отключает кеш.
type RedisConnection struct {
	Addr        string        `yaml:"addr" env:"REDIS_ADDR"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	DB          int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"3s"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"10m"`
}

// RabbitMQ структура для публикации событий о смене статуса подписки. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"subscriptions"`
	Retries    int           `yaml:"retries" env:"RABBITMQ_RETRIES" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout        time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" env:"HTTP_RATE_LIMIT_RPS" env-default:"1"`
	RateLimitBurst int           `yaml:"rate_limit_burst" env:"HTTP_RATE_LIMIT_BURST" env-default:"5"`
}

// Kiwify структура с настройками платёжного провайдера.
type Kiwify struct {
	CheckoutBaseURL string `yaml:"checkout_base_url" env:"KIWIFY_CHECKOUT_BASE_URL" env-default:"https://pay.kiwify.com.br"`
	ProductID       string `yaml:"product_id" env:"KIWIFY_PRODUCT_ID"`
	WebhookSecret   string `yaml:"webhook_secret" env:"KIWIFY_WEBHOOK_SECRET"`
	// DefaultAmount — сумма в центах, если провайдер не прислал её в событии.
	DefaultAmount int64 `yaml:"default_amount" env:"KIWIFY_DEFAULT_AMOUNT" env-default:"1990"`
}

// Load читает конфиг из файла path и переменных окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if path == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("config path is empty"))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.HTTPServer.RateLimitRPS <= 0 || c.HTTPServer.RateLimitBurst <= 0 {
		return errors.New("rate limit must be positive")
	}
	return nil
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  Configured: %t\n"+
			"  MigrationsPath: %s\n"+
			"Redis:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  CacheTTL: %s\n"+
			"RabbitMQ:\n"+
			"  Enabled: %t\n"+
			"  Exchange: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Kiwify:\n"+
			"  CheckoutBaseURL: %s\n"+
			"  ProductID: %s\n"+
			"  WebhookSecretSet: %t\n",
		c.Env,
		c.Storage.Driver,
		c.Storage.ConnectionString != "",
		c.Storage.MigrationsPath,
		c.RedisConnection.Addr,
		c.RedisConnection.DB,
		c.RedisConnection.CacheTTL,
		c.RabbitMQ.URL != "",
		c.RabbitMQ.Exchange,
		c.HTTPServer.Address,
		c.HTTPServer.Timeout,
		c.HTTPServer.IdleTimeout,
		c.Kiwify.CheckoutBaseURL,
		c.Kiwify.ProductID,
		c.Kiwify.WebhookSecret != "",
	)
}
