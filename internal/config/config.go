package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env          string        `yaml:"env" json:"env"`
	Port         int           `yaml:"port" json:"port"`
	LogJSON      bool          `yaml:"logJSON" json:"logJSON"`
	LogLevel     string        `yaml:"logLevel" json:"logLevel"`
	Currency     string        `yaml:"currency" json:"currency"`
	DeliveryETA  time.Duration `yaml:"deliveryETA" json:"deliveryETA"`
	ReloadMethod string        `yaml:"reloadMethod" json:"reloadMethod"`

	// Store selects the persistence adapter: memory, file, sqlite, postgres or mongo.
	Store       string `yaml:"store" json:"store"`
	DataDir     string `yaml:"dataDir" json:"dataDir"`
	SQLitePath  string `yaml:"sqlitePath" json:"sqlitePath"`
	PostgresDSN string `yaml:"postgresDSN" json:"-"`
	MongoURI    string `yaml:"mongoURI" json:"-"`
	MongoDB     string `yaml:"mongoDB" json:"mongoDB"`

	// RedisAddr enables the cross-process lock and event publishing when set.
	RedisAddr     string        `yaml:"redisAddr" json:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword" json:"-"`
	RedisDB       int           `yaml:"redisDB" json:"redisDB"`
	LockLease     time.Duration `yaml:"lockLease" json:"lockLease"`

	// GatewayURL switches external payments from the mock authorizer to the aggregator.
	GatewayURL      string `yaml:"gatewayURL" json:"gatewayURL"`
	GatewayMerchant string `yaml:"gatewayMerchant" json:"gatewayMerchant"`
	GatewayKey      string `yaml:"gatewayKey" json:"-"`

	CORSOrigins []string `yaml:"corsOrigins" json:"corsOrigins"`
	RateLimit   float64  `yaml:"rateLimit" json:"rateLimit"`
	RateBurst   int      `yaml:"rateBurst" json:"rateBurst"`
}

func Default() Config {
	return Config{
		Env:          "dev",
		Port:         5000,
		LogJSON:      true,
		LogLevel:     "info",
		Currency:     "NPR",
		DeliveryETA:  24 * time.Hour,
		ReloadMethod: "khalti",
		Store:        "memory",
		DataDir:      "./data",
		SQLitePath:   "./data/farmcart.db",
		MongoDB:      "farmcart",
		LockLease:    10 * time.Second,
		CORSOrigins:  []string{"*"},
		RateLimit:    20,
		RateBurst:    40,
	}
}

// EnvDefaults layers the optional YAML file named by FARMCART_CONFIG and then
// FARMCART_* variables over Default.
func EnvDefaults() (Config, error) {
	c := Default()
	if p := os.Getenv("FARMCART_CONFIG"); p != "" {
		var err error
		if c, err = fromFile(c, p); err != nil {
			return c, err
		}
	}
	return fromEnv(c), nil
}

func fromFile(c Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

func fromEnv(c Config) Config {
	if v := os.Getenv("FARMCART_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("FARMCART_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("FARMCART_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	if v := os.Getenv("FARMCART_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FARMCART_CURRENCY"); v != "" {
		c.Currency = v
	}
	if v := os.Getenv("FARMCART_DELIVERY_ETA"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DeliveryETA = d
		}
	}
	if v := os.Getenv("FARMCART_RELOAD_METHOD"); v != "" {
		c.ReloadMethod = v
	}
	if v := os.Getenv("FARMCART_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("FARMCART_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FARMCART_SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("FARMCART_POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("FARMCART_MONGO_URI"); v != "" {
		c.MongoURI = v
	}
	if v := os.Getenv("FARMCART_MONGO_DB"); v != "" {
		c.MongoDB = v
	}
	if v := os.Getenv("FARMCART_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("FARMCART_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("FARMCART_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("FARMCART_LOCK_LEASE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.LockLease = d
		}
	}
	if v := os.Getenv("FARMCART_GATEWAY_URL"); v != "" {
		c.GatewayURL = v
	}
	if v := os.Getenv("FARMCART_GATEWAY_MERCHANT"); v != "" {
		c.GatewayMerchant = v
	}
	if v := os.Getenv("FARMCART_GATEWAY_KEY"); v != "" {
		c.GatewayKey = v
	}
	if v := os.Getenv("FARMCART_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("FARMCART_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit = f
		}
	}
	if v := os.Getenv("FARMCART_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	return c
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the settings that would otherwise fail late at startup.
func (c Config) Validate() error {
	switch c.Store {
	case "memory", "file", "sqlite":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("store postgres needs FARMCART_POSTGRES_DSN")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("store mongo needs FARMCART_MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.GatewayURL != "" && c.GatewayKey == "" {
		return fmt.Errorf("gateway needs FARMCART_GATEWAY_KEY")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
