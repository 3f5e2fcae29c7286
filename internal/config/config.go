package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 服务运行时配置，全部来自环境变量（main 中先通过 godotenv 加载 .env）
type Config struct {
	Port           string
	Env            string // development / production
	DatabaseURL    string
	SecretKey      string
	TokenTTL       time.Duration
	BcryptCost     int
	RequestTimeout time.Duration
	PageSize       int

	LookupCacheSize int
	LookupCacheTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RateLimit     int64
	RateWindow    time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	ForbidSelfEdges bool
	CORSOrigins     []string
}

const defaultDSN = "host=localhost user=postgres password=postgres dbname=flashfeed port=5432 sslmode=disable"

// Load reads the environment and fills in defaults for anything unset.
func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "3001"),
		Env:             getEnv("APP_ENV", "production"),
		DatabaseURL:     getEnv("DATABASE_URL", defaultDSN),
		SecretKey:       getEnv("SECRET_KEY", "secret-dev"),
		TokenTTL:        getDuration("TOKEN_TTL", 24*time.Hour),
		BcryptCost:      getInt("BCRYPT_COST", 12),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 5*time.Second),
		PageSize:        getInt("PAGE_SIZE", 10),
		LookupCacheSize: getInt("LOOKUP_CACHE_SIZE", 1000),
		LookupCacheTTL:  getDuration("LOOKUP_CACHE_TTL", 10*time.Minute),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RateLimit:       int64(getInt("RATE_LIMIT", 60)),
		RateWindow:      getDuration("RATE_WINDOW", time.Minute),
		KafkaBrokers:    getList("KAFKA_BROKERS"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "flashfeed.activity"),
		ForbidSelfEdges: getBool("FORBID_SELF_EDGES", false),
		CORSOrigins:     getList("CORS_ORIGINS"),
	}

	if cfg.SecretKey == "secret-dev" && !cfg.IsDevelopment() {
		log.Println("⚠️ SECRET_KEY not set, using the development secret")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

// getList splits a comma separated variable, dropping empty entries.
func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
