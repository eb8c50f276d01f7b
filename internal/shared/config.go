package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	StoreMySQL    = "mysql"
	StoreSupabase = "supabase"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	Store       string // mysql | supabase
	MySQLDSN    string
	SupabaseURL string
	SupabaseKey string
	SupabaseRPS int

	RedisAddr     string
	RedisDB       int
	RedisPass     string
	EventsChannel string
	CacheTTL      time.Duration

	AdminDefaultPIN string
	JWTSecret       string
	JWTTTL          time.Duration

	SeedBlocks        []string
	SeedRoomsPerBlock int
	SeedWorkers       int
	MigrateOnStart    bool
}

// Load reads the environment, after merging an optional .env file.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		Store:       strings.ToLower(env("STORE", StoreMySQL)),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/rooms?parseTime=true&charset=utf8mb4,utf8&loc=Local"),
		SupabaseURL: env("SUPABASE_URL", ""),
		SupabaseKey: env("SUPABASE_ANON_KEY", ""),
		SupabaseRPS: atoi("SUPABASE_RPS", 10),

		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		EventsChannel: env("EVENTS_CHANNEL", "db-updates"),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		AdminDefaultPIN: env("ADMIN_DEFAULT_PIN", "1234"),
		JWTSecret:       env("ADMIN_JWT_SECRET", ""),
		JWTTTL:          time.Duration(atoi("ADMIN_TOKEN_TTL_MINUTES", 60)) * time.Minute,

		SeedBlocks:        splitList(env("SEED_BLOCKS", "A,B,C,D,E,F")),
		SeedRoomsPerBlock: atoi("SEED_ROOMS_PER_BLOCK", 25),
		SeedWorkers:       atoi("SEED_WORKERS", 4),
		MigrateOnStart:    env("MIGRATE_ON_START", "true") == "true",
	}
	if c.Store == StoreSupabase && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		log.Warn().Msg("SUPABASE_URL/SUPABASE_ANON_KEY missing")
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("ADMIN_JWT_SECRET is empty; admin tokens will not survive a restart")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
