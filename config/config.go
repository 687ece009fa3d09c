package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Artifacts ArtifactsConfig
	Training  TrainingConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	UI        UIConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type LoggingConfig struct {
	Level string
}

type ArtifactsConfig struct {
	Dir string
}

type TrainingConfig struct {
	Source       string
	DataPath     string
	ColumnMap    map[string]string
	TestFraction float64
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Jobs         int
	Seed         int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host            string
	Port            int
	Password        string
	DB              int
	ConnectAttempts int
	CacheTTLSec     int
}

type CORSConfig struct {
	AllowedOrigins string
}

type UIConfig struct {
	Port              int
	APIURL            string
	RequestTimeoutSec int
}

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// DefaultColumnMap renames the headers of the reference Bangalore export.
var DefaultColumnMap = map[string]string{
	"DateTime": "timestamp",
	"Location": "location_id",
	"Speed":    "speed",
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Enabled reports whether a Redis host was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	intVars := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"SERVER_PORT", 8080, &cfg.Server.Port},
		{"DB_PORT", 5432, &cfg.Database.Port},
		{"REDIS_PORT", 6379, &cfg.Redis.Port},
		{"REDIS_DB", 0, &cfg.Redis.DB},
		{"REDIS_CONNECT_ATTEMPTS", 3, &cfg.Redis.ConnectAttempts},
		{"PREDICTION_CACHE_TTL_SEC", 60, &cfg.Redis.CacheTTLSec},
		{"TRAIN_N_ESTIMATORS", 600, &cfg.Training.NEstimators},
		{"TRAIN_MAX_DEPTH", 7, &cfg.Training.MaxDepth},
		{"TRAIN_JOBS", 4, &cfg.Training.Jobs},
		{"TRAIN_SEED", 42, &cfg.Training.Seed},
		{"UI_PORT", 8501, &cfg.UI.Port},
		{"UI_REQUEST_TIMEOUT_SEC", 10, &cfg.UI.RequestTimeoutSec},
	}
	for _, v := range intVars {
		n, err := getIntEnv(v.key, v.fallback)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", v.key, err)
		}
		*v.dst = n
	}

	testFraction, err := getFloatEnv("TRAIN_TEST_FRACTION", 0.2)
	if err != nil {
		return nil, fmt.Errorf("invalid TRAIN_TEST_FRACTION: %w", err)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, fmt.Errorf("invalid TRAIN_TEST_FRACTION: %v is not in (0, 1)", testFraction)
	}
	learningRate, err := getFloatEnv("TRAIN_LEARNING_RATE", 0.05)
	if err != nil {
		return nil, fmt.Errorf("invalid TRAIN_LEARNING_RATE: %w", err)
	}

	columnMap := DefaultColumnMap
	if raw := os.Getenv("TRAIN_COLUMN_MAP"); raw != "" {
		columnMap, err = ParseColumnMap(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRAIN_COLUMN_MAP: %w", err)
		}
	}

	source := getEnv("TRAIN_SOURCE", SourceCSV)
	if source != SourceCSV && source != SourcePostgres {
		return nil, fmt.Errorf("invalid TRAIN_SOURCE %q: want %q or %q", source, SourceCSV, SourcePostgres)
	}

	cfg.Server.Env = getEnv("APP_ENV", "development")
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Artifacts.Dir = getEnv("ARTIFACTS_DIR", "artifacts")

	cfg.Training.Source = source
	cfg.Training.DataPath = getEnv("TRAIN_DATA_PATH", "data/bangalore_traffic.csv")
	cfg.Training.ColumnMap = columnMap
	cfg.Training.TestFraction = testFraction
	cfg.Training.LearningRate = learningRate

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.User = getEnv("DB_USER", "pathpioneer")
	cfg.Database.Password = getEnv("DB_PASSWORD", "pathpioneer_dev_password")
	cfg.Database.Name = getEnv("DB_NAME", "pathpioneer")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Host = os.Getenv("REDIS_HOST")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")

	cfg.CORS.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", "*")

	cfg.UI.APIURL = strings.TrimRight(getEnv("UI_API_URL", "http://localhost:8080"), "/")

	return cfg, nil
}

// ParseColumnMap parses "Src:dst,Src2:dst2".
func ParseColumnMap(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		src, dst, ok := strings.Cut(pair, ":")
		src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
		if !ok || src == "" || dst == "" {
			return nil, fmt.Errorf("malformed pair %q, want Source:destination", pair)
		}
		out[src] = dst
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no column pairs in %q", raw)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
