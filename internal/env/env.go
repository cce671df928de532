package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriver      = "STORE_DRIVER"
	DatabaseDSN      = "DATABASE_DSN"
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	CitizenSecretKey = "CITIZEN_SECRET"
	AdminSecretKey   = "ADMIN_SECRET"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
	AMQPURL          = "AMQP_URL"
	AMQPExchange     = "AMQP_EXCHANGE"
	RateLimitWindow  = "RATE_LIMIT_WINDOW"
	RateLimitMax     = "RATE_LIMIT_MAX"
	BotConfigTTL     = "BOT_CONFIG_TTL"
	BotLanes         = "BOT_LANES"
	AllowedOrigins   = "ALLOWED_ORIGINS"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads an optional .env file and checks the keys the selected store
// driver needs. Variables already present in the process environment win.
func Load(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("env: load dotenv: %w", err)
	}

	required := []string{
		CitizenSecretKey,
		AdminSecretKey,
	}
	switch Driver() {
	case DriverDynamoDB:
		required = append(required, AWSRegion)
	case DriverPostgres, DriverSQLite:
		required = append(required, DatabaseDSN)
	default:
		return fmt.Errorf("env: unsupported %s %q", StoreDriver, Get(StoreDriver))
	}

	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("env: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func Driver() string {
	return strings.ToLower(GetOrDefault(StoreDriver, DriverDynamoDB))
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func GetInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func GetBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func GetDuration(key string, defaultVal time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}

// GetList splits a comma separated value, dropping empty entries.
func GetList(key string, defaultVal []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
