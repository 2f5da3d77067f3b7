package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the relay service
type Config struct {
	Telegram TelegramConfig
	Bot      BotConfig
	Database DatabaseConfig
	Relay    RelayConfig
	Kafka    KafkaConfig
	S3       S3Config
	Logging  LoggingConfig
	Service  ServiceConfig
}

// TelegramConfig holds MTProto application credentials
type TelegramConfig struct {
	APIID   int
	APIHash string
	// SessionString is an operator-provided token used as the fallback connection
	SessionString string
	// SessionSecret seals stored session tokens when set
	SessionSecret string
	RateLimit     int
}

// BotConfig holds Bot API configuration
type BotConfig struct {
	Token   string
	AdminID int64
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// RelayConfig holds transfer and batch tuning
type RelayConfig struct {
	MaxConcurrent    int
	WindowSize       int
	WindowDelay      time.Duration
	GroupSendDelay   time.Duration
	FailedIDsLimit   int
	RelayChannelID   int64
	BackupChannelID  int64
	DownloadDir      string
	ThumbnailTimeout time.Duration
	FFprobePath      string
	FFmpegPath       string
}

// KafkaConfig holds the optional relay event producer configuration
type KafkaConfig struct {
	Brokers          []string
	TopicRelayEvents string
}

// S3Config holds the optional artifact archive configuration
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name string
	Port string
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config         *Config
	TelegramConfig *TelegramConfig
	BotConfig      *BotConfig
	DatabaseConfig *DatabaseConfig
	RelayConfig    *RelayConfig
	KafkaConfig    *KafkaConfig
	S3Config       *S3Config
	LoggingConfig  *LoggingConfig
	ServiceConfig  *ServiceConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:         cfg,
		TelegramConfig: &cfg.Telegram,
		BotConfig:      &cfg.Bot,
		DatabaseConfig: &cfg.Database,
		RelayConfig:    &cfg.Relay,
		KafkaConfig:    &cfg.Kafka,
		S3Config:       &cfg.S3,
		LoggingConfig:  &cfg.Logging,
		ServiceConfig:  &cfg.Service,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiID, err := getEnvInt("TELEGRAM_API_ID", 0)
	if err != nil {
		return nil, err
	}
	adminID, err := getEnvInt64("ADMIN_ID", 0)
	if err != nil {
		return nil, err
	}
	relayChannel, err := getEnvInt64("FORWARD_CHANNEL_ID", 0)
	if err != nil {
		return nil, err
	}
	backupChannel, err := getEnvInt64("BIN_CHANNEL_ID", 0)
	if err != nil {
		return nil, err
	}
	maxConcurrent, err := getEnvInt("MAX_CONCURRENT_TRANSMISSIONS", 3)
	if err != nil {
		return nil, err
	}
	windowSize, err := getEnvInt("BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	failedLimit, err := getEnvInt("FAILED_IDS_LIMIT", 50)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvInt("TELEGRAM_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			APIID:         apiID,
			APIHash:       getEnv("TELEGRAM_API_HASH", ""),
			SessionString: getEnv("SESSION_STRING", ""),
			SessionSecret: getEnv("SESSION_SECRET", ""),
			RateLimit:     rateLimit,
		},
		Bot: BotConfig{
			Token:   getEnv("BOT_TOKEN", ""),
			AdminID: adminID,
		},
		Database: DatabaseConfig{
			Host:           getEnv("DATABASE_HOST", ""),
			Port:           getEnv("DATABASE_PORT", "5432"),
			User:           getEnv("DATABASE_USER", "relay_user"),
			Password:       getEnv("DATABASE_PASSWORD", ""),
			DBName:         getEnv("DATABASE_NAME", "relay_db"),
			SSLMode:        getEnv("DATABASE_SSLMODE", "disable"),
			MigrationsPath: getEnv("DATABASE_MIGRATIONS_PATH", "file://migrations"),
		},
		Relay: RelayConfig{
			MaxConcurrent:    maxConcurrent,
			WindowSize:       windowSize,
			WindowDelay:      getEnvDuration("FLOOD_WAIT_DELAY", 3*time.Second),
			GroupSendDelay:   getEnvDuration("GROUP_SEND_DELAY", time.Second),
			FailedIDsLimit:   failedLimit,
			RelayChannelID:   relayChannel,
			BackupChannelID:  backupChannel,
			DownloadDir:      getEnv("DOWNLOAD_DIR", os.TempDir()),
			ThumbnailTimeout: getEnvDuration("THUMBNAIL_TIMEOUT", 60*time.Second),
			FFprobePath:      getEnv("FFPROBE_PATH", "ffprobe"),
			FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		},
		Kafka: KafkaConfig{
			Brokers:          splitList(getEnv("KAFKA_BROKERS", "")),
			TopicRelayEvents: getEnv("KAFKA_TOPIC_RELAY_EVENTS", "relay.completed"),
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "relay-artifacts"),
			UseSSL:    getEnv("S3_USE_SSL", "false") == "true",
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "media-relay"),
			Port: getEnv("SERVICE_PORT", "8080"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 {
		return fmt.Errorf("TELEGRAM_API_ID is required")
	}

	if c.Telegram.APIHash == "" {
		return fmt.Errorf("TELEGRAM_API_HASH is required")
	}

	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	if c.Relay.MaxConcurrent <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_TRANSMISSIONS must be positive")
	}

	if c.Relay.WindowSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}

	return nil
}

// Enabled reports whether a database host is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// GetDSN returns database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Enabled reports whether Kafka brokers are configured
func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// Enabled reports whether an S3 endpoint is configured
func (c *S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getEnvDuration accepts Go durations ("3s") or bare seconds ("3")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
