package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Monitor  MonitorConfig
	Bridge   BridgeConfig
	Telegram TelegramConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// EncryptionKey - ключ AES-256 для токенов торговой платформы (ровно 32 байта)
	EncryptionKey string

	// AdminTokenHash - bcrypt хеш административного токена.
	// Пустое значение закрывает админские endpoints полностью.
	AdminTokenHash string
}

// MonitorConfig - настройки цикла мониторинга лимитов
type MonitorConfig struct {
	// Interval - период между циклами проверки
	Interval time.Duration

	// SnapshotTimeout - таймаут запроса снимка счёта одного владельца
	SnapshotTimeout time.Duration

	// CloseTimeout - таймаут команды закрытия позиций
	CloseTimeout time.Duration

	// DisableTimeout - таймаут отключения источника сигналов
	DisableTimeout time.Duration
}

// BridgeConfig - настройки моста торговой платформы
type BridgeConfig struct {
	// BaseURL - адрес REST API моста
	BaseURL string

	// RateLimit - запросов в секунду к мосту
	RateLimit float64

	// Burst - размер всплеска для rate limiter
	Burst float64
}

// TelegramConfig - настройки Telegram уведомлений
type TelegramConfig struct {
	// BotToken - токен бота; пустой токен отключает доставку
	BotToken string
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "riskguard"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
			AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),
		},
		Monitor: MonitorConfig{
			Interval:        getEnvAsDuration("MONITOR_INTERVAL", 30*time.Second),
			SnapshotTimeout: getEnvAsDuration("SNAPSHOT_TIMEOUT", 10*time.Second),
			CloseTimeout:    getEnvAsDuration("CLOSE_TIMEOUT", 15*time.Second),
			DisableTimeout:  getEnvAsDuration("DISABLE_TIMEOUT", 5*time.Second),
		},
		Bridge: BridgeConfig{
			BaseURL:   getEnv("BRIDGE_URL", "http://localhost:8090"),
			RateLimit: getEnvAsFloat("BRIDGE_RATE_LIMIT", 10),
			Burst:     getEnvAsFloat("BRIDGE_BURST", 20),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для расшифровки токенов платформы
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting platform tokens")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Валидация параметров монитора
	if c.Monitor.Interval < time.Second {
		return fmt.Errorf("MONITOR_INTERVAL must be at least 1s, got %v", c.Monitor.Interval)
	}

	if c.Monitor.SnapshotTimeout <= 0 {
		return fmt.Errorf("SNAPSHOT_TIMEOUT must be positive, got %v", c.Monitor.SnapshotTimeout)
	}

	if c.Monitor.CloseTimeout <= 0 {
		return fmt.Errorf("CLOSE_TIMEOUT must be positive, got %v", c.Monitor.CloseTimeout)
	}

	// Таймауты внешних вызовов должны укладываться в период цикла,
	// иначе циклы начнут накладываться друг на друга
	if c.Monitor.SnapshotTimeout >= c.Monitor.Interval {
		return fmt.Errorf("SNAPSHOT_TIMEOUT (%v) must be less than MONITOR_INTERVAL (%v)",
			c.Monitor.SnapshotTimeout, c.Monitor.Interval)
	}

	// Валидация rate limit моста
	if c.Bridge.RateLimit <= 0 {
		return fmt.Errorf("BRIDGE_RATE_LIMIT must be positive, got %v", c.Bridge.RateLimit)
	}

	if c.Bridge.BaseURL == "" {
		return fmt.Errorf("BRIDGE_URL is required")
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
