package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"citas/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Google     GoogleConfig     `yaml:"google"`
	Booking    BookingConfig    `yaml:"booking"`
	Schedule   map[int][]string `yaml:"schedule"`
	Services   []string         `yaml:"services"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     int             `yaml:"read_timeout"`
	WriteTimeout    int             `yaml:"write_timeout"`
	ShutdownTimeout int             `yaml:"shutdown_timeout"`
	AllowedOrigins  []string        `yaml:"allowed_origins"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
}

type GoogleConfig struct {
	Timezone   string `yaml:"timezone"`
	CalendarID string `yaml:"calendar_id"`
	ClientID   string `yaml:"client_id"`
}

type BookingConfig struct {
	RequireAuth    bool `yaml:"require_auth"`
	MaxAdvanceDays int  `yaml:"max_advance_days"`
	SessionTTL     int  `yaml:"session_ttl"`
}

func Load(configPath string) (*Config, error) {
	// .env опционален: в контейнере переменные приходят из окружения
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := time.LoadLocation(c.Google.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Google.Timezone, err)
	}

	if err := ValidateSchedule(c.Schedule); err != nil {
		return err
	}

	if len(c.Services) == 0 {
		return errors.New("at least one service must be configured")
	}

	return nil
}

// ValidateSchedule проверяет недельный шаблон: ISO дни недели 1..7,
// слоты в формате HH:MM, день без записи допустим, пустой список — нет.
func ValidateSchedule(schedule map[int][]string) error {
	for weekday, slots := range schedule {
		if weekday < 1 || weekday > 7 {
			return fmt.Errorf("schedule weekday %d is out of range 1..7", weekday)
		}
		if len(slots) == 0 {
			return fmt.Errorf("schedule weekday %d has an empty slot list; omit the key instead", weekday)
		}
		for _, slot := range slots {
			if _, err := time.Parse(models.TimeLayout, slot); err != nil {
				return fmt.Errorf("schedule weekday %d has invalid slot %q", weekday, slot)
			}
		}
	}
	return nil
}

// WeeklyTemplate переводит секцию schedule в доменный тип.
func (c *Config) WeeklyTemplate() models.WeeklyTemplate {
	tmpl := make(models.WeeklyTemplate, len(c.Schedule))
	for weekday, slots := range c.Schedule {
		tmpl[weekday] = append([]string(nil), slots...)
	}
	return tmpl
}

// Location возвращает загруженную временную зону приёма.
// Validate гарантирует, что она парсится.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Google.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit.RPS = 10
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 20
	}
	if c.Google.Timezone == "" {
		c.Google.Timezone = models.DefaultTimezone
	}
	if c.Google.CalendarID == "" {
		c.Google.CalendarID = "primary"
	}
	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if c.Booking.SessionTTL == 0 {
		c.Booking.SessionTTL = models.DefaultSessionTTL
	}

	// Расписание по умолчанию: Пн 17-18, Чт и Пт 16-18.
	if len(c.Schedule) == 0 {
		c.Schedule = map[int][]string{
			1: {"17:00", "18:00"},
			4: {"16:00", "17:00", "18:00"},
			5: {"16:00", "17:00", "18:00"},
		}
	}
}
