package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"StockSentinel/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"` // comma separated for several chats
		AdminID  int64  `yaml:"admin_id"`
	} `yaml:"telegram"`
	Stock struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"stock"`
	CheckInterval Duration `yaml:"check_interval"`
	Alert         struct {
		Threshold float64   `yaml:"threshold"`
		OpenFrom  TimeOfDay `yaml:"open_from"`
		OpenUntil TimeOfDay `yaml:"open_until"`
		CloseAt   TimeOfDay `yaml:"close_at"`
	} `yaml:"alert"`
	Market struct {
		Timezone      string    `yaml:"timezone"`
		Open          TimeOfDay `yaml:"open"`
		Close         TimeOfDay `yaml:"close"`
		FallbackDelay Duration  `yaml:"fallback_delay"`
	} `yaml:"market"`
	State struct {
		Backend string `yaml:"backend"` // "json" or "bunt"
		File    string `yaml:"file"`
	} `yaml:"state"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Admin struct {
		UpdateCommand string `yaml:"update_command"`
	} `yaml:"admin"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("ADMIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse ADMIN_ID: %w", err)
		}
		c.Telegram.AdminID = id
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CHECK_INTERVAL: %w", err)
		}
		c.CheckInterval = Duration(d)
	}
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("parse ALERT_THRESHOLD: %w", err)
		}
		c.Alert.Threshold = threshold
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		c.State.File = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Stock.Code == "" {
		c.Stock.Code = "099190"
	}
	if c.Stock.Name == "" {
		c.Stock.Name = "아이센스"
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = Duration(60 * time.Second)
	}
	if c.Alert.Threshold == 0 {
		c.Alert.Threshold = 2
	}
	if c.Alert.OpenFrom.IsZero() {
		c.Alert.OpenFrom = TimeOfDay{Hour: 9, Minute: 5}
	}
	if c.Alert.OpenUntil.IsZero() {
		c.Alert.OpenUntil = TimeOfDay{Hour: 10}
	}
	if c.Alert.CloseAt.IsZero() {
		c.Alert.CloseAt = TimeOfDay{Hour: 15, Minute: 30}
	}
	if c.Market.Timezone == "" {
		c.Market.Timezone = "Asia/Seoul"
	}
	if c.Market.Open.IsZero() {
		c.Market.Open = TimeOfDay{Hour: 9}
	}
	if c.Market.Close.IsZero() {
		c.Market.Close = TimeOfDay{Hour: 16}
	}
	if c.Market.FallbackDelay == 0 {
		c.Market.FallbackDelay = Duration(60 * time.Second)
	}
	if c.State.Backend == "" {
		c.State.Backend = "json"
	}
	if c.State.File == "" {
		c.State.File = "state.json"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 * 9-15 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if _, err := c.ChatIDs(); err != nil {
		return err
	}
	if c.CheckInterval.Std() < time.Second {
		return fmt.Errorf("check_interval must be at least 1s")
	}
	if !model.Threshold(c.Alert.Threshold).Valid() {
		return fmt.Errorf("alert.threshold must be one of %v, got %v", model.Thresholds, c.Alert.Threshold)
	}
	if !c.Alert.OpenFrom.Before(c.Alert.OpenUntil) {
		return fmt.Errorf("alert.open_from must be before alert.open_until")
	}
	if !c.Market.Open.Before(c.Market.Close) {
		return fmt.Errorf("market.open must be before market.close")
	}
	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("market.timezone: %w", err)
	}
	switch c.State.Backend {
	case "json", "bunt":
	default:
		return fmt.Errorf("state.backend must be json or bunt, got %q", c.State.Backend)
	}
	return nil
}

// ChatIDs parses telegram.chat_id. An empty value yields no chats.
func (c *Config) ChatIDs() ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(c.Telegram.ChatID, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram.chat_id: invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Threshold returns the default-recipient threshold.
func (c *Config) Threshold() model.Threshold {
	return model.Threshold(c.Alert.Threshold).OrDefault()
}

// Location returns the market timezone, falling back to KST.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}
