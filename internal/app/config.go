package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/utils"
)

// Config is the application-level configuration: which outline page to read,
// who the administrators are, and how the bot receives updates. Client and
// database settings stay with their own packages.
type Config struct {
	Mode               string  `yaml:"mode"`
	Port               string  `yaml:"port"`
	BriefsPageID       string  `yaml:"briefs_page_id"`
	AdminIDs           []int64 `yaml:"admin_ids"`
	AdminAPIToken      string  `yaml:"admin_api_token"`
	ExcludeTitlePrefix string  `yaml:"exclude_title_prefix"`
	ReminderHour       int     `yaml:"reminder_hour"`
	ReminderMinute     int     `yaml:"reminder_minute"`
	ReminderTZ         string  `yaml:"reminder_tz"`
}

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// LoadConfig reads the optional YAML file named by BRIEFBOT_CONFIG, then lets
// environment variables override individual fields.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Mode:           ModePolling,
		Port:           "8080",
		ReminderHour:   10,
		ReminderMinute: 0,
		ReminderTZ:     "UTC",
	}

	if path := strings.TrimSpace(os.Getenv("BRIEFBOT_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}

	cfg.Mode = utils.GetEnv("BOT_MODE", cfg.Mode, log)
	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.BriefsPageID = utils.GetEnv("BRIEFS_PAGE_ID", cfg.BriefsPageID, log)
	cfg.AdminIDs = utils.GetEnvAsInt64List("ADMIN_IDS", cfg.AdminIDs, log)
	cfg.AdminAPIToken = utils.GetEnv("ADMIN_API_TOKEN", cfg.AdminAPIToken, log)
	cfg.ExcludeTitlePrefix = utils.GetEnv("EXCLUDE_TITLE_PREFIX", cfg.ExcludeTitlePrefix, log)
	cfg.ReminderHour = utils.GetEnvAsInt("REMINDER_HOUR", cfg.ReminderHour, log)
	cfg.ReminderMinute = utils.GetEnvAsInt("REMINDER_MINUTE", cfg.ReminderMinute, log)
	cfg.ReminderTZ = utils.GetEnv("REMINDER_TZ", cfg.ReminderTZ, log)

	if cfg.Mode != ModePolling && cfg.Mode != ModeWebhook {
		return Config{}, fmt.Errorf("unknown bot mode %q", cfg.Mode)
	}
	if strings.TrimSpace(cfg.BriefsPageID) == "" {
		return Config{}, fmt.Errorf("missing BRIEFS_PAGE_ID")
	}
	return cfg, nil
}
