package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Env           string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	DataDir       string `mapstructure:"DATA_DIR"`
	SheetFormat   string `mapstructure:"SHEET_FORMAT"`
	KeyFile       string `mapstructure:"KEY_FILE"`
	EncryptOnExit bool   `mapstructure:"ENCRYPT_ON_EXIT"`
	UsersDB       string `mapstructure:"USERS_DB"`
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	PageSize      int    `mapstructure:"PAGE_SIZE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_DIR", ".")
	v.SetDefault("SHEET_FORMAT", "xlsx")
	v.SetDefault("KEY_FILE", "key.txt")
	v.SetDefault("ENCRYPT_ON_EXIT", true)
	v.SetDefault("USERS_DB", "users.db")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("PAGE_SIZE", 20)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("DATA_DIR")
	v.BindEnv("SHEET_FORMAT")
	v.BindEnv("KEY_FILE")
	v.BindEnv("ENCRYPT_ON_EXIT")
	v.BindEnv("USERS_DB")
	v.BindEnv("ADMIN_USERNAME")
	v.BindEnv("ADMIN_PASSWORD")
	v.BindEnv("PAGE_SIZE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SheetFormat = strings.ToLower(strings.TrimSpace(cfg.SheetFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.SheetFormat != "xlsx" && c.SheetFormat != "csv" {
		return fmt.Errorf("SHEET_FORMAT must be \"xlsx\" or \"csv\", got %q", c.SheetFormat)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	return nil
}

// KeyPath resolves KEY_FILE against DATA_DIR unless it is already absolute.
func (c *Config) KeyPath() string {
	return c.resolve(c.KeyFile)
}

// UsersDBPath resolves USERS_DB against DATA_DIR unless it is already absolute.
func (c *Config) UsersDBPath() string {
	return c.resolve(c.UsersDB)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
