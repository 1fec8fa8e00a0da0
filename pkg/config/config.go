package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/mkravets/followup-reminder/pkg/logger"
)

type Config struct {
	Database DatabaseConfig `json:"database"`
	Telegram TelegramConfig `json:"telegram"`
	Digest   DigestConfig   `json:"digest"`
	Logging  LoggingConfig  `json:"logging"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
}

type TelegramConfig struct {
	Token string `json:"token"`
}

// DigestConfig selects which channels weekly digests go out on.
// Valid channel names: "email", "inapp", "telegram".
type DigestConfig struct {
	Channels []string `json:"channels"`
	FromName string   `json:"from_name"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
}

var AppConfig Config

func LoadConfig(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&AppConfig); err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}

	applyEnvOverrides()
	return nil
}

// applyEnvOverrides lets deployments override file values without
// editing config.json. A missing .env file is not an error.
func applyEnvOverrides() {
	_ = godotenv.Load()

	if v := os.Getenv("FOLLOWUP_DB_HOST"); v != "" {
		AppConfig.Database.Host = v
	}
	if v := os.Getenv("FOLLOWUP_DB_USER"); v != "" {
		AppConfig.Database.User = v
	}
	if v := os.Getenv("FOLLOWUP_DB_PASSWORD"); v != "" {
		AppConfig.Database.Password = v
	}
	if v := os.Getenv("FOLLOWUP_DB_NAME"); v != "" {
		AppConfig.Database.DBName = v
	}
	if v := os.Getenv("FOLLOWUP_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			AppConfig.Database.Port = port
		} else {
			logger.Error("invalid FOLLOWUP_DB_PORT", "value", v, "error", err)
		}
	}
	if v := os.Getenv("FOLLOWUP_TELEGRAM_TOKEN"); v != "" {
		AppConfig.Telegram.Token = v
	}
	if v := os.Getenv("FOLLOWUP_LOG_LEVEL"); v != "" {
		AppConfig.Logging.Level = v
	}
}
