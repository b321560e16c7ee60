package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		Port     string `yaml:"port"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
	Chat struct {
		APIKey           string  `yaml:"api_key"`
		BaseURL          string  `yaml:"base_url"`
		Model            string  `yaml:"model"`
		SystemPrompt     string  `yaml:"system_prompt"`
		MaxTokens        int     `yaml:"max_tokens"`
		Temperature      float32 `yaml:"temperature"`
		TimeoutSeconds   int     `yaml:"timeout_seconds"`
		HistoryWindow    int     `yaml:"history_window"`
		MaxMessageLength int     `yaml:"max_message_length"`
	} `yaml:"chat"`
	Auth struct {
		Secret  string `yaml:"secret"`
		ExpHour int    `yaml:"exp_hour"`
	} `yaml:"auth"`
	Quota struct {
		DefaultLimit int `yaml:"default_limit"`
	} `yaml:"quota"`
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
}

// GlobalConfig is the global configuration instance
var GlobalConfig Config

// DSN generates the PostgreSQL DSN from database config
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.Port,
		c.Database.SSLMode,
	)
}

// ChatTimeout returns the completion round-trip timeout as a duration
func (c *Config) ChatTimeout() time.Duration {
	return time.Duration(c.Chat.TimeoutSeconds) * time.Second
}

// LoadConfig reads and parses the YAML configuration file into GlobalConfig
func LoadConfig(filePath string) error {
	// Read the YAML file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	// Unmarshal YAML into GlobalConfig
	if err := yaml.Unmarshal(data, &GlobalConfig); err != nil {
		return err
	}

	// Validate required fields
	if GlobalConfig.Database.Host == "" {
		log.Fatal("database.host is required in config.yaml")
	}
	if GlobalConfig.Database.User == "" {
		log.Fatal("database.user is required in config.yaml")
	}
	if GlobalConfig.Database.DBName == "" {
		log.Fatal("database.dbname is required in config.yaml")
	}
	if GlobalConfig.Database.Port == "" {
		log.Fatal("database.port is required in config.yaml")
	}
	if GlobalConfig.Database.SSLMode == "" {
		log.Fatal("database.sslmode is required in config.yaml")
	}
	if GlobalConfig.Chat.APIKey == "" {
		log.Fatal("chat.api_key is required in config.yaml")
	}
	if GlobalConfig.Auth.Secret == "" {
		log.Fatal("auth.secret is required in config.yaml")
	}
	if GlobalConfig.Server.Port < 1 || GlobalConfig.Server.Port > 65535 {
		log.Fatal("server.port must be between 1 and 65535")
	}

	// Defaults for optional fields
	if GlobalConfig.Chat.BaseURL == "" {
		GlobalConfig.Chat.BaseURL = "https://openrouter.ai/api/v1"
	}
	if GlobalConfig.Chat.Model == "" {
		GlobalConfig.Chat.Model = "openai/gpt-3.5-turbo"
	}
	if GlobalConfig.Chat.SystemPrompt == "" {
		GlobalConfig.Chat.SystemPrompt = "You are a helpful AI assistant. Answer the user's questions kindly and accurately."
	}
	if GlobalConfig.Chat.MaxTokens == 0 {
		GlobalConfig.Chat.MaxTokens = 1000
	}
	if GlobalConfig.Chat.Temperature == 0 {
		GlobalConfig.Chat.Temperature = 0.7
	}
	if GlobalConfig.Chat.TimeoutSeconds == 0 {
		GlobalConfig.Chat.TimeoutSeconds = 30
	}
	if GlobalConfig.Chat.HistoryWindow == 0 {
		GlobalConfig.Chat.HistoryWindow = 10
	}
	if GlobalConfig.Chat.MaxMessageLength == 0 {
		GlobalConfig.Chat.MaxMessageLength = 2000
	}
	if GlobalConfig.Auth.ExpHour == 0 {
		GlobalConfig.Auth.ExpHour = 24
	}
	if GlobalConfig.Quota.DefaultLimit == 0 {
		GlobalConfig.Quota.DefaultLimit = 1000
	}

	return nil
}
