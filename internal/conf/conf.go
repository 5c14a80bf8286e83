package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Accounts store configuration
	Accounts AccountsConfig

	// Telegram configuration
	Telegram TelegramConfig

	// Device identity reported to Telegram (loaded from YAML)
	Device *DeviceConfig

	// Debug mode
	Debug bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	ListenAddr      string
	ShutdownSeconds int
}

// AccountsConfig contains account store configuration
type AccountsConfig struct {
	DBPath string
}

// TelegramConfig contains provider tuning knobs
type TelegramConfig struct {
	ConnectRetries int
	DialogPageSize int
	LocatorWindow  int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Accounts DB path
	accountsDBPath := os.Getenv("ACCOUNTS_DB_PATH")
	if accountsDBPath == "" {
		homeDir, _ := os.UserHomeDir()
		accountsDBPath = filepath.Join(homeDir, ".telegram-gateway", "accounts.db")
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	connectRetries := 3
	if val := os.Getenv("CONNECT_RETRIES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			connectRetries = parsed
		}
	}

	dialogPageSize := 100
	if val := os.Getenv("DIALOG_PAGE_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			dialogPageSize = parsed
		}
	}

	locatorWindow := 3
	if val := os.Getenv("LOCATOR_WINDOW"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			locatorWindow = parsed
		}
	}

	shutdownSeconds := 10
	if val := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			shutdownSeconds = parsed
		}
	}

	// Load device identity from YAML
	deviceConfigPath := os.Getenv("DEVICE_CONFIG_PATH")
	deviceConfig, _ := LoadDeviceConfig(deviceConfigPath)

	return &Config{
		Server: ServerConfig{
			ListenAddr:      listenAddr,
			ShutdownSeconds: shutdownSeconds,
		},
		Accounts: AccountsConfig{
			DBPath: accountsDBPath,
		},
		Telegram: TelegramConfig{
			ConnectRetries: connectRetries,
			DialogPageSize: dialogPageSize,
			LocatorWindow:  locatorWindow,
		},
		Device: deviceConfig,
		Debug:  os.Getenv("DEBUG") == "true",
	}
}

// ShutdownTimeout returns the bound on graceful shutdown
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}
