package conf

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/WebiksInc/cultural-agents-micro-services/telegram"
)

// DeviceConfig describes the device identity reported to Telegram,
// loaded from YAML
type DeviceConfig struct {
	Model         string `yaml:"model"`
	SystemVersion string `yaml:"system_version"`
	AppVersion    string `yaml:"app_version"`
}

// DefaultDeviceConfig returns the device identity used when no YAML file
// is present
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Model:         "Desktop",
		SystemVersion: "Linux",
		AppVersion:    "1.0.0",
	}
}

// LoadDeviceConfig loads the device identity from a YAML file
func LoadDeviceConfig(configPath string) (*DeviceConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/device.yaml",
			"./configs/device.yaml",
			"/etc/telegram-gateway/device.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "device.yaml"))
		}
	}

	var data []byte
	var err error
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if data == nil {
		return DefaultDeviceConfig(), nil
	}

	cfg := DefaultDeviceConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultDeviceConfig(), err
	}
	return cfg, nil
}

// ToDeviceInfo converts to the provider's device descriptor
func (c *DeviceConfig) ToDeviceInfo() telegram.DeviceInfo {
	return telegram.DeviceInfo{
		Model:         c.Model,
		SystemVersion: c.SystemVersion,
		AppVersion:    c.AppVersion,
	}
}
