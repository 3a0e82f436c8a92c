package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		sourceName := fileName[:len(fileName)-4] // Remove .yml extension

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source configuration loaded", "source", sourceName, "kind", config.Kind, "enabled", config.Settings.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := filepath.Join(cc.sourcesDir, sourceName+".yml")
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = sourceName

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 30
	}
	if config.Settings.MaxItems == 0 {
		config.Settings.MaxItems = 50
	}

	return &config, nil
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	requiredFields := map[string]string{
		"source name": config.Name,
		"source URL":  config.URL,
		"source kind": config.Kind,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	switch config.Kind {
	case KindRSS, KindNewsAPI, KindScraper:
	default:
		return fmt.Errorf("unknown source kind: %s", config.Kind)
	}

	if config.Kind == KindScraper && config.Settings.LinkSelector == "" {
		return fmt.Errorf("link_selector is required for scraper sources")
	}

	nonNegativeFields := map[string]int{
		"timeout":   config.Settings.Timeout,
		"max items": config.Settings.MaxItems,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}
