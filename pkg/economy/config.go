package economy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Item kinds.
const (
	ItemCosmetic   = "cosmetic"
	ItemAvatarPart = "avatar_part"
)

// Config represents the economy configuration file.
type Config struct {
	Catalog []CatalogItem  `yaml:"catalog"`
	Actions []ActionConfig `yaml:"actions"`
}

// CatalogItem is one purchasable item.
type CatalogItem struct {
	ID       string `yaml:"id" json:"id"`
	Kind     string `yaml:"kind" json:"kind"`
	Price    int64  `yaml:"price" json:"price"`
	Giftable bool   `yaml:"giftable" json:"giftable"`
}

// ActionConfig is the base configuration for all actions.
type ActionConfig struct {
	ID         string                 `yaml:"id" json:"id"`
	Name       string                 `yaml:"name" json:"name"`
	Type       string                 `yaml:"type" json:"type"`
	Enabled    bool                   `yaml:"enabled" json:"enabled"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// GetParameterInt retrieves an integer parameter with a default.
func (c *ActionConfig) GetParameterInt(key string, defaultValue int) int {
	if val, ok := c.Parameters[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// GetParameterString retrieves a string parameter with a default.
func (c *ActionConfig) GetParameterString(key string, defaultValue string) string {
	if val, ok := c.Parameters[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// LoadConfig loads economy configuration from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for common errors.
func (c *Config) Validate() error {
	itemIDs := make(map[string]bool)
	for _, item := range c.Catalog {
		if item.ID == "" {
			return fmt.Errorf("catalog item with empty ID found")
		}
		if itemIDs[item.ID] {
			return fmt.Errorf("duplicate catalog item ID: %s", item.ID)
		}
		itemIDs[item.ID] = true

		if item.Kind != ItemCosmetic && item.Kind != ItemAvatarPart {
			return fmt.Errorf("catalog item %s has unknown kind %q", item.ID, item.Kind)
		}
		if item.Price < 0 {
			return fmt.Errorf("catalog item %s has negative price", item.ID)
		}
		if item.Giftable && item.Kind != ItemCosmetic {
			return fmt.Errorf("catalog item %s: only cosmetics can be giftable", item.ID)
		}
	}

	actionIDs := make(map[string]bool)
	for _, action := range c.Actions {
		if action.ID == "" {
			return fmt.Errorf("action with empty ID found")
		}
		if actionIDs[action.ID] {
			return fmt.Errorf("duplicate action ID: %s", action.ID)
		}
		actionIDs[action.ID] = true

		if action.Type == "" {
			return fmt.Errorf("action %s has empty type", action.ID)
		}
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
