package config

import (
	"fmt"
	"os"
	"strings"

	"market-rotator/src/helpers"
	"market-rotator/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration
	if c.Name == "" {
		return helpers.NewConfigurationError("application name cannot be empty")
	}

	// Validate Server configuration
	if c.Host == "" {
		return helpers.NewConfigurationError("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return helpers.NewConfigurationError("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Feed configuration
	if c.Feed.URL == "" {
		return helpers.NewConfigurationError("feed url cannot be empty")
	}
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return helpers.NewConfigurationError("feed url must use ws:// or wss://, got '%s'", c.Feed.URL)
	}
	if len(c.Feed.Products) == 0 {
		return helpers.NewConfigurationError("at least one feed product must be configured")
	}
	if c.Feed.ConnectTimeoutMs < 0 {
		return helpers.NewConfigurationError("connect timeout cannot be negative")
	}

	// Validate display groups
	seen := make(map[string]bool)
	for i, group := range c.Groups {
		if group.ID == "" {
			return helpers.NewConfigurationError("group %d must have an id", i)
		}
		if seen[group.ID] {
			return helpers.NewConfigurationError("duplicate group id '%s'", group.ID)
		}
		seen[group.ID] = true

		if err := validateScheduler(group.ID, group.Scheduler); err != nil {
			return err
		}
		for j, item := range group.Items {
			if item.ID == "" || item.Symbol == "" {
				return helpers.NewConfigurationError("group '%s' item %d must have id and symbol", group.ID, j)
			}
			if !validCategory(item.Category) {
				return helpers.NewConfigurationError("group '%s' item '%s' has unknown category '%s'", group.ID, item.ID, item.Category)
			}
			if item.BaseWeight <= 0 {
				return helpers.NewConfigurationError("group '%s' item '%s' must have a positive base weight", group.ID, item.ID)
			}
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func validateScheduler(groupID string, cfg models.MSchedulerConfig) error {
	// Zero slots is legal: the scheduler degrades to empty rotations.
	if cfg.FixedSlots < 0 || cfg.SpotlightSlots < 0 {
		return helpers.NewConfigurationError("group '%s' slot counts cannot be negative", groupID)
	}
	if cfg.RotationIntervalSeconds < 0 {
		return helpers.NewConfigurationError("group '%s' rotation interval cannot be negative", groupID)
	}
	if cfg.FairnessWindow < 0 {
		return helpers.NewConfigurationError("group '%s' fairness window cannot be negative", groupID)
	}

	for _, part := range cfg.DayParts {
		if part.Name == "" {
			return helpers.NewConfigurationError("group '%s' has an unnamed day part", groupID)
		}
		if part.StartHour < 0 || part.StartHour > 23 || part.EndHour < 0 || part.EndHour > 23 {
			return helpers.NewConfigurationError("group '%s' day part '%s' hours must be within 0..23", groupID, part.Name)
		}
		for cat, mult := range part.Weights {
			if !validCategory(cat) {
				return helpers.NewConfigurationError("group '%s' day part '%s' weights unknown category '%s'", groupID, part.Name, cat)
			}
			if mult <= 0 {
				return helpers.NewConfigurationError("group '%s' day part '%s' multiplier for '%s' must be positive", groupID, part.Name, cat)
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func validCategory(cat models.Category) bool {
	switch cat {
	case models.CategoryCurrency, models.CategoryCrypto, models.CategoryCommodity, models.CategoryIndex:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
