package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Feed     MFeedConfig    `yaml:"feed"`
	Groups   []MGroupConfig `yaml:"groups"`
}

type MFeedConfig struct {
	URL              string   `yaml:"url"`
	Products         []string `yaml:"products"`
	ConnectTimeoutMs int64    `yaml:"connect_timeout_ms"`
}

// MGroupConfig binds one display group to its scheduler config and item pool.
type MGroupConfig struct {
	ID        string           `yaml:"id"`
	Scheduler MSchedulerConfig `yaml:"scheduler"`
	Items     []MRotationItem  `yaml:"items"`
}
