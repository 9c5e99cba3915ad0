package config

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration tree.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Engine   EngineConfig   `yaml:"engine"`
}

// AppConfig identifies the application.
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"` // dev, test, prod
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // mysql, postgres
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	Charset         string `yaml:"charset"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, console
	Output     string `yaml:"output"` // stdout, file, both
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

// StorageConfig holds the artifact storage root. Plan documents, data files,
// raw results and generated reports live in fixed subdirectories beneath it.
type StorageConfig struct {
	BaseDir string `yaml:"base_dir"`
}

// EngineConfig holds load-engine settings.
type EngineConfig struct {
	// Path is the preferred executable location; AlternatePaths are tried
	// next, then a fixed list of conventional install locations.
	Path           string   `yaml:"path"`
	AlternatePaths []string `yaml:"alternate_paths"`

	// Remote worker mode (-r/-R flags).
	RemoteEnabled bool   `yaml:"remote_enabled"`
	RemoteHost    string `yaml:"remote_host"`

	// RunTimeoutMinutes caps a single run; a run still alive past the cap is
	// force killed and marked failed.
	RunTimeoutMinutes int `yaml:"run_timeout_minutes"`

	// Termination escalation waits, in seconds.
	GracefulWaitSeconds int `yaml:"graceful_wait_seconds"`
	ForceWaitSeconds    int `yaml:"force_wait_seconds"`

	// ProcessPattern is the command-line signature used by the fallback
	// sweep. Defaults to the engine executable's base name.
	ProcessPattern string `yaml:"process_pattern"`
}

var (
	globalConfig *Config
	once         sync.Once
)

// LoadConfig reads and parses the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	once.Do(func() {
		globalConfig = &cfg
	})

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "stress-admin"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.BaseDir == "" {
		c.Storage.BaseDir = "/home/ubuntu/stress-admin-storage"
	}
	if c.Engine.RunTimeoutMinutes == 0 {
		c.Engine.RunTimeoutMinutes = 30
	}
	if c.Engine.GracefulWaitSeconds == 0 {
		c.Engine.GracefulWaitSeconds = 5
	}
	if c.Engine.ForceWaitSeconds == 0 {
		c.Engine.ForceWaitSeconds = 2
	}
	if c.Engine.ProcessPattern == "" {
		c.Engine.ProcessPattern = "jmeter"
	}
}

// GetConfig returns the global configuration.
func GetConfig() *Config {
	return globalConfig
}

// SetConfig replaces the global configuration.
func SetConfig(cfg *Config) {
	globalConfig = cfg
}
