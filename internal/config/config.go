package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/geo"
)

// Config holds connection parameters shared by the sentinel binaries.
type Config struct {
	// ServerAddress is the HTTP address of the sentinel server.
	// The server binary listens on its port; clients dial it as-is.
	ServerAddress string `yaml:"server_addr"`
	// SettingsFile is the path to the JSON file storing runtime settings.
	SettingsFile string `yaml:"settings_file"`
	// Timeout is the duration for network operations and API calls.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for connection settings.
	DefaultConfigFilename = "sentinel-settings.yaml"

	// DefaultSettingsFilename is the default filename for runtime settings JSON.
	DefaultSettingsFilename = "sentinel-runtime.json"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided configuration for required fields and formatting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	// Set default timeout if not specified
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	// Set default settings file if not specified
	if cfg.SettingsFile == "" {
		cfg.SettingsFile = DefaultSettingsFilename
	}

	return nil
}

// Settings are the runtime-mutable knobs of the emergency core. Collaborators
// update them through the API at any time; changes take effect on the next
// relevant evaluation without a restart.
type Settings struct {
	// SafeZone is the guarded boundary, nil when none is configured.
	// Leaving it by more than the breach margin escalates to an emergency.
	SafeZone *geo.Zone `json:"safe_zone,omitempty" yaml:"safe_zone,omitempty"`
	// RedZones are known high-risk areas. Entering one produces an advisory,
	// never an emergency trigger.
	RedZones []geo.Zone `json:"red_zones" yaml:"red_zones"`
	// Contacts are the emergency contacts, first one receives the SOS message.
	Contacts []safety.Contact `json:"contacts" yaml:"contacts"`
	// SirenEnabled gates the audible siren while an emergency is active.
	SirenEnabled bool `json:"siren_enabled" yaml:"siren_enabled"`
	// ShakeEnabled gates the shake pattern detector.
	ShakeEnabled bool `json:"shake_enabled" yaml:"shake_enabled"`
}

// DefaultSettings returns the out-of-the-box runtime settings.
func DefaultSettings() *Settings {
	return &Settings{
		SirenEnabled: true,
		ShakeEnabled: true,
	}
}

// Clone returns a deep copy so holders can mutate their view freely.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}

	cloned := *s

	if s.SafeZone != nil {
		zone := *s.SafeZone
		cloned.SafeZone = &zone
	}

	if s.RedZones != nil {
		cloned.RedZones = make([]geo.Zone, len(s.RedZones))
		copy(cloned.RedZones, s.RedZones)
	}

	if s.Contacts != nil {
		cloned.Contacts = make([]safety.Contact, len(s.Contacts))
		copy(cloned.Contacts, s.Contacts)
	}

	return &cloned
}
