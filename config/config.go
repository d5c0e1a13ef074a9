package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"
)

//go:embed swocat.toml
var defaultConfigData []byte

// Global state variables for the selected probe profile
var (
	ProfileName string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Interface   int
	Mode        byte
	Transport   string // empty means the command default
	FilePath    string // where the configuration was loaded from
)

var profileNames []string

// Config represents the entire TOML configuration structure
type Config struct {
	Default string  `toml:"default"`
	Probe   []Probe `toml:"probe"`
}

// Probe represents one probe profile
type Probe struct {
	Name      string `toml:"name"`
	VID       string `toml:"vid"` // hex string, e.g. "1fc9"
	PID       string `toml:"pid"` // hex string
	Serial    string `toml:"serial"`
	Interface *int   `toml:"interface"` // nil when the key is absent; 0 is a valid interface
	Mode      int    `toml:"mode"`
	Transport string `toml:"transport"`
}

// configPath determines the config file path based on the operating system
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		// Use AppData directory for Windows
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "swocat")
	default:
		// Linux/macOS: use home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".swocat"), nil
}

// Initialize loads and validates the configuration file and selects the
// named probe profile; the empty string selects the file's default.
// If the config file doesn't exist, it creates it from the embedded default.
func Initialize(profile string) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	// Check if config file exists, create from embedded default if not
	if _, err := os.Stat(path); os.IsNotExist(err) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
			return fmt.Errorf("failed to create default config file at %s: %w", path, err)
		}
	}

	var conf Config
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return fmt.Errorf("failed to parse TOML config at %s: %w", path, err)
	}

	if profile == "" {
		profile = conf.Default
	}
	if profile == "" {
		return errors.New("`default` key is missing or empty in config")
	}

	profileNames = profileNames[:0]
	var found *Probe
	for i := range conf.Probe {
		profileNames = append(profileNames, conf.Probe[i].Name)
		if conf.Probe[i].Name == profile {
			found = &conf.Probe[i]
		}
	}
	if found == nil {
		return fmt.Errorf("probe profile %q not found in %s", profile, path)
	}

	vid, err := strconv.ParseUint(found.VID, 16, 16)
	if err != nil {
		return fmt.Errorf("probe %q: can't parse vid %q as hex", profile, found.VID)
	}
	pid, err := strconv.ParseUint(found.PID, 16, 16)
	if err != nil {
		return fmt.Errorf("probe %q: can't parse pid %q as hex", profile, found.PID)
	}
	if found.Interface == nil {
		return fmt.Errorf("probe %q is missing the interface number", profile)
	}
	if *found.Interface < 0 {
		return fmt.Errorf("probe %q has invalid interface: %d (must not be negative)", profile, *found.Interface)
	}
	if found.Mode <= 0 || found.Mode > 255 {
		return fmt.Errorf("probe %q has invalid mode: %d (must be 1-255)", profile, found.Mode)
	}

	// Store profile properties in global variables
	ProfileName = profile
	VendorID = uint16(vid)
	ProductID = uint16(pid)
	Serial = found.Serial
	Interface = *found.Interface
	Mode = byte(found.Mode)
	Transport = found.Transport
	FilePath = path

	return nil
}

// ProfileNames returns the names of all profiles seen during Initialize.
func ProfileNames() []string {
	names := make([]string, len(profileNames))
	copy(names, profileNames)
	return names
}
