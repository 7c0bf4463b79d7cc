package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/brettbedarf/vkernel/internal/util"
	"gopkg.in/yaml.v3"
)

// Bytes per MB
const MB = 1024 * 1024

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel

	DefaultSysName = "vkernel"
	DefaultRelease = "0.2"
	DefaultMachine = "go-virtual"

	// Descriptors 0, 1 and 2 are left for stdin, stdout and stderr
	DefaultFirstFD = 3

	// Uses 31 bits so every handle fits the non-negative half of an int32
	// and the -1 failure sentinel never collides with a valid handle.
	DefaultMaxFD = (1 << 31) - 1

	// DefaultMaxReadSize caps the bytes returned by a single descriptor read
	DefaultMaxReadSize = 1 * MB

	DefaultFsName = "vkernel"
	DefaultName   = "vkernel"
)

// CLI style verbosity levels accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// DefaultStandardDirs returns the directories created under the root at boot
func DefaultStandardDirs() []string {
	return []string{"bin", "etc", "home", "tmp"}
}

// Config contains runtime configuration values for the kernel.
type Config struct {
	MountOptions
	LogLvl util.LogLevel // Internal log level (Default info)

	SysName      string   // System name reported by uname and the boot banner (Default "vkernel")
	Release      string   // Release reported by uname and the boot banner (Default "0.2")
	Machine      string   // Machine description reported by uname (Default "go-virtual")
	StandardDirs []string // Directories created under / at boot (Default bin, etc, home, tmp)

	FirstFD     int // First descriptor handed out by fs_open (Default 3)
	MaxFD       int // Largest descriptor value (Default 2147483647)
	MaxReadSize int // Maximum bytes returned by one fs_read (Default 1MB)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a CLI verbosity between 1 (error) and 5 (trace); values
	// outside the range are clamped
	LogLvl *int    `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	FsName *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name   *string `yaml:"name,omitempty" json:"name,omitempty"`
	Debug  *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`

	SysName      *string   `yaml:"sys_name,omitempty" json:"sys_name,omitempty"`
	Release      *string   `yaml:"release,omitempty" json:"release,omitempty"`
	Machine      *string   `yaml:"machine,omitempty" json:"machine,omitempty"`
	StandardDirs *[]string `yaml:"standard_dirs,omitempty" json:"standard_dirs,omitempty"`

	FirstFD     *int `yaml:"first_fd,omitempty" json:"first_fd,omitempty"`
	MaxFD       *int `yaml:"max_fd,omitempty" json:"max_fd,omitempty"`
	MaxReadSize *int `yaml:"max_read_size,omitempty" json:"max_read_size,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:       DefaultLogLvl,
		SysName:      DefaultSysName,
		Release:      DefaultRelease,
		Machine:      DefaultMachine,
		StandardDirs: DefaultStandardDirs(),
		FirstFD:      DefaultFirstFD,
		MaxFD:        DefaultMaxFD,
		MaxReadSize:  DefaultMaxReadSize,
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// verboseToLogLvl maps CLI verbosity 1 (error) .. 5 (trace) to a log level
func verboseToLogLvl(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return lvls[verbose-1]
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = verboseToLogLvl(*override.LogLvl)
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.SysName != nil {
		c.SysName = *override.SysName
	}
	if override.Release != nil {
		c.Release = *override.Release
	}
	if override.Machine != nil {
		c.Machine = *override.Machine
	}
	if override.StandardDirs != nil {
		c.StandardDirs = slices.Clone(*override.StandardDirs)
	}
	if override.FirstFD != nil {
		c.FirstFD = *override.FirstFD
	}
	if override.MaxFD != nil {
		c.MaxFD = *override.MaxFD
	}
	if override.MaxReadSize != nil {
		c.MaxReadSize = *override.MaxReadSize
	}
}

// Validate reports settings the kernel cannot run with
func (c *Config) Validate() error {
	if c.FirstFD < 0 {
		return fmt.Errorf("first_fd must not be negative: %d", c.FirstFD)
	}
	if c.MaxFD < c.FirstFD || c.MaxFD > DefaultMaxFD {
		return fmt.Errorf("max_fd must be between first_fd (%d) and %d: %d", c.FirstFD, DefaultMaxFD, c.MaxFD)
	}
	if c.MaxReadSize <= 0 {
		return fmt.Errorf("max_read_size must be positive: %d", c.MaxReadSize)
	}
	for _, d := range c.StandardDirs {
		if d == "" || strings.Contains(d, "/") || d == "." || d == ".." {
			return fmt.Errorf("invalid standard dir name %q", d)
		}
	}
	return nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig(override)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}
