package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/nodetree/internal/util"
	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel

	// DefaultDescriptorName is the well-known descriptor file in every node directory
	DefaultDescriptorName = "node_data.json"

	DefaultDirPerm  os.FileMode = 0o755
	DefaultFilePerm os.FileMode = 0o644

	// DefaultAtomicWrites writes descriptors through a temp file and rename
	DefaultAtomicWrites = true

	// DefaultDeriveSlotNames allows AddChild without a slot name
	DefaultDeriveSlotNames = true

	// DefaultIndent is the number of spaces used to indent descriptors
	DefaultIndent = 2
	// MaxIndent bounds Indent
	MaxIndent = 8
)

// CLI-style log verbosity accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Config contains runtime configuration values for the node tree.
type Config struct {
	LogLvl          util.LogLevel // Internal log level (Default info)
	DescriptorName  string        // Descriptor file name inside each node directory (Default node_data.json)
	DirPerm         os.FileMode   // Mode for created node directories (Default 0755)
	FilePerm        os.FileMode   // Mode for written descriptors (Default 0644)
	AtomicWrites    bool          // Write descriptors via temp file + rename (Default true)
	DeriveSlotNames bool          // Derive "<type>_<text>" when AddChild gets no slot name (Default true)
	Indent          int           // Descriptor indentation in spaces, 0 for compact (Default 2)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a verbosity between 1 (error) and 5 (trace); out of range values are clamped
	LogLvl          *int    `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	DescriptorName  *string `yaml:"descriptor_name,omitempty" json:"descriptor_name,omitempty"`
	DirPerm         *uint32 `yaml:"dir_perm,omitempty" json:"dir_perm,omitempty"`
	FilePerm        *uint32 `yaml:"file_perm,omitempty" json:"file_perm,omitempty"`
	AtomicWrites    *bool   `yaml:"atomic_writes,omitempty" json:"atomic_writes,omitempty"`
	DeriveSlotNames *bool   `yaml:"derive_slot_names,omitempty" json:"derive_slot_names,omitempty"`
	Indent          *int    `yaml:"indent,omitempty" json:"indent,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLvl:          DefaultLogLvl,
		DescriptorName:  DefaultDescriptorName,
		DirPerm:         DefaultDirPerm,
		FilePerm:        DefaultFilePerm,
		AtomicWrites:    DefaultAtomicWrites,
		DeriveSlotNames: DefaultDeriveSlotNames,
		Indent:          DefaultIndent,
	}
}

// NewConfig creates a Config from defaults with override applied when non-nil.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.VerbosityLevel(*override.LogLvl)
	}
	if override.DescriptorName != nil {
		c.DescriptorName = *override.DescriptorName
	}
	if override.DirPerm != nil {
		c.DirPerm = os.FileMode(*override.DirPerm)
	}
	if override.FilePerm != nil {
		c.FilePerm = os.FileMode(*override.FilePerm)
	}
	if override.AtomicWrites != nil {
		c.AtomicWrites = *override.AtomicWrites
	}
	if override.DeriveSlotNames != nil {
		c.DeriveSlotNames = *override.DeriveSlotNames
	}
	if override.Indent != nil {
		c.Indent = *override.Indent
	}
}

// Validate reports every setting that would make the tree unusable
func (c *Config) Validate() error {
	var result *multierror.Error
	name := c.DescriptorName
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		result = multierror.Append(result, errors.Newf("descriptor name %q must be a plain file name", name))
	}
	if c.DirPerm&0o700 != 0o700 {
		result = multierror.Append(result, errors.Newf("dir perm %#o must grant the owner rwx", c.DirPerm))
	}
	if c.FilePerm&0o600 != 0o600 {
		result = multierror.Append(result, errors.Newf("file perm %#o must grant the owner rw", c.FilePerm))
	}
	if c.Indent < 0 || c.Indent > MaxIndent {
		result = multierror.Append(result, errors.Newf("indent %d must be between 0 and %d", c.Indent, MaxIndent))
	}
	return result.ErrorOrNil()
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal config file")
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal config file")
		}
	default:
		return nil, errors.Newf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults
// and validating the result.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig(override)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}
