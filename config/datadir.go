package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const (
	AppName      = "nodetree"
	MajorVersion = 1

	// ConfigFileName is looked up inside the data directory
	ConfigFileName = "config.yaml"
)

// DataDir returns the per-user data directory, e.g. ~/.config/nodetree_1 on Linux.
// The directory is not created.
func DataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve user config dir")
	}
	return filepath.Join(base, fmt.Sprintf("%s_%d", AppName, MajorVersion)), nil
}

// DefaultConfigPath returns the config file inside [DataDir]
func DefaultConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}
