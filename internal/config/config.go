package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/tagreg/internal/logging"
)

const (
	// FileName is the project configuration file the CLI looks for.
	FileName = "tagreg.yaml"

	// DefaultStoreFile is the store location used when no configuration
	// file is present, relative to the working directory.
	DefaultStoreFile = "tags.toml"
)

// Config is the decoded tagreg.yaml.
type Config struct {
	Version int    `yaml:"version"`
	Store   string `yaml:"store,omitempty"`  // store file path, relative to the config file
	Keying  string `yaml:"keying,omitempty"` // "qualified" or "bare"
}

// Default returns the configuration used when no tagreg.yaml exists:
// a qualified-keyed store named tags.toml in the working directory.
func Default() *Config {
	return &Config{
		Version: 1,
		Store:   DefaultStoreFile,
		Keying:  "qualified",
	}
}

// Locate walks up from dir looking for a tagreg.yaml, the way build
// tools locate go.mod. Returns the file's path, or ok=false when no
// ancestor directory has one.
func Locate(dir string) (path string, ok bool, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", false, fmt.Errorf("resolving %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("checking %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Validate version
	if cfg.Version != 1 {
		return nil, fmt.Errorf("%s: unsupported config version: %d (expected 1)", path, cfg.Version)
	}

	if cfg.Store == "" {
		cfg.Store = DefaultStoreFile
	}
	switch cfg.Keying {
	case "":
		cfg.Keying = "qualified"
	case "qualified", "bare":
	default:
		return nil, fmt.Errorf("%s: unknown keying scheme %q (expected \"qualified\" or \"bare\")", path, cfg.Keying)
	}

	return &cfg, nil
}

// LoadFromDir locates and loads the configuration governing dir. When
// no tagreg.yaml exists, defaults are returned and the store path is
// resolved against dir; otherwise relative store paths are resolved
// against the config file's directory, so every invocation anywhere in
// the project sees the same store.
func LoadFromDir(dir string) (*Config, error) {
	path, ok, err := Locate(dir)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	base := dir
	if ok {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
		base = filepath.Dir(path)
		logging.Debug("loaded config", zap.String("path", path))
	} else {
		cfg = Default()
		logging.Debug("no config file found, using defaults", zap.String("dir", dir))
	}

	if !filepath.IsAbs(cfg.Store) {
		cfg.Store = filepath.Join(base, cfg.Store)
	}
	return cfg, nil
}
