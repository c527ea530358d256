package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600
)

// Config holds the evaluation defaults read from ~/.goldeval/config.yaml.
// Flags override anything set here.
type Config struct {
	// ModelURL is the inference service base URL.
	ModelURL string `yaml:"modelURL"`
	// Labels are the model output head labels, in head order.
	Labels []string `yaml:"labels"`
	// EmbeddingsPath is passed through to the inference service.
	EmbeddingsPath string `yaml:"embeddingsPath"`
}

func getDefaultConfig() *Config {
	return &Config{
		ModelURL: "http://localhost:8501",
		Labels: []string{
			"threat",
			"flirtation",
			"identity_hate",
			"insult",
			"obscene",
			"sexual_explicit",
			"frac_very_neg",
			"frac_neg",
		},
		EmbeddingsPath: "local_data/glove.6B/glove.6B.100d.txt",
	}
}

// Save writes the config into the given directory.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", configFileName)
	}
	return nil
}

// ReadOrCreate reads the app config from a directory, creating the
// directory and a default config on first use.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
		}
	}

	path := filepath.Join(dirPath, configFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(dirPath, getDefaultConfig()); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	return &c, nil
}

// GetOrCreateHomeDir returns the app home directory for the current
// user, creating it on first use.
func GetOrCreateHomeDir(name string) (string, error) {
	if name == "" {
		return "", errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user home dir")
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", errors.Wrapf(err, "failed to create dir: %s", dir)
		}
	}
	return dir, nil
}
