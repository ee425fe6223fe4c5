package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	yaml "sigs.k8s.io/yaml"
)

const (
	defaultKubectl      = "kubectl"
	defaultHistoryLimit = 100
)

type KubectlConfig struct {
	// Path is the kubectl binary, looked up in PATH when not absolute.
	Path       string `json:"path"`
	Kubeconfig string `json:"kubeconfig,omitempty"`
	Context    string `json:"context,omitempty"`
	// Timeout bounds a single kubectl invocation. Zero waits forever.
	Timeout metav1.Duration `json:"timeout"`
}

type ExplainConfig struct {
	Recursive  bool   `json:"recursive"`
	APIVersion string `json:"apiVersion,omitempty"`
}

type HistoryConfig struct {
	Limit int `json:"limit"`
}

type LogConfig struct {
	File      string `json:"file,omitempty"`
	Verbosity int    `json:"verbosity"`
}

type Config struct {
	Kubectl KubectlConfig `json:"kubectl"`
	Explain ExplainConfig `json:"explain"`
	History HistoryConfig `json:"history"`
	Log     LogConfig     `json:"log"`
}

// Default returns the configuration that reproduces plain
// `kubectl api-resources -o name` and `kubectl explain <path>` calls.
func Default() *Config {
	return &Config{
		Kubectl: KubectlConfig{Path: defaultKubectl},
		History: HistoryConfig{Limit: defaultHistoryLimit},
	}
}

// Path returns ~/.kubexp/config.yaml.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kubexp", "config.yaml"), nil
}

// Load reads the config at path, or at Path() when path is empty. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	normalize(cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.Kubectl.Path == "" {
		cfg.Kubectl.Path = defaultKubectl
	}
	if cfg.Kubectl.Timeout.Duration < 0 {
		cfg.Kubectl.Timeout.Duration = 0
	}
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = defaultHistoryLimit
	}
	if cfg.Log.Verbosity < 0 {
		cfg.Log.Verbosity = 0
	}
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
