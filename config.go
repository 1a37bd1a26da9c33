package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	secretfuse "github.com/evict/passfs/fuse"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

var ErrNoReference = errors.New("secret has no reference")

type SecretEntry struct {
	Reference   string   `yaml:"reference"`
	Filename    string   `yaml:"filename"`
	MaxReads    int32    `yaml:"max_reads"`
	AllowedCmds []string `yaml:"allowed_cmds"`
	SymlinkTo   string   `yaml:"symlink_to"`
	Refresh     bool     `yaml:"refresh"`
}

type Config struct {
	Secrets     []SecretEntry `yaml:"secrets"`
	OnePassword struct {
		Account string `yaml:"account"`
		Token   string `yaml:"token"` // passphrase argument for the service account token
	} `yaml:"onepassword"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for i, s := range cfg.Secrets {
		if s.Reference == "" {
			return nil, fmt.Errorf("secret #%d: %w", i+1, ErrNoReference)
		}
		if s.SymlinkTo != "" {
			if cfg.Secrets[i].SymlinkTo, err = homedir.Expand(s.SymlinkTo); err != nil {
				return nil, fmt.Errorf("secret #%d: %w", i+1, err)
			}
		}
	}
	return &cfg, nil
}

func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return homedir.Expand(explicit)
	}
	// Check ~/.config/passfs.yaml
	if home, err := homedir.Dir(); err == nil {
		configPath := filepath.Join(home, ".config", "passfs.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}
	// Fallback to passfs.yaml in current directory
	return "passfs.yaml", nil
}

// secretConfigs converts the configuration entries, applying the default read limit.
func (c *Config) secretConfigs(defaultMaxReads int32) []secretfuse.SecretConfig {
	secrets := make([]secretfuse.SecretConfig, len(c.Secrets))
	for i, s := range c.Secrets {
		maxR := s.MaxReads
		if maxR == 0 {
			maxR = defaultMaxReads
		}
		secrets[i] = secretfuse.SecretConfig{
			Reference:   s.Reference,
			Filename:    s.Filename,
			MaxReads:    maxR,
			AllowedCmds: s.AllowedCmds,
			SymlinkTo:   s.SymlinkTo,
			Refresh:     s.Refresh,
		}
	}
	return secrets
}

func (c *Config) references() []string {
	refs := make([]string, len(c.Secrets))
	for i, s := range c.Secrets {
		refs[i] = s.Reference
	}
	return refs
}
