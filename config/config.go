package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loyaltychain/crypto"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress         string `toml:"RPCAddress"`
	MetricsAddress     string `toml:"MetricsAddress"`
	DataDir            string `toml:"DataDir"`
	OwnerKeystorePath  string `toml:"OwnerKeystorePath"`
	CollectionName     string `toml:"CollectionName"`
	CollectionSymbol   string `toml:"CollectionSymbol"`
	NetworkName        string `toml:"NetworkName"`
	KeystorePassphrase string `toml:"-"`
}

// Option customises config loading.
type Option func(*loadOptions)

type loadOptions struct {
	passphrase func() (string, error)
}

// WithKeystorePassphraseSource supplies the passphrase used when creating or
// opening the owner keystore.
func WithKeystorePassphraseSource(source func() (string, error)) Option {
	return func(o *loadOptions) {
		o.passphrase = source
	}
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string, opts ...Option) (*Config, error) {
	options := &loadOptions{passphrase: func() (string, error) { return "", nil }}
	for _, opt := range opts {
		opt(options)
	}

	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		var createErr error
		cfg, createErr = createDefault(path)
		if createErr != nil {
			return nil, createErr
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(path, cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}

	passphrase, err := options.passphrase()
	if err != nil {
		return nil, err
	}
	cfg.KeystorePassphrase = passphrase
	if err := ensureKeystore(cfg, passphrase); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(path string, cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8545"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = "127.0.0.1:9090"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./loyaltydata"
	}
	if strings.TrimSpace(cfg.OwnerKeystorePath) == "" {
		cfg.OwnerKeystorePath = defaultKeystorePath(path)
	}
	if strings.TrimSpace(cfg.CollectionName) == "" {
		cfg.CollectionName = "Loyalty Membership"
	}
	if strings.TrimSpace(cfg.CollectionSymbol) == "" {
		cfg.CollectionSymbol = "LOYM"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "loyalty-local"
	}
}

func validate(cfg *Config) error {
	if cfg.RPCAddress == cfg.MetricsAddress {
		return fmt.Errorf("config: RPCAddress and MetricsAddress must differ")
	}
	return nil
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "owner.keystore")
}

func ensureKeystore(cfg *Config, passphrase string) error {
	if _, err := os.Stat(cfg.OwnerKeystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		return crypto.SaveToKeystore(cfg.OwnerKeystorePath, key, passphrase)
	} else if err != nil {
		return err
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(path, cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
