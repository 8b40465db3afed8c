// Package config loads the rereg YAML configuration file.
package config

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"code.rereg.org/golang/internal/observability"
	"code.rereg.org/golang/pkg/linkstore"
	"code.rereg.org/golang/pkg/linkstore/boltdb"
	"code.rereg.org/golang/pkg/linkstore/pgdb"
	"code.rereg.org/golang/pkg/provisioning"
	"code.rereg.org/golang/pkg/restore"
)

const (
	StoreMemory   = "memory"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Config holds the rereg configuration.
type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Restore      RestoreConfig      `yaml:"restore"`
	Store        StoreConfig        `yaml:"store"`
	Log          LogConfig          `yaml:"log"`
	Simulator    SimulatorConfig    `yaml:"simulator"`

	// IdentityKey is the file that holds the 32 bytes identity private key.
	// The key is generated on first use.
	IdentityKey string `yaml:"identity_key"`
}

// ServiceConfig holds the messaging service location & credentials.
type ServiceConfig struct {
	URL string `yaml:"url"`

	// ProvisioningHost overrides the Host header of the provisioning socket upgrade.
	ProvisioningHost string `yaml:"provisioning_host"`

	// RestoreHost overrides the Host header of restore_account requests.
	RestoreHost string `yaml:"restore_host"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type ProvisioningConfig struct {
	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`
	AddressTimeout    time.Duration `yaml:"address_timeout"`
	Lifespan          time.Duration `yaml:"lifespan"`
}

type RestoreConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects where linking results are saved.
type StoreConfig struct {
	Kind   string `yaml:"kind"`   // memory, bolt or postgres
	Path   string `yaml:"path"`   // bolt database file
	DSN    string `yaml:"dsn"`    // postgres connection string
	Schema string `yaml:"schema"` // postgres schema, created if missing
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type SimulatorConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			URL: "http://localhost:8080",
		},
		Provisioning: ProvisioningConfig{
			KeepAliveInterval: provisioning.DefaultKeepAliveInterval,
			AddressTimeout:    provisioning.DefaultAddressTimeout,
			Lifespan:          provisioning.DefaultLifespan,
		},
		Restore: RestoreConfig{
			Timeout: restore.DefaultTimeout,
		},
		Store: StoreConfig{
			Kind:   StoreBolt,
			Path:   "rereg.db",
			Schema: "rereg",
		},
		Log: LogConfig{
			Level: "info",
		},
		Simulator: SimulatorConfig{
			Listen: "localhost:8080",
		},
		IdentityKey: "rereg_identity.key",
	}
}

// LoadConfig loads configuration from a YAML file.
// Values missing from the file keep their default, a missing file yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if "" == path {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if nil != err {
		return nil, wrapError(err, "failed reading config file")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err = dec.Decode(cfg)
	if nil != err && !errors.Is(err, io.EOF) {
		return nil, wrapError(err, "failed parsing config file %s", path)
	}

	return cfg, cfg.Check()
}

// Check returns an error if the Config is invalid.
func (self *Config) Check() error {
	if err := self.ProvisioningConfig().Check(); nil != err {
		return wrapError(err, "invalid service/provisioning settings")
	}
	if err := self.RestoreClientCfg().Check(); nil != err {
		return wrapError(err, "invalid service settings")
	}
	if 0 != self.Restore.Timeout && (self.Restore.Timeout < restore.MinTimeout || self.Restore.Timeout > restore.MaxTimeout) {
		return newError("restore timeout %s out of [%s, %s]", self.Restore.Timeout, restore.MinTimeout, restore.MaxTimeout)
	}
	switch self.Store.Kind {
	case StoreMemory:
	case StoreBolt:
		if "" == self.Store.Path {
			return newError("bolt store requires a path")
		}
	case StorePostgres:
		if "" == self.Store.DSN {
			return newError("postgres store requires a dsn")
		}
	default:
		return newError("unknown store kind %q", self.Store.Kind)
	}
	if _, err := self.LogLevel(); nil != err {
		return err
	}
	return nil
}

// ProvisioningConfig returns the provisioning.Config derived from self.
func (self *Config) ProvisioningConfig() provisioning.Config {
	return provisioning.Config{
		ServiceURL:        self.Service.URL,
		HostHeader:        self.Service.ProvisioningHost,
		KeepAliveInterval: self.Provisioning.KeepAliveInterval,
		AddressTimeout:    self.Provisioning.AddressTimeout,
		Lifespan:          self.Provisioning.Lifespan,
	}
}

// RestoreClientCfg returns the restore.ClientCfg derived from self.
func (self *Config) RestoreClientCfg() restore.ClientCfg {
	return restore.ClientCfg{
		ServiceURL: self.Service.URL,
		HostHeader: self.Service.RestoreHost,
		Username:   self.Service.Username,
		Password:   self.Service.Password,
	}
}

// OpenStore returns the linkstore.Store selected by the Store settings.
func (self *Config) OpenStore(ctx context.Context) (linkstore.Store, error) {
	switch self.Store.Kind {
	case StoreMemory:
		return linkstore.NewMemStore(), nil
	case StoreBolt:
		store, err := boltdb.New(self.Store.Path)
		return store, wrapError(err, "failed opening bolt store")
	case StorePostgres:
		store, err := pgdb.New(ctx, self.Store.DSN, self.Store.Schema)
		if nil != err {
			return nil, wrapError(err, "failed opening postgres store")
		}
		if "" != self.Store.Schema {
			err = pgdb.Migrate(ctx, store.DB, self.Store.Schema)
			if nil != err {
				return nil, wrapError(err, "failed postgres migration")
			}
		}
		return store, nil
	default:
		return nil, newError("unknown store kind %q", self.Store.Kind)
	}
}

// LogOff disables logging.
const LogOff = "off"

var logLevels = []string{"debug", "info", "warn", "error", LogOff}

// LogLevel returns the slog.Level named by Log.Level.
// LogOff maps to a level above slog.LevelError.
func (self *Config) LogLevel() (slog.Level, error) {
	name := strings.ToLower(self.Log.Level)
	if !slices.Contains(logLevels, name) {
		return slog.LevelInfo, newError("unknown log level %q", self.Log.Level)
	}
	if LogOff == name {
		return slog.LevelError + 4, nil
	}
	var level slog.Level
	err := level.UnmarshalText([]byte(name))
	return level, wrapError(err, "failed parsing log level")
}

// Logger returns a Logger writing to w at the configured level.
func (self *Config) Logger(w io.Writer) *slog.Logger {
	if LogOff == strings.ToLower(self.Log.Level) {
		return observability.NoopLogger()
	}
	level, err := self.LogLevel()
	if nil != err {
		level = slog.LevelInfo
	}
	return observability.NewLogger(w, level)
}
