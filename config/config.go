// Package config loads the server configuration from a YAML file.
package config

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"hunk/application/http/actor/server"
	"hunk/application/static"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "hunk.yaml"

type Config struct {
	Server ServerConfig `yaml:"server"`

	// A nil section disables the feature.
	Gzip  *GzipConfig  `yaml:"gzip"`
	Cache *CacheConfig `yaml:"cache"`
	Cors  *CorsConfig  `yaml:"cors"`

	Log LogConfig `yaml:"log"`
}

type ServerConfig struct {
	Root    string        `yaml:"root"`
	Host    string        `yaml:"host"`
	Port    uint16        `yaml:"port"`
	Workers uint          `yaml:"workers"`
	Browse  bool          `yaml:"browse"`
	Timeout TimeoutConfig `yaml:"timeout"`
}

type TimeoutConfig struct {
	Idle  time.Duration `yaml:"idle"`
	Read  time.Duration `yaml:"read"`
	Write time.Duration `yaml:"write"`
}

type GzipConfig struct {
	Level          int      `yaml:"level"`
	Threshold      uint64   `yaml:"threshold"`
	AlsoExtensions []string `yaml:"also_extensions"`
}

// UnmarshalYAML fills the fields missing from the section with their defaults.
func (g *GzipConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawGzipConfig GzipConfig
	raw := rawGzipConfig{Level: 6, Threshold: 1024}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*g = GzipConfig(raw)
	return nil
}

type CacheConfig struct {
	MaxAge uint `yaml:"max_age"`
}

type CorsConfig struct {
	// Empty means any origin, without credentials.
	Origins []string `yaml:"origins"`
}

type LogConfig struct {
	Requests bool   `yaml:"requests"`
	Format   string `yaml:"format"`
	Level    string `yaml:"level"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Root:    ".",
			Host:    "127.0.0.1",
			Port:    3000,
			Workers: uint(runtime.NumCPU()),
			Timeout: TimeoutConfig{
				Idle: time.Minute,
				Read: 30 * time.Second,
			},
		},
		Log: LogConfig{
			Requests: true,
			Level:    "info",
		},
	}
}

// Load reads path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config file")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty file is not an error.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrapf(err, "parsing config file %q", path)
	}

	return cfg, nil
}

// Discover loads path, or [DefaultFile] if path is empty and the file exists.
// It returns the file that was loaded, which is empty if none was.
func Discover(path string) (Config, string, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return Default(), "", nil
		}
		path = DefaultFile
	}

	cfg, err := Load(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

var (
	ErrNoWorkers     = errors.New("workers should be at least 1")
	ErrGzipLevel     = errors.New("gzip level should be between 1 and 9")
	ErrRootNotDir    = errors.New("root is not a directory")
	ErrUnknownLevel  = errors.New("unknown log level")
	ErrUnknownFormat = errors.New("unknown log format")
)

func (c *Config) Validate() error {
	if c.Server.Workers == 0 {
		return ErrNoWorkers
	}

	if c.Gzip != nil && (c.Gzip.Level < 1 || 9 < c.Gzip.Level) {
		return errors.Wrapf(ErrGzipLevel, "level: %d", c.Gzip.Level)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrUnknownLevel, "level: %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.Wrapf(ErrUnknownFormat, "format: %q", c.Log.Format)
	}

	return nil
}

// ResolveRoot returns the absolute root with every symbolic link evaluated.
func (c *Config) ResolveRoot() (string, error) {
	abs, err := filepath.Abs(c.Server.Root)
	if err != nil {
		return "", errors.Wrap(err, "making root absolute")
	}

	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrap(err, "evaluating root")
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", errors.Wrap(err, "stat root")
	}
	if !info.IsDir() {
		return "", errors.Wrapf(ErrRootNotDir, "root: %q", root)
	}

	return root, nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.FormatUint(uint64(c.Server.Port), 10))
}

// Options converts the file sections into the handler options.
// root should come from [Config.ResolveRoot].
func (c *Config) Options(root string) static.Options {
	opts := static.Options{
		Root:   root,
		Browse: c.Server.Browse,
	}

	if c.Gzip != nil {
		opts.Gzip = &static.GzipPolicy{
			Level:          c.Gzip.Level,
			Threshold:      c.Gzip.Threshold,
			AlsoExtensions: c.Gzip.AlsoExtensions,
		}
	}
	if c.Cache != nil {
		opts.Cache = &static.CachePolicy{MaxAge: c.Cache.MaxAge}
	}
	if c.Cors != nil {
		opts.Cors = &static.CorsPolicy{Origins: c.Cors.Origins}
	}

	return opts
}

// ServerOptions applies the timeouts on top of [server.DefaultOptions].
func (c *Config) ServerOptions() server.Options {
	opts := server.DefaultOptions
	opts.Serve.Timeout = server.TimeoutOptions{
		IdleTimeout:  c.Server.Timeout.Idle,
		ReadTimeout:  c.Server.Timeout.Read,
		WriteTimeout: c.Server.Timeout.Write,
	}
	return opts
}
