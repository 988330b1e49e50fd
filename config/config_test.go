package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hunk/application/static"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hunk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  root: ./public
  port: 8080
  workers: 4
  browse: true
  timeout:
    idle: 10s
    write: 1m
gzip:
  level: 9
  also_extensions: [wasm, .SVG]
cache:
  max_age: 3600
cors:
  origins: [https://example.com]
log:
  requests: false
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "./public", cfg.Server.Root)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "default is kept")
	assert.Equal(t, uint16(8080), cfg.Server.Port)
	assert.Equal(t, uint(4), cfg.Server.Workers)
	assert.True(t, cfg.Server.Browse)
	assert.Equal(t, TimeoutConfig{Idle: 10 * time.Second, Read: 30 * time.Second, Write: time.Minute}, cfg.Server.Timeout)

	require.NotNil(t, cfg.Gzip)
	assert.Equal(t, GzipConfig{Level: 9, Threshold: 1024, AlsoExtensions: []string{"wasm", ".SVG"}}, *cfg.Gzip)
	assert.Equal(t, &CacheConfig{MaxAge: 3600}, cfg.Cache)
	assert.Equal(t, &CorsConfig{Origins: []string{"https://example.com"}}, cfg.Cors)
	assert.Equal(t, LogConfig{Requests: false, Format: "json", Level: "info"}, cfg.Log)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
}

func TestLoadDefaults(t *testing.T) {
	testcases := []struct {
		desc    string
		content string
		check   func(t *testing.T, cfg Config)
	}{
		{
			desc:    "empty file",
			content: "",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			desc:    "empty gzip section",
			content: "gzip: {}\n",
			check: func(t *testing.T, cfg Config) {
				require.NotNil(t, cfg.Gzip)
				assert.Equal(t, GzipConfig{Level: 6, Threshold: 1024}, *cfg.Gzip)
			},
		},
		{
			desc:    "empty cors section",
			content: "cors: {}\n",
			check: func(t *testing.T, cfg Config) {
				require.NotNil(t, cfg.Cors)
				assert.Empty(t, cfg.Cors.Origins)
				assert.Nil(t, cfg.Gzip)
				assert.Nil(t, cfg.Cache)
			},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tc.content))
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	testcases := []struct {
		desc    string
		content string
	}{
		{desc: "unknown field", content: "server:\n  rot: .\n"},
		{desc: "invalid duration", content: "server:\n  timeout:\n    idle: soon\n"},
		{desc: "port out of range", content: "server:\n  port: 70000\n"},
		{desc: "not yaml", content: "server: [\n"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := Discover("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(DefaultFile, []byte("server:\n  port: 1234\n"), 0o644))
	cfg, path, err = Discover("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, path)
	assert.Equal(t, uint16(1234), cfg.Server.Port)

	_, _, err = Discover("explicit.yaml")
	assert.Error(t, err, "an explicit file should exist")
}

func TestValidate(t *testing.T) {
	testcases := []struct {
		desc   string
		modify func(cfg *Config)
		err    error
	}{
		{desc: "default", modify: func(cfg *Config) {}, err: nil},
		{desc: "no workers", modify: func(cfg *Config) { cfg.Server.Workers = 0 }, err: ErrNoWorkers},
		{desc: "gzip level", modify: func(cfg *Config) { cfg.Gzip = &GzipConfig{Level: 0} }, err: ErrGzipLevel},
		{desc: "log level", modify: func(cfg *Config) { cfg.Log.Level = "loud" }, err: ErrUnknownLevel},
		{desc: "log format", modify: func(cfg *Config) { cfg.Log.Format = "xml" }, err: ErrUnknownFormat},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)

			err := cfg.Validate()
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestResolveRoot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "link")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), nil, 0o644))

	expected, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)

	cfg := Default()
	cfg.Server.Root = filepath.Join(dir, "link")
	root, err := cfg.ResolveRoot()
	require.NoError(t, err)
	assert.Equal(t, expected, root)

	cfg.Server.Root = filepath.Join(dir, "file")
	_, err = cfg.ResolveRoot()
	assert.ErrorIs(t, err, ErrRootNotDir)

	cfg.Server.Root = filepath.Join(dir, "missing")
	_, err = cfg.ResolveRoot()
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg := Default()
	assert.Equal(t, static.Options{Root: "/srv"}, cfg.Options("/srv"))

	cfg.Server.Browse = true
	cfg.Gzip = &GzipConfig{Level: 5, Threshold: 10, AlsoExtensions: []string{"wasm"}}
	cfg.Cache = &CacheConfig{MaxAge: 60}
	cfg.Cors = &CorsConfig{}

	assert.Equal(t, static.Options{
		Root:   "/srv",
		Browse: true,
		Gzip:   &static.GzipPolicy{Level: 5, Threshold: 10, AlsoExtensions: []string{"wasm"}},
		Cache:  &static.CachePolicy{MaxAge: 60},
		Cors:   &static.CorsPolicy{},
	}, cfg.Options("/srv"))

	cfg.Server.Timeout = TimeoutConfig{Idle: time.Second, Read: 2 * time.Second, Write: 3 * time.Second}
	serve := cfg.ServerOptions().Serve
	assert.Equal(t, time.Second, serve.Timeout.IdleTimeout)
	assert.Equal(t, 2*time.Second, serve.Timeout.ReadTimeout)
	assert.Equal(t, 3*time.Second, serve.Timeout.WriteTimeout)
	assert.Equal(t, []string{"Host"}, serve.Parse.RequiredFields)
}
