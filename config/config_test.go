// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), Options{})
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "duckdb", cfg.Store.Driver)
	assert.Equal(t, "waterpoint.db", cfg.Store.DSN)
	assert.Zero(t, cfg.API.Timeout, "no timeout unless configured")
	assert.InDelta(t, 0.7, cfg.Sheet.HeightRatio, 1e-9)
	assert.Equal(t, 300*time.Millisecond, cfg.Sheet.Transition)
	assert.Nil(t, cfg.Position.Lat)
	assert.Nil(t, cfg.Position.Lng)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := writeFile(t, "waterpoint.yaml", `
server:
  addr: ":8080"
store:
  driver: postgres
  dsn: postgres://localhost/waterpoint?sslmode=disable
api:
  baseurl: http://localhost:5000
  timeout: 5s
sheet:
  heightratio: 0.5
`)

	t.Setenv("WATERPOINT_SERVER_ADDR", ":9090")
	t.Setenv("WATERPOINT_POSITION_LAT", "1.3521")
	t.Setenv("WATERPOINT_POSITION_LNG", "103.8198")

	cfg, err := Load(New(), Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr, "environment overrides the file")
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.InDelta(t, 0.5, cfg.Sheet.HeightRatio, 1e-9)
	require.NotNil(t, cfg.Position.Lat)
	require.NotNil(t, cfg.Position.Lng)
	assert.InDelta(t, 1.3521, *cfg.Position.Lat, 1e-9)
	assert.InDelta(t, 103.8198, *cfg.Position.Lng, 1e-9)
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("WATERPOINT_LOG_LEVEL", "warn")

	path := writeFile(t, ".env", "WATERPOINT_API_BASEURL=http://from-dotenv:5000\nWATERPOINT_LOG_LEVEL=debug\n")
	t.Cleanup(func() { os.Unsetenv("WATERPOINT_API_BASEURL") })

	cfg, err := Load(New(), Options{ConfigFile: writeFile(t, "c.yaml", "{}"), EnvFile: path})
	require.NoError(t, err)

	assert.Equal(t, "http://from-dotenv:5000", cfg.API.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level, "variables already set win over the env file")
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	_, err := Load(New(), Options{ConfigFile: writeFile(t, "c.yaml", "{}"), EnvFile: filepath.Join(t.TempDir(), ".env")})
	assert.NoError(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	lat := 1.0

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, wantErr: "store.driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver, c.Store.DSN = "postgres", "" }, wantErr: "store.dsn"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "bad ratio", mutate: func(c *Config) { c.Sheet.HeightRatio = 1.5 }, wantErr: "sheet.heightratio"},
		{name: "negative transition", mutate: func(c *Config) { c.Sheet.Transition = -time.Second }, wantErr: "sheet.transition"},
		{name: "negative timeout", mutate: func(c *Config) { c.API.Timeout = -time.Second }, wantErr: "api.timeout"},
		{name: "half a position", mutate: func(c *Config) { c.Position.Lat = &lat }, wantErr: "position.lat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Log:   LogConfig{Level: "info"},
				Store: StoreConfig{Driver: "duckdb"},
				Sheet: SheetConfig{HeightRatio: 0.7},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Log: LogConfig{Level: "warn", Format: "json"}}
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "v", entry["k"])

	buf.Reset()
	(&Config{Log: LogConfig{Level: "debug"}}).NewLogger(&buf).Debug("text line")
	assert.Contains(t, buf.String(), "msg=\"text line\"")
}
