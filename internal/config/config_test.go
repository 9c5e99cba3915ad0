package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigReadsValues(t *testing.T) {
	path := writeConfig(t, `
app:
  name: stress-admin
  env: prod

server:
  host: 127.0.0.1
  port: 9090

database:
  driver: postgres
  host: db.internal
  port: 5432
  username: stress
  database: stress_admin

storage:
  base_dir: /var/lib/stress-admin

engine:
  path: /opt/jmeter/bin/jmeter.sh
  alternate_paths:
    - /usr/local/jmeter/bin/jmeter.sh
  remote_enabled: true
  remote_host: 10.0.0.5
  run_timeout_minutes: 90
  graceful_wait_seconds: 10
  force_wait_seconds: 3
  process_pattern: jmeter
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "/var/lib/stress-admin", cfg.Storage.BaseDir)
	assert.Equal(t, "/opt/jmeter/bin/jmeter.sh", cfg.Engine.Path)
	assert.Equal(t, []string{"/usr/local/jmeter/bin/jmeter.sh"}, cfg.Engine.AlternatePaths)
	assert.True(t, cfg.Engine.RemoteEnabled)
	assert.Equal(t, "10.0.0.5", cfg.Engine.RemoteHost)
	assert.Equal(t, 90, cfg.Engine.RunTimeoutMinutes)
	assert.Equal(t, 10, cfg.Engine.GracefulWaitSeconds)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "stress-admin", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Storage.BaseDir)
	assert.Equal(t, 30, cfg.Engine.RunTimeoutMinutes)
	assert.Equal(t, 5, cfg.Engine.GracefulWaitSeconds)
	assert.Equal(t, 2, cfg.Engine.ForceWaitSeconds)
	assert.Equal(t, "jmeter", cfg.Engine.ProcessPattern)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
