package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  http_port: 9090\n"))
	assert.NilError(t, err)

	assert.Equal(t, cfg.Server.HTTPPort, 9090)
	assert.Equal(t, cfg.Server.ShutdownTimeout, 30*time.Second)
	assert.Equal(t, cfg.SPI.Bus, 0)
	assert.Equal(t, cfg.SPI.Device, 1)
	assert.Equal(t, cfg.Analog.ConfigPath, "configs/analog.json")
	assert.Equal(t, cfg.Analog.Fixture, false)
	assert.Equal(t, cfg.Analog.PollInterval, time.Duration(0))
	assert.Equal(t, cfg.Auth.AccessTokenTTL, time.Hour)
}

func TestLoadUsersAndTokens(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
analog:
  fixture: true
  poll_interval: 250ms
auth:
  users:
    - username: tech
      password_hash: "$argon2id$v=19$m=65536,t=1,p=1$c2FsdA$aGFzaA"
      role: technician
  machine_tokens:
    - name: plc
      token_hash: abc123
      role: operator
`))
	assert.NilError(t, err)

	assert.Assert(t, cfg.Analog.Fixture)
	assert.Equal(t, cfg.Analog.PollInterval, 250*time.Millisecond)
	assert.Equal(t, len(cfg.Auth.Users), 1)
	assert.Equal(t, cfg.Auth.Users[0].Role, "technician")
	assert.Equal(t, cfg.Auth.MachineTokens[0].TokenHash, "abc123")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OMC_ANALOG_FIXTURE", "true")
	t.Setenv("OMC_SPI_DEVICE", "0")

	cfg, err := Load(writeConfig(t, "server:\n  http_port: 8080\n"))
	assert.NilError(t, err)
	assert.Assert(t, cfg.Analog.Fixture)
	assert.Equal(t, cfg.SPI.Device, 0)
}

func TestLoadInvalidDevice(t *testing.T) {
	_, err := Load(writeConfig(t, "spi:\n  device: -1\n"))
	assert.ErrorContains(t, err, "spi.device")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestJWTSecret(t *testing.T) {
	a := AuthConfig{JWTSecretEnv: "AIO_TEST_SECRET"}
	assert.Assert(t, !a.IsProductionReady())

	t.Setenv("AIO_TEST_SECRET", "0123456789abcdef0123456789abcdef")
	assert.Equal(t, a.GetJWTSecret(), "0123456789abcdef0123456789abcdef")
	assert.Assert(t, a.IsProductionReady())
}
