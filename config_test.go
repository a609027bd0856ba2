package asyncfsm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobYAML = `
name: job
states: [idle, work, done]
initial: work
mode: active
block_on_failure: true
`

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig([]byte(jobYAML))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Name:           "job",
		States:         []string{"idle", "work", "done"},
		Initial:        "work",
		Mode:           "active",
		BlockOnFailure: true,
	}, cfg)

	m, err := New(cfg, WithLogger(quiet))
	require.NoError(t, err)
	assert.IsType(t, &ActiveMachine{}, m)
	assert.Equal(t, "job", m.Name())
	assert.Equal(t, stateWork, m.CurrentState())
}

func TestParseConfigRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := ParseConfig([]byte("states: [a]\nmode: passive\nactiveMode: true\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigWithoutModeFailsToBuild(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig([]byte("states: [a, b]\n"))
	require.NoError(t, err)

	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrModeRequired)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(jobYAML), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "job", cfg.Name)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ENVFSM_STATES", "red,green,yellow")
	t.Setenv("ENVFSM_INITIAL", "green")
	t.Setenv("ENVFSM_MODE", "passive")

	cfg, err := ConfigFromEnv("ENVFSM_")
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "green", "yellow"}, cfg.States)
	assert.Equal(t, "green", cfg.Initial)
	assert.False(t, cfg.BlockOnFailure)

	m, err := New(cfg, WithLogger(quiet))
	require.NoError(t, err)
	assert.IsType(t, &Machine{}, m)
	assert.Equal(t, StateID("green"), m.CurrentState())
}

func TestConfigFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOTFSM_STATES=on,off\nDOTFSM_MODE=active\n"), 0o644))
	// godotenv writes straight to the process environment
	t.Cleanup(func() {
		os.Unsetenv("DOTFSM_STATES")
		os.Unsetenv("DOTFSM_MODE")
	})
	// Variables already set take precedence over the file
	t.Setenv("DOTFSM_MODE", "passive")

	cfg, err := ConfigFromEnv("DOTFSM_", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"on", "off"}, cfg.States)
	assert.Equal(t, "passive", cfg.Mode)

	_, err = ConfigFromEnv("DOTFSM_", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("BADFSM_BLOCK_ON_FAILURE", "not-a-bool")

	_, err := ConfigFromEnv("BADFSM_")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
