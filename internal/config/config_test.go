package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CINEFLOW_API_BASE", "")
	t.Setenv(EnvAuthToken, "")
	t.Setenv("CINEFLOW_CREDENTIALS", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	require.Equal(t, DefaultAPIBase, cfg.APIBase)
	require.Equal(t, 200, cfg.PageSize)
	require.Equal(t, 3*time.Second, cfg.TaskPollInterval)
	require.Equal(t, 5*time.Second, cfg.RunPollInterval)
	require.Equal(t, "", cfg.TokenSource()())
}

func TestValidateRejectsSchemelessBase(t *testing.T) {
	t.Setenv("CINEFLOW_API_BASE", "localhost:8088/api/v1")
	require.Error(t, Load().Validate())

	t.Setenv("CINEFLOW_API_BASE", "http://localhost:8088/api/v1")
	require.NoError(t, Load().Validate())
}

func TestEnvTokenOverridesCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, SaveCredentials(path, Credentials{Token: "from-file"}))
	t.Setenv("CINEFLOW_CREDENTIALS", path)

	t.Setenv(EnvAuthToken, "from-env")
	require.Equal(t, "from-env", Load().TokenSource()())

	t.Setenv(EnvAuthToken, "")
	require.Equal(t, "from-file", Load().TokenSource()())
}

func TestCredentialsRoundTripAndAPIBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, SaveCredentials(path, Credentials{APIBase: "http://mock:8088/api/v1", Token: "abc", ExpiresAt: expires}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, "abc", creds.Token)
	require.True(t, creds.ExpiresAt.Equal(expires))

	t.Setenv("CINEFLOW_API_BASE", "")
	t.Setenv("CINEFLOW_CREDENTIALS", path)
	require.Equal(t, "http://mock:8088/api/v1", Load().APIBase)

	require.NoError(t, ClearCredentials(path))
	require.NoError(t, ClearCredentials(path))
}

func TestExpiredCredentialsYieldNoToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, SaveCredentials(path, Credentials{Token: "old", ExpiresAt: time.Now().Add(-time.Hour)}))
	cfg := Config{CredentialsPath: path}
	require.Equal(t, "", cfg.TokenSource()())
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("CINEFLOW_TEST_A=from-dotenv\nCINEFLOW_TEST_B=from-dotenv\n"), 0o600))
	t.Setenv("CINEFLOW_TEST_A", "preset")
	t.Setenv("CINEFLOW_TEST_B", "")
	os.Unsetenv("CINEFLOW_TEST_B")

	require.Equal(t, p, LoadDotEnv(filepath.Join(dir, "nope"), p))
	require.Equal(t, "preset", os.Getenv("CINEFLOW_TEST_A"))
	require.Equal(t, "from-dotenv", os.Getenv("CINEFLOW_TEST_B"))
	os.Unsetenv("CINEFLOW_TEST_B")
}

func TestServerDefaults(t *testing.T) {
	t.Setenv("CINEFLOW_FAILURE_RATE", "0.5")
	t.Setenv("CINEFLOW_SEED", "false")
	cfg := LoadServer()
	require.Equal(t, ":8088", cfg.Addr)
	require.Equal(t, 0.5, cfg.FailureRate)
	require.False(t, cfg.Seed)
}
