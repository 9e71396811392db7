package repository_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	client "github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/client/repository"
)

func TestConfigMissingFileUsesDefaults(t *testing.T) {
	r := &repository.TOMLConfigRepository{FilePath: filepath.Join(t.TempDir(), "missing.toml")}
	cfg, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, client.DefaultConfig(), cfg)
}

func TestConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bililogin.toml")
	t.Setenv("BILILOGIN_TEST_URL", "http://127.0.0.1:9000")
	content := `
[passport]
base_url = "${BILILOGIN_TEST_URL}"
timeout  = "3s"
keep     = false

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := &repository.TOMLConfigRepository{FilePath: path}
	cfg, err := r.Get()
	require.NoError(t, err)

	def := client.DefaultConfig()
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Passport.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Passport.Timeout)
	assert.False(t, cfg.Passport.Keep)
	assert.Equal(t, def.Passport.UserAgent, cfg.Passport.UserAgent)
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bililogin.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o644))

	r := &repository.TOMLConfigRepository{FilePath: path}
	cfg, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"error\"\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	cfg, err = r.Get()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestConfigBrokenEditKeepsFailing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bililogin.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o644))

	r := &repository.TOMLConfigRepository{FilePath: path}
	cfg, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	_, err = r.Get()
	require.Error(t, err)
	_, err = r.Get()
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644))
	fixed := later.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, fixed, fixed))

	cfg, err = r.Get()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigValidation(t *testing.T) {
	for _, content := range []string{
		"[passport]\nbase_url = \"not a url\"\n",
		"[server]\nrpc_address = \"nohostport\"\n",
		"[journal]\nmax_entries = 0\n",
		"[log]\nlevel = \"loud\"\n",
		"[passport]\ntimeout = \"soon\"\n",
	} {
		path := filepath.Join(t.TempDir(), "bililogin.toml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		r := &repository.TOMLConfigRepository{FilePath: path}
		_, err := r.Get()
		assert.Error(t, err, content)
	}
}

func TestConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bililogin.toml")
	r := &repository.TOMLConfigRepository{FilePath: path}

	cfg := client.DefaultConfig()
	cfg.Passport.Timeout = 42 * time.Second
	cfg.Journal.MaxEntries = 7
	require.NoError(t, r.Save(cfg))

	other := &repository.TOMLConfigRepository{FilePath: path}
	got, err := other.Get()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
