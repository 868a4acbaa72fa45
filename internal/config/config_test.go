package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, Version, cfg.Version)
	assert.NotEmpty(t, cfg.Captures.DropDir)
	assert.True(t, cfg.Captures.ValidateSchema)
	assert.NotEmpty(t, cfg.Storage.Path)
	assert.Equal(t, 64, cfg.Derive.SegmentWidth)
	assert.Equal(t, "encPwd", cfg.Derive.SegmentField)
	assert.Contains(t, cfg.Diff.ExpectedDivergent, "encPwd")
	assert.Equal(t, 1, cfg.Derive.Workers)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Run("missing_drop_dir", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Captures.DropDir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative_debounce", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Captures.DebounceMs = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad_segment_width", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Derive.SegmentWidth = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing_segment_field", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Derive.SegmentField = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad_workers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Derive.Workers = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad_log_level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("collects_all_errors", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Captures.DropDir = ""
		cfg.Storage.Path = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "drop_dir")
		assert.Contains(t, err.Error(), "storage.path")
	})
}

func TestSaveAndLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "padscope.toml")

	cfg := DefaultConfig()
	cfg.Derive.SegmentWidth = 128
	cfg.Derive.SessionKeys = []string{"keypadUuid"}
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, loaded.Derive.SegmentWidth)
	assert.Equal(t, []string{"keypadUuid"}, loaded.Derive.SessionKeys)
	assert.Equal(t, cfg.Captures.DropDir, loaded.Captures.DropDir)
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "cfg.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"derive": {"segment_width": 40}}`), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 40, cfg.Derive.SegmentWidth)
		// Unset sections keep defaults.
		assert.Equal(t, "encPwd", cfg.Derive.SegmentField)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "cfg.yaml")
		require.NoError(t, os.WriteFile(path, []byte("derive:\n  segment_width: 32\n"), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 32, cfg.Derive.SegmentWidth)
	})

	t.Run("autodetect_toml", func(t *testing.T) {
		path := filepath.Join(dir, "cfg.conf")
		require.NoError(t, os.WriteFile(path, []byte("[derive]\nsegment_width = 96\n"), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 96, cfg.Derive.SegmentWidth)
	})

	t.Run("missing_file_yields_defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Derive.SegmentWidth, cfg.Derive.SegmentWidth)
	})
}

func TestLoadOrCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "padscope.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, cfg)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, created, err = LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PADSCOPE_DROP_DIR", "/tmp/padscope-drops")
	t.Setenv("PADSCOPE_SEGMENT_WIDTH", "128")
	t.Setenv("PADSCOPE_WORKERS", "8")
	t.Setenv("PADSCOPE_LOG_LEVEL", "DEBUG")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "/tmp/padscope-drops", cfg.Captures.DropDir)
	assert.Equal(t, 128, cfg.Derive.SegmentWidth)
	assert.Equal(t, 8, cfg.Derive.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvOverridesIgnoresInvalid(t *testing.T) {
	t.Setenv("PADSCOPE_SEGMENT_WIDTH", "not-a-number")
	t.Setenv("PADSCOPE_WORKERS", "0")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, 64, cfg.Derive.SegmentWidth)
	assert.Equal(t, 1, cfg.Derive.Workers)
}
