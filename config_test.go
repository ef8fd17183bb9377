package filters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
visibility:
  assignee: hidden
  status: display_only
rules:
  engine: cel
  args:
    max: 2
activity:
  channel: queries
log:
  level: debug
  format: json
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "cel", cfg.Rules.Engine)
	assert.True(t, cfg.Rules.Cache, "cache keeps its default")
	assert.Equal(t, 2, cfg.Rules.Args["max"])
	assert.True(t, cfg.Activity.Enabled)
	assert.Equal(t, "queries", cfg.Activity.Channel)
	assert.Equal(t, "debug", cfg.Log.Level)

	cls, err := cfg.Classifier()
	require.NoError(t, err)
	assert.Equal(t, VisibilityHidden, cls.Classify("assignee"))
	assert.Equal(t, VisibilityDisplayOnly, cls.Classify("status"))
	assert.Equal(t, VisibilitySystem, cls.Classify("id"), "overrides layer on the default table")
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown engine":     "rules:\n  engine: lua\n",
		"unknown visibility": "visibility:\n  status: secret\n",
		"empty filter id":    "visibility:\n  \"\": hidden\n",
		"malformed yaml":     "rules: [engine\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseConfigJSEngine(t *testing.T) {
	_, err := ParseConfig([]byte("rules:\n  engine: js\n"))
	if jsEvaluatorAvailable() {
		assert.NoError(t, err)
		return
	}
	assert.ErrorIs(t, err, ErrNoEvaluator)
}

func TestConfigOptionsConfigureService(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	opts, err := cfg.Options()
	require.NoError(t, err)

	schemas := testSchemas()
	schemas[6].Rule = `size(values) <= args.max`
	svc := New(NewCatalogue(schemas), opts...)
	t.Cleanup(svc.Close)

	assert.NotContains(t, refIDs(svc.RemainingVisibleFilters()), "assignee")

	svc.Replace([]*FilterInstance{testInstance("type", "=", "1", "2")})
	assert.True(t, svc.IsComplete(), "cel rule should accept two values")

	svc.Replace([]*FilterInstance{testInstance("type", "=", "1", "2", "3")})
	assert.False(t, svc.IsComplete())
}

func TestConfigOptionsRejectInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.Engine = "lua"
	_, err := cfg.Options()
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cel", cfg.Rules.Engine)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigLogger(t *testing.T) {
	logger, closer, err := DefaultConfig().Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.Nil(t, closer)

	cfg := DefaultConfig()
	cfg.Log = LogFileConfig{
		Path:   filepath.Join(t.TempDir(), "filters.log"),
		Level:  "debug",
		Format: "json",
	}
	logger, closer, err = cfg.Logger()
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Log(LogEvent{Op: OpAdd, Filter: testFilterPrefix + "status", Count: 1})
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Log.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"op":"add"`)
	assert.Contains(t, string(data), `"filter":"`+testFilterPrefix+`status"`)
}
