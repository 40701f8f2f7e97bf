package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	stamp "github.com/goliatone/go-stamp"
	"github.com/goliatone/go-stamp/layering"
)

const sampleYAML = `
store:
  driver: sqlite
  path: /var/lib/spendsentinel/state.db
logging:
  level: debug
check:
  current_version: 2.1.0
  clear_all_on_major_update: true
  clear_specific_keys: [flowReturnContext]
  channel: web
rules:
  - threshold: 2.1.0
    action: remove
    keys: [dailyCheckInProgress]
    description: check-in flow rewritten
  - threshold: 2.1.0
    action: transform
    engine: cel
    expr: '{"items": value}'
    keys: [visionBoardItems]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stamp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, report, err := Load(LoadOptions{})
	require.NoError(t, err)

	require.Equal(t, DriverFile, cfg.Driver())
	require.Equal(t, "stamp-state.json", cfg.StorePath())
	require.Equal(t, "info", cfg.LogLevel())
	require.Equal(t, "console", cfg.LogFormat())
	require.Equal(t, []layering.Source{layering.SourceDefaults}, report.Sources[len(report.Sources)-1:])

	sc := cfg.StampConfig().WithDefaults()
	require.False(t, *sc.ClearAllOnMajorUpdate)
	require.True(t, *sc.MigrateData)
	require.True(t, *sc.ShowUserNotification)

	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)
	require.Equal(t, stamp.DefaultRegistry().FeatureKeys(), registry.FeatureKeys())
}

func TestLoadFile(t *testing.T) {
	cfg, report, err := Load(LoadOptions{Path: writeConfig(t, sampleYAML)})
	require.NoError(t, err)

	require.Equal(t, DriverSQLite, cfg.Driver())
	require.Equal(t, "/var/lib/spendsentinel/state.db", cfg.StorePath())
	require.Equal(t, "debug", cfg.LogLevel())
	require.Equal(t, "console", cfg.LogFormat(), "unset fields fall through to defaults")
	require.Equal(t, "web", cfg.Channel())
	require.Equal(t, layering.SourceFile, report.Provenance["Rules"])

	sc := cfg.StampConfig()
	require.Equal(t, "2.1.0", sc.CurrentVersion)
	require.True(t, *sc.ClearAllOnMajorUpdate)
	require.True(t, *sc.MigrateData)
	require.Equal(t, []string{"flowReturnContext"}, sc.ClearSpecificKeys)

	rules, err := cfg.BuildRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, stamp.ActionRemove, rules[0].Action)
	require.Equal(t, "check-in flow rewritten", rules[0].Description)
	require.NotNil(t, rules[1].Transform)

	_, err = stamp.NewEngine(rules...)
	require.NoError(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: file
  path: from-file.json
check:
  current_version: 1.0.0
  migrate_data: true
  show_user_notification: true
`)
	env := map[string]string{
		"STAMP_STORE_PATH":      "from-env.json",
		"STAMP_CURRENT_VERSION": "2.0.0",
		"STAMP_NOTIFY":          "false",
		"STAMP_CLEAR_KEYS":      "expenses, flowReturnContext ,",
	}
	flags := Config{Check: CheckConfig{CurrentVersion: ptr("3.0.0")}}

	cfg, report, err := Load(LoadOptions{Path: path, Env: env, Flags: flags})
	require.NoError(t, err)

	require.Equal(t, []layering.Source{layering.SourceFlags, layering.SourceEnv, layering.SourceFile, layering.SourceDefaults}, report.Sources)
	require.Equal(t, "from-env.json", cfg.StorePath())
	require.Equal(t, DriverFile, cfg.Driver())

	sc := cfg.StampConfig()
	require.Equal(t, "3.0.0", sc.CurrentVersion)
	require.False(t, *sc.ShowUserNotification)
	require.True(t, *sc.MigrateData)
	require.Equal(t, []string{"expenses", "flowReturnContext"}, sc.ClearSpecificKeys)
}

func TestLoadErrors(t *testing.T) {
	_, _, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = Load(LoadOptions{Path: writeConfig(t, "store:\n  drvier: file\n")})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, _, err = Load(LoadOptions{Env: map[string]string{"STAMP_MIGRATE": "maybe"}})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, _, err = Load(LoadOptions{Env: map[string]string{"STAMP_STORE_DRIVER": "redis"}})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, _, err = Load(LoadOptions{Path: writeConfig(t, "rules:\n  - threshold: 2.0.0\n    action: transform\n    keys: [expenses]\n")})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildRulesRejectsUnknownEngine(t *testing.T) {
	cfg := Config{Rules: []RuleConfig{{Threshold: "2.0.0", Action: "transform", Engine: "lua", Expr: "value", Keys: []string{"expenses"}}}}
	_, err := cfg.BuildRules()
	require.ErrorIs(t, err, stamp.ErrEngineUnavailable)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Nil(t, cfg.Store.Driver)
}
