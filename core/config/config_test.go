package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate  func(c *Configuration)
		wantErr string
	}{
		"default": {
			mutate: func(c *Configuration) {},
		},
		"bad color": {
			mutate:  func(c *Configuration) { c.Color = "sometimes" },
			wantErr: "color",
		},
		"empty prompt": {
			mutate:  func(c *Configuration) { c.Prompt = "" },
			wantErr: "prompt",
		},
		"port out of range": {
			mutate:  func(c *Configuration) { c.SSH.Port = 70000 },
			wantErr: "port",
		},
		"negative history": {
			mutate:  func(c *Configuration) { c.History.Limit = -1 },
			wantErr: "limit",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoadFs(t *testing.T) {
	t.Run("unknown field", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(memFs, ConfigurationName, []byte("bogus: true\n"), 0600))

		_, err := LoadFs(memFs)
		assert.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(memFs, ConfigurationName, []byte("prompt: '$ '\ncolor: purple\n"), 0600))

		_, err := LoadFs(memFs)
		assert.Error(t, err)
	})

	t.Run("init file", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(memFs, ConfigurationName, defaultConfigData, 0600))
		assert.NoError(t, afero.WriteFile(memFs, "initrc", []byte("let x = 1\n"), 0600))

		cfg, err := LoadFs(memFs)
		assert.NoError(t, err)

		contents, err := cfg.ReadInitFile()
		assert.NoError(t, err)
		assert.Equal(t, "let x = 1\n", string(contents))

		// In-memory configs don't persist history.
		assert.Equal(t, "", cfg.HistoryPath())
	})

	t.Run("history", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(memFs, ConfigurationName, defaultConfigData, 0600))

		cfg, err := LoadFs(memFs)
		assert.NoError(t, err)

		lines, err := cfg.ReadHistory()
		assert.NoError(t, err)
		assert.Empty(t, lines)

		assert.NoError(t, afero.WriteFile(memFs, "history", []byte("echo a\n\nif true\n"), 0600))
		lines, err = cfg.ReadHistory()
		assert.NoError(t, err)
		assert.Equal(t, []string{"echo a", "if true"}, lines)

		cfg.History.Enabled = false
		lines, err = cfg.ReadHistory()
		assert.NoError(t, err)
		assert.Empty(t, lines)
	})
}

func TestShouldColor(t *testing.T) {
	cfg := defaultConfig()

	cfg.Color = ColorAuto
	assert.True(t, cfg.ShouldColor(true))
	assert.False(t, cfg.ShouldColor(false))

	cfg.Color = ColorAlways
	assert.True(t, cfg.ShouldColor(false))

	cfg.Color = ColorNever
	assert.False(t, cfg.ShouldColor(true))
}
