package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	EventLogName      = "events.log"
)

// Color modes.
const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs
	// configurationDir is the on-disk location, empty for in-memory configs.
	configurationDir string

	Prompt    string `json:"prompt" validate:"required"`
	Color     string `json:"color" validate:"oneof=always auto never"`
	InitFile  string `json:"init_file"`
	LogEvents bool   `json:"log_events"`

	History History `json:"history"`

	SSH SSH `json:"ssh"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

type History struct {
	Enabled bool   `json:"enabled"`
	File    string `json:"file" validate:"required_if=Enabled true"`
	Limit   int    `json:"limit" validate:"gte=0"`
}

type SSH struct {
	Port                 int    `json:"port" validate:"gte=0,lte=65535"`
	Password             string `json:"password"`
	HostKeyPath          string `json:"host_key_path"`
	Banner               string `json:"banner"`
	OutputBytesPerSecond int64  `json:"output_bytes_per_second" validate:"gte=0"`
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewMemMapFs()
	}
	return c.configFs
}

// ShouldColor decides whether output to a terminal (or not) is colorized.
func (c *Configuration) ShouldColor(isTerminal bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return isTerminal
	}
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_RDONLY, 0600)
}

// ReadInitFile gets the contents of the init script. A missing or
// unconfigured script is empty.
func (c *Configuration) ReadInitFile() ([]byte, error) {
	if c.InitFile == "" {
		return nil, nil
	}
	contents, err := afero.ReadFile(c.fs(), c.InitFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return contents, err
}

// WriteInitFile replaces the init script.
func (c *Configuration) WriteInitFile(contents []byte) error {
	return afero.WriteFile(c.fs(), c.InitFile, contents, 0600)
}

// ReadHostKey gets the PEM encoded SSH host key.
func (c *Configuration) ReadHostKey() ([]byte, error) {
	return afero.ReadFile(c.fs(), c.SSH.HostKeyPath)
}

// HistoryPath gets the on-disk location of the history file, or the empty
// string if history shouldn't be persisted.
func (c *Configuration) HistoryPath() string {
	if !c.History.Enabled || c.configurationDir == "" {
		return ""
	}
	return filepath.Join(c.configurationDir, c.History.File)
}

// ReadHistory gets the lines saved in the history file. Disabled or missing
// history is empty.
func (c *Configuration) ReadHistory() ([]string, error) {
	if !c.History.Enabled {
		return nil, nil
	}
	contents, err := afero.ReadFile(c.fs(), c.History.File)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(contents), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Default gets the built-in configuration backed by an in-memory filesystem.
func Default() *Configuration {
	return defaultConfig()
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	out.configFs = afero.NewMemMapFs()
	return &out
}
