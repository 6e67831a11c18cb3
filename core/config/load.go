package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	out, err := LoadFs(afero.NewBasePathFs(afero.NewOsFs(), path))
	if err != nil {
		return nil, err
	}
	out.configurationDir = path
	return out, nil
}

// LoadFs loads the configuration from the root of the given filesystem.
func LoadFs(configFs afero.Fs) (*Configuration, error) {
	configContents, err := afero.ReadFile(configFs, ConfigurationName)
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigurationName, err)
	}
	out.configFs = configFs
	return &out, nil
}

// Initialize writes the default configuration to dir, keeping any files that
// already exist.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	configFs := afero.NewBasePathFs(osFs, dir)

	defaults := defaultConfig()
	files := []struct {
		name     string
		contents []byte
	}{
		{ConfigurationName, defaultConfigData},
		{defaults.InitFile, []byte("# Commands in this file run before each interactive session.\n")},
	}

	for _, file := range files {
		_, err := configFs.Stat(file.name)
		switch {
		case err == nil:
			logger.Printf("- %s exists, skipping\n", file.name)
			continue
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}

		logger.Printf("- Writing %s\n", file.name)
		if err := afero.WriteFile(configFs, file.name, file.contents, 0600); err != nil {
			return nil, err
		}
	}

	return Load(dir)
}
