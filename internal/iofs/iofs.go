// Package iofs prepares the application's directories and default
// configuration files on first run.
package iofs

import (
	_ "embed"
	"os"

	"github.com/Aariz1001/carpulse-data/pkg/config"
)

//go:embed config.yaml
var ConfigYAML string

//go:embed catalog.yaml
var CatalogYAML string

func EnsureDirs(homeDir string) error {
	dirs := []string{
		config.ConfigDir(homeDir),
		config.CacheDir(homeDir),
		config.LogDir(homeDir),
	}
	for _, v := range dirs {
		if err := touchDir(v); err != nil {
			return err
		}
	}
	return nil
}

func touchDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return CreateDirError(dir, err)
	}

	return nil
}

// EnsureConfigFile writes the embedded default configuration to the
// config directory unless the user already has one.
func EnsureConfigFile(homeDir string) error {
	configPath := config.ConfigFilePath(homeDir)

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	if err := os.WriteFile(configPath, []byte(ConfigYAML), 0644); err != nil {
		return CopyFileError(configPath, err)
	}

	return nil
}

// EnsureCatalogFile writes the embedded vehicle catalog to the
// config directory unless the user already has one.
func EnsureCatalogFile(homeDir string) error {
	catalogPath := config.CatalogFilePath(homeDir)

	if _, err := os.Stat(catalogPath); err == nil {
		return nil
	}

	if err := os.WriteFile(catalogPath, []byte(CatalogYAML), 0644); err != nil {
		return CopyFileError(catalogPath, err)
	}

	return nil
}

// ReadCatalog returns the catalog bytes, preferring the user's copy
// and falling back to the embedded default.
func ReadCatalog(homeDir string) ([]byte, error) {
	catalogPath := config.CatalogFilePath(homeDir)
	data, err := os.ReadFile(catalogPath)
	if err == nil {
		return data, nil
	}
	if os.IsNotExist(err) {
		return []byte(CatalogYAML), nil
	}
	return nil, ReadFileError(catalogPath, err)
}
