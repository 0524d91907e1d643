package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"checkin-app-go/internal/domain/program"
	"gopkg.in/yaml.v3"
)

type Catalog = program.Catalog

type programsFile struct {
	Version  int               `yaml:"version"`
	Programs []program.Program `yaml:"programs"`
}

// LoadCatalog reads the program catalog. An absolute path must exist; a relative
// one is searched upwards from the working directory and falls back to the
// built-in catalog when missing.
func LoadCatalog(path string) (Catalog, error) {
	resolved := path
	if !filepath.IsAbs(path) {
		found, err := findUp(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return program.DefaultCatalog(), nil
			}
			return Catalog{}, err
		}
		resolved = found
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Catalog{}, err
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (Catalog, error) {
	var file programsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse programs: %w", err)
	}
	if file.Version > 1 {
		return Catalog{}, fmt.Errorf("unsupported programs file version %d", file.Version)
	}
	if len(file.Programs) == 0 {
		return program.DefaultCatalog(), nil
	}
	return program.NewCatalog(file.Programs)
}
