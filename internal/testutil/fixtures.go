package testutil

import (
	"embed"
	"path"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/config"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadConfigFixture decodes a config fixture over the defaults. The format
// follows the file extension.
func LoadConfigFixture(name string) (*config.Config, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	format := config.FormatTOML
	if ext := strings.ToLower(path.Ext(name)); ext == ".yaml" || ext == ".yml" {
		format = config.FormatYAML
	}
	cfg := config.Default()
	if err := cfg.Decode(data, format); err != nil {
		return nil, err
	}
	return cfg, nil
}
