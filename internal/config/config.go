// Package config reads and writes the nyxpatcher.json project file.
// The file is consumed read-only by the check pipeline; writes happen
// only through Init and the atomic writer.
package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dig-pestroyer/NyxPatch/internal/fileutils"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"github.com/spf13/afero"
)

const DefaultConfigFile = "nyxpatcher.json"

type Config struct {
	ModDirectories    []string        `json:"modDirectories"`
	GameVersion       string          `json:"gameVersion"`
	Loader            models.Loader   `json:"loader"`
	DownloadDirectory string          `json:"downloadDirectory"`
	IgnoreMods        []string        `json:"ignoreMods"`
	DefaultProvider   models.Platform `json:"defaultProvider"`
	FallbackProvider  models.Platform `json:"fallbackProvider"`
	CurseforgeAPIKey  string          `json:"curseforgeApiKey,omitempty"`
	CacheTTLHours     int             `json:"cacheTtlHours,omitempty"`
}

func ReadConfig(fs afero.Fs, meta Metadata) (Config, error) {
	_, span := perf.StartSpan(context.Background(), "io.config.read")
	defer span.End()

	if !fileutils.FileExists(fs, meta.ConfigPath) {
		return Config{}, &ConfigFileNotFoundError{Path: meta.ConfigPath}
	}

	data, err := afero.ReadFile(fs, meta.ConfigPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, &ConfigFileInvalidError{Err: err}
	}

	applyDefaults(&config)

	if err := validate(config); err != nil {
		return Config{}, &ConfigFileInvalidError{Err: err}
	}

	return config, nil
}

func WriteConfig(fs afero.Fs, meta Metadata, config Config) error {
	_, span := perf.StartSpan(context.Background(), "io.config.write")
	defer span.End()

	data, _ := json.MarshalIndent(config, "", "  ")
	return fileutils.WriteFileAtomic(fs, meta.ConfigPath, data)
}

// InitConfig writes a fresh config with workable defaults. It fails if
// a config already exists so it never clobbers a curated file.
func InitConfig(fs afero.Fs, meta Metadata, gameVersion string) (Config, error) {
	_, span := perf.StartSpan(context.Background(), "io.config.init")
	defer span.End()

	if fileutils.FileExists(fs, meta.ConfigPath) {
		return Config{}, fmt.Errorf("configuration file already exists: %s", meta.ConfigPath)
	}

	config := Config{
		ModDirectories:    []string{"mods"},
		GameVersion:       gameVersion,
		Loader:            models.FABRIC,
		DownloadDirectory: "mods",
		IgnoreMods:        []string{},
		DefaultProvider:   models.MODRINTH,
		FallbackProvider:  models.CURSEFORGE,
	}

	if err := WriteConfig(fs, meta, config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func applyDefaults(config *Config) {
	if len(config.ModDirectories) == 0 {
		config.ModDirectories = []string{"mods"}
	}
	if config.DownloadDirectory == "" {
		config.DownloadDirectory = config.ModDirectories[0]
	}
	if config.DefaultProvider == "" {
		config.DefaultProvider = models.MODRINTH
	}
	if config.FallbackProvider == "" {
		config.FallbackProvider = config.DefaultProvider.Other()
	}
}

func validate(config Config) error {
	if config.GameVersion == "" {
		return fmt.Errorf("gameVersion is required")
	}
	if _, ok := models.ParseLoader(string(config.Loader)); !ok {
		return fmt.Errorf("unknown loader %q", config.Loader)
	}
	if _, ok := models.ParsePlatform(string(config.DefaultProvider)); !ok {
		return fmt.Errorf("unknown provider %q", config.DefaultProvider)
	}
	if _, ok := models.ParsePlatform(string(config.FallbackProvider)); !ok {
		return fmt.Errorf("unknown provider %q", config.FallbackProvider)
	}
	return nil
}
